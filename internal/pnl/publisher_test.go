package pnl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/obs"
	"main/internal/position"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testManager(t *testing.T) (*position.Manager, *model.Security) {
	t.Helper()
	dir := model.NewDirectory()
	sec := &model.Security{ID: 1, Symbol: "ES", Multiplier: dec("1"), Rate: dec("1")}
	require.NoError(t, dir.AddSecurity(sec))
	require.NoError(t, dir.AddUser(&model.User{ID: 1, Name: "trader"}))
	require.NoError(t, dir.AddBrokerAccount(&model.BrokerAccount{ID: 1, Name: "broker"}))
	require.NoError(t, dir.AddSubAccount(&model.SubAccount{
		ID: 1, Name: "sub-1", BrokerAccountID: 1, UserID: 1,
	}))
	return position.NewManager(dir, nil, obs.NewMetrics()), sec
}

func fill(t *testing.T, mgr *position.Manager, side, qty, px string) {
	t.Helper()
	cm, err := model.RawConfirmation{
		ExecType:   "filled",
		ExecID:     "x",
		LastShares: dec(qty),
		LastPx:     dec(px),
		Order: model.RawOrder{
			ID: 1, Side: side, Price: dec(px), Qty: dec(qty),
			SubAccountID: 1, SecurityID: 1,
		},
	}.Resolve(mgr.Directory())
	require.NoError(t, err)
	mgr.Handle(cm, false)
}

func reserve(t *testing.T, mgr *position.Manager, side, qty, px string) {
	t.Helper()
	cm, err := model.RawConfirmation{
		ExecType: "unconfirmed_new",
		Order: model.RawOrder{
			ID: 2, Side: side, Price: dec(px), Qty: dec(qty),
			SubAccountID: 1, SecurityID: 1,
		},
	}.Resolve(mgr.Directory())
	require.NoError(t, err)
	mgr.Handle(cm, false)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(blob)), "\n")
}

func TestPublisherEmitsTimeseriesLine(t *testing.T) {
	storeDir := t.TempDir()
	mgr, sec := testManager(t)
	fill(t, mgr, "buy", "100", "10")
	sec.SetCurrentPrice(dec("12"))

	metrics := obs.NewMetrics()
	p := NewPublisher(mgr, storeDir, time.Second, dec("1"), metrics)
	defer p.closeFiles()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	p.publishOnce(now)

	lines := readLines(t, filepath.Join(storeDir, "pnl-1"))
	require.Len(t, lines, 1)
	require.Equal(t, fmt.Sprintf("%d 0 200", now.Unix()), lines[0])

	pos, ok := mgr.SubPosition(1, 1)
	require.True(t, ok)
	require.True(t, pos.UnrealizedPnl.Equal(dec("200")))

	snap := metrics.Snapshot()
	require.Equal(t, uint64(1), snap.PublisherRuns)
	require.Equal(t, uint64(1), snap.PublisherLines)
}

func TestPublisherNoiseThreshold(t *testing.T) {
	storeDir := t.TempDir()
	mgr, sec := testManager(t)
	fill(t, mgr, "buy", "100", "10")
	sec.SetCurrentPrice(dec("12"))

	p := NewPublisher(mgr, storeDir, time.Second, dec("1"), nil)
	defer p.closeFiles()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	p.publishOnce(now)
	// unchanged state, below threshold
	p.publishOnce(now.Add(time.Second))
	// a 0.02 move on 100 shares is 2, above the threshold of 1
	sec.SetCurrentPrice(dec("12.02"))
	p.publishOnce(now.Add(2 * time.Second))

	lines := readLines(t, filepath.Join(storeDir, "pnl-1"))
	require.Len(t, lines, 2)

	sec.SetCurrentPrice(dec("12.025"))
	p.publishOnce(now.Add(3 * time.Second))
	lines = readLines(t, filepath.Join(storeDir, "pnl-1"))
	require.Len(t, lines, 2, "a 0.5 unrealized move is noise")
}

func TestPublisherSkipsSecuritiesWithoutPrice(t *testing.T) {
	storeDir := t.TempDir()
	mgr, _ := testManager(t)
	fill(t, mgr, "buy", "100", "10")

	p := NewPublisher(mgr, storeDir, time.Second, dec("1"), nil)
	defer p.closeFiles()
	p.publishOnce(time.Now().UTC())

	pos, _ := mgr.SubPosition(1, 1)
	require.True(t, pos.UnrealizedPnl.IsZero())
	require.Nil(t, readLines(t, filepath.Join(storeDir, "pnl-1")))
}

func TestPublisherRollsExposure(t *testing.T) {
	storeDir := t.TempDir()
	mgr, sec := testManager(t)
	reserve(t, mgr, "buy", "100", "10")
	fill(t, mgr, "buy", "100", "10")
	sec.SetCurrentPrice(dec("12"))

	p := NewPublisher(mgr, storeDir, time.Second, dec("1"), nil)
	defer p.closeFiles()
	p.publishOnce(time.Now().UTC())

	acc, _ := mgr.Directory().SubAccount(1)
	long, short := acc.Exposure()
	require.True(t, long.Equal(dec("1200")), "long = %s", long)
	require.True(t, short.IsZero())

	user, _ := mgr.Directory().User(1)
	long, _ = user.Exposure()
	require.True(t, long.Equal(dec("1200")))
}

func TestPublisherExposureNetsWorkingOrders(t *testing.T) {
	storeDir := t.TempDir()
	mgr, sec := testManager(t)
	reserve(t, mgr, "buy", "100", "10")
	fill(t, mgr, "buy", "100", "10")
	// a working sell larger than the position flips the net exposure short
	reserve(t, mgr, "sell", "150", "12")
	sec.SetCurrentPrice(dec("12"))

	p := NewPublisher(mgr, storeDir, time.Second, dec("1"), nil)
	defer p.closeFiles()
	p.publishOnce(time.Now().UTC())

	acc, _ := mgr.Directory().SubAccount(1)
	long, short := acc.Exposure()
	require.Truef(t, long.IsZero(), "long = %s", long)
	require.Truef(t, short.Equal(dec("600")), "short = %s", short)
}

func TestPublisherFirstEmissionHonorsThreshold(t *testing.T) {
	storeDir := t.TempDir()
	mgr, _ := testManager(t)
	fill(t, mgr, "buy", "1", "10")
	fill(t, mgr, "sell", "1", "10.5")

	p := NewPublisher(mgr, storeDir, time.Second, dec("1"), nil)
	defer p.closeFiles()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	// realized 0.5 is under the threshold even with no prior emission
	p.publishOnce(now)
	require.Nil(t, readLines(t, filepath.Join(storeDir, "pnl-1")))

	fill(t, mgr, "buy", "1", "10")
	fill(t, mgr, "sell", "1", "11.5")
	p.publishOnce(now.Add(time.Second))

	lines := readLines(t, filepath.Join(storeDir, "pnl-1"))
	require.Len(t, lines, 1)
	require.Equal(t, fmt.Sprintf("%d 2 0", now.Add(time.Second).Unix()), lines[0])
}
