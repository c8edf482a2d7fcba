package position

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"main/internal/journal"
	"main/internal/model"
	"main/internal/obs"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testDirectory(t *testing.T) *model.Directory {
	t.Helper()
	dir := model.NewDirectory()
	require.NoError(t, dir.AddSecurity(&model.Security{
		ID: 1, Symbol: "ES", Multiplier: dec("1"), Rate: dec("1"),
	}))
	require.NoError(t, dir.AddUser(&model.User{ID: 1, Name: "trader"}))
	require.NoError(t, dir.AddBrokerAccount(&model.BrokerAccount{ID: 1, Name: "broker"}))
	require.NoError(t, dir.AddSubAccount(&model.SubAccount{
		ID: 1, Name: "sub-1", BrokerAccountID: 1, UserID: 1,
	}))
	require.NoError(t, dir.AddSubAccount(&model.SubAccount{
		ID: 2, Name: "sub-2", BrokerAccountID: 1, UserID: 1,
	}))
	return dir
}

func confirmation(t *testing.T, dir *model.Directory, raw model.RawConfirmation) *model.Confirmation {
	t.Helper()
	if raw.Order.SubAccountID == 0 {
		raw.Order.SubAccountID = 1
	}
	if raw.Order.SecurityID == 0 {
		raw.Order.SecurityID = 1
	}
	if raw.Order.Side == "" {
		raw.Order.Side = "buy"
	}
	cm, err := raw.Resolve(dir)
	require.NoError(t, err)
	return cm
}

func TestHandleLifecycle(t *testing.T) {
	dir := testDirectory(t)
	mgr := NewManager(dir, nil, obs.NewMetrics())

	mgr.Handle(confirmation(t, dir, model.RawConfirmation{
		ExecType: "unconfirmed_new",
		Order:    model.RawOrder{ID: 1, Price: dec("10"), Qty: dec("100")},
	}), false)

	pos, ok := mgr.SubPosition(1, 1)
	require.True(t, ok)
	require.True(t, pos.TotalOutstandingBuyQty.Equal(dec("100")))

	mgr.Handle(confirmation(t, dir, model.RawConfirmation{
		ExecType:   "partially_filled",
		LastShares: dec("60"),
		LastPx:     dec("10"),
		LeavesQty:  dec("40"),
		Order:      model.RawOrder{ID: 1, Price: dec("10"), Qty: dec("100")},
	}), false)
	mgr.Handle(confirmation(t, dir, model.RawConfirmation{
		ExecType:   "filled",
		LastShares: dec("40"),
		LastPx:     dec("10"),
		Order:      model.RawOrder{ID: 1, Price: dec("10"), Qty: dec("100")},
	}), false)

	sub, _ := mgr.SubPosition(1, 1)
	broker, _ := mgr.BrokerPosition(1, 1)
	user, _ := mgr.UserPosition(1, 1)
	for name, pos := range map[string]struct {
		qty, avg, outstanding decimal.Decimal
	}{
		"sub":    {sub.Qty, sub.AvgPx, sub.TotalOutstandingBuyQty},
		"broker": {broker.Qty, broker.AvgPx, broker.TotalOutstandingBuyQty},
		"user":   {user.Qty, user.AvgPx, user.TotalOutstandingBuyQty},
	} {
		require.Truef(t, pos.qty.Equal(dec("100")), "%s qty = %s", name, pos.qty)
		require.Truef(t, pos.avg.Equal(dec("10")), "%s avg_px = %s", name, pos.avg)
		require.Truef(t, pos.outstanding.IsZero(), "%s outstanding = %s", name, pos.outstanding)
	}

	acc, _ := dir.SubAccount(1)
	agg := acc.PositionValue()
	require.True(t, agg.Qty.Equal(dec("100")))
	require.True(t, agg.AvgPx.Equal(dec("10")))
}

func TestHandleBustUnwindsFill(t *testing.T) {
	dir := testDirectory(t)
	mgr := NewManager(dir, nil, obs.NewMetrics())

	fill := model.RawConfirmation{
		ExecType:   "filled",
		LastShares: dec("100"),
		LastPx:     dec("10"),
		Order:      model.RawOrder{ID: 1, Price: dec("10"), Qty: dec("100")},
	}
	mgr.Handle(confirmation(t, dir, fill), false)

	bust := fill
	bust.ExecTransType = "cancel"
	mgr.Handle(confirmation(t, dir, bust), false)

	pos, _ := mgr.SubPosition(1, 1)
	require.True(t, pos.Qty.IsZero())
	require.True(t, pos.AvgPx.IsZero())
	require.True(t, pos.RealizedPnl.IsZero())
	require.True(t, pos.TotalBoughtQty.IsZero())
}

func TestHandleIgnoresOtherTransTypes(t *testing.T) {
	dir := testDirectory(t)
	metrics := obs.NewMetrics()
	mgr := NewManager(dir, nil, metrics)

	for _, trans := range []string{"correct", "status"} {
		mgr.Handle(confirmation(t, dir, model.RawConfirmation{
			ExecType:      "filled",
			ExecTransType: trans,
			LastShares:    dec("100"),
			LastPx:        dec("10"),
			Order:         model.RawOrder{ID: 1, Price: dec("10"), Qty: dec("100")},
		}), false)
	}

	_, ok := mgr.SubPosition(1, 1)
	require.False(t, ok, "ignored trans types must not touch the ledger")
	require.Equal(t, uint64(2), metrics.Snapshot().IgnoredTrans)
}

func TestHandleOtcSkipsReservations(t *testing.T) {
	dir := testDirectory(t)
	mgr := NewManager(dir, nil, obs.NewMetrics())

	mgr.Handle(confirmation(t, dir, model.RawConfirmation{
		ExecType: "unconfirmed_new",
		Order:    model.RawOrder{ID: 1, Type: "otc", Price: dec("10"), Qty: dec("100")},
	}), false)
	if pos, ok := mgr.SubPosition(1, 1); ok {
		require.True(t, pos.TotalOutstandingBuyQty.IsZero())
	}

	mgr.Handle(confirmation(t, dir, model.RawConfirmation{
		ExecType:   "filled",
		LastShares: dec("100"),
		LastPx:     dec("10"),
		Order:      model.RawOrder{ID: 1, Type: "otc", Price: dec("10"), Qty: dec("100")},
	}), false)
	pos, _ := mgr.SubPosition(1, 1)
	require.True(t, pos.Qty.Equal(dec("100")))
	require.True(t, pos.TotalBoughtQty.IsZero())

	mgr.Handle(confirmation(t, dir, model.RawConfirmation{
		ExecType:  "canceled",
		LeavesQty: dec("100"),
		Order:     model.RawOrder{ID: 1, Type: "otc", Price: dec("10"), Qty: dec("100")},
	}), false)
	pos, _ = mgr.SubPosition(1, 1)
	require.True(t, pos.TotalOutstandingBuyQty.IsZero())
}

func TestHandleFinishReleasesAcrossTiers(t *testing.T) {
	dir := testDirectory(t)
	mgr := NewManager(dir, nil, obs.NewMetrics())

	mgr.Handle(confirmation(t, dir, model.RawConfirmation{
		ExecType: "unconfirmed_new",
		Order:    model.RawOrder{ID: 1, Price: dec("10"), Qty: dec("100")},
	}), false)
	mgr.Handle(confirmation(t, dir, model.RawConfirmation{
		ExecType:   "partially_filled",
		LastShares: dec("40"),
		LastPx:     dec("10"),
		LeavesQty:  dec("60"),
		Order:      model.RawOrder{ID: 1, Price: dec("10"), Qty: dec("100")},
	}), false)
	mgr.Handle(confirmation(t, dir, model.RawConfirmation{
		ExecType:  "canceled",
		LeavesQty: dec("60"),
		Order:     model.RawOrder{ID: 1, Price: dec("10"), Qty: dec("100")},
	}), false)

	sub, _ := mgr.SubPosition(1, 1)
	broker, _ := mgr.BrokerPosition(1, 1)
	user, _ := mgr.UserPosition(1, 1)
	require.True(t, sub.TotalOutstandingBuyQty.IsZero())
	require.True(t, broker.TotalOutstandingBuyQty.IsZero())
	require.True(t, user.TotalOutstandingBuyQty.IsZero())
	require.True(t, sub.Qty.Equal(dec("40")))
}

func TestSeedBodFoldsBrokerAndUser(t *testing.T) {
	dir := testDirectory(t)
	mgr := NewManager(dir, nil, obs.NewMetrics())

	tm := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	mgr.SeedBod(journal.Record{
		UserID: 1, SubAccountID: 1, SecurityID: 1, BrokerAccountID: 1,
		Qty: dec("100"), AvgPx: dec("10"), RealizedPnl: dec("5"), Tm: tm,
	})
	mgr.SeedBod(journal.Record{
		UserID: 1, SubAccountID: 2, SecurityID: 1, BrokerAccountID: 1,
		Qty: dec("100"), AvgPx: dec("20"), RealizedPnl: dec("7"), Tm: tm,
	})

	sub1, _ := mgr.SubPosition(1, 1)
	require.True(t, sub1.Qty.Equal(dec("100")))
	require.True(t, sub1.AvgPx.Equal(dec("10")))
	require.True(t, sub1.RealizedPnl.Equal(dec("5")))

	broker, _ := mgr.BrokerPosition(1, 1)
	require.True(t, broker.Qty.Equal(dec("200")))
	require.True(t, broker.AvgPx.Equal(dec("15")))
	require.True(t, broker.RealizedPnl.Equal(dec("12")))

	user, _ := mgr.UserPosition(1, 1)
	require.True(t, user.Qty.Equal(dec("200")))
	require.True(t, user.AvgPx.Equal(dec("15")))

	bod, ok := mgr.Bod(1, 1)
	require.True(t, ok)
	require.True(t, bod.Qty.Equal(dec("100")))
	require.Equal(t, int64(1), bod.BrokerAccountID)
	require.True(t, bod.Tm.Equal(tm))
}

func TestSeedBodSkipsUnknownSecurity(t *testing.T) {
	dir := testDirectory(t)
	metrics := obs.NewMetrics()
	mgr := NewManager(dir, nil, metrics)

	mgr.SeedBod(journal.Record{
		UserID: 1, SubAccountID: 1, SecurityID: 99, BrokerAccountID: 1,
		Qty: dec("100"), AvgPx: dec("10"),
	})

	_, ok := mgr.SubPosition(1, 99)
	require.False(t, ok)
	require.Equal(t, uint64(1), metrics.Snapshot().UnknownSecurity)
}
