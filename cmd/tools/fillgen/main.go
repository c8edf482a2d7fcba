package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"main/internal/journal"
	"main/internal/ledger"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/position"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	orderCount := flag.Int("order-count", 1, "Number of order lifecycles to generate")
	qty := flag.String("qty", "100", "Order quantity")
	price := flag.String("price", "10", "Order price")
	bust := flag.Bool("bust", false, "Bust the final fill of each lifecycle")
	apply := flag.Bool("apply", false, "Apply against a local sqlite journal and print positions")
	sqlitePath := flag.String("sqlite", ":memory:", "SQLite path for -apply")
	flag.Parse()

	if *orderCount <= 0 {
		log.Fatalf("order-count must be > 0")
	}
	orderQty, err := decimal.NewFromString(*qty)
	if err != nil || !orderQty.IsPositive() {
		log.Fatalf("qty must be a positive decimal")
	}
	orderPx, err := decimal.NewFromString(*price)
	if err != nil || !orderPx.IsPositive() {
		log.Fatalf("price must be a positive decimal")
	}

	loaded, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	sub := loaded.Directory.SubAccounts()
	if len(sub) == 0 {
		log.Fatalf("config has no sub-accounts")
	}
	secs := loaded.Directory.Securities()
	if len(secs) == 0 {
		log.Fatalf("config has no securities")
	}
	secID := secs[0].ID

	var raws []model.RawConfirmation
	for i := 0; i < *orderCount; i++ {
		raws = append(raws, lifecycle(int64(1001+i), sub[i%len(sub)].ID, secID, orderQty, orderPx, *bust)...)
	}

	if !*apply {
		enc := json.NewEncoder(os.Stdout)
		for _, raw := range raws {
			if err := enc.Encode(raw); err != nil {
				log.Fatalf("encode confirmation: %v", err)
			}
		}
		return
	}

	if err := applyLocally(loaded, raws, *sqlitePath); err != nil {
		log.Fatalf("apply failed: %v", err)
	}
}

// lifecycle scripts one order: reservation, a partial fill, the closing
// fill, and optionally a bust of the closing fill.
func lifecycle(orderID, subAccountID, securityID int64, qty, px decimal.Decimal, bust bool) []model.RawConfirmation {
	half := qty.Div(decimal.NewFromInt(2))
	rest := qty.Sub(half)
	now := time.Now().UTC().Unix()
	order := model.RawOrder{
		ID:           orderID,
		Side:         "buy",
		Type:         "limit",
		Price:        px,
		Qty:          qty,
		SubAccountID: subAccountID,
		SecurityID:   securityID,
	}

	out := []model.RawConfirmation{
		{ExecType: "unconfirmed_new", ExecID: uuid.NewString(), Tm: now, Order: order},
		{ExecType: "partially_filled", ExecID: uuid.NewString(), LastShares: half, LastPx: px, LeavesQty: rest, Tm: now, Order: order},
		{ExecType: "filled", ExecID: uuid.NewString(), LastShares: rest, LastPx: px, Tm: now, Order: order},
	}
	if bust {
		out = append(out, model.RawConfirmation{
			ExecType:      "filled",
			ExecTransType: "cancel",
			ExecID:        uuid.NewString(),
			LastShares:    rest,
			LastPx:        px,
			Tm:            now,
			Order:         order,
		})
	}
	return out
}

func applyLocally(loaded ops.Loaded, raws []model.RawConfirmation, sqlitePath string) error {
	client, err := conn.NewSqlite(conn.SqliteOption{Path: sqlitePath})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	store := journal.NewStore(client.DB())
	if err := store.Migrate(); err != nil {
		return err
	}
	writer := journal.NewWriter(store, 0)
	if err := writer.Start(context.Background()); err != nil {
		return err
	}
	mgr := position.NewManager(loaded.Directory, writer, obs.NewMetrics())

	for _, raw := range raws {
		cm, err := raw.Resolve(loaded.Directory)
		if err != nil {
			return err
		}
		mgr.Handle(cm, false)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	mgr.WithLedgers(func(sub, broker, user *ledger.Ledger) {
		sub.Range(func(key ledger.Key, pos *ledger.Position) bool {
			fmt.Printf("sub-account=%d security=%d qty=%s avg_px=%s realized=%s\n",
				key.OwnerID, key.SecurityID, pos.Qty, pos.AvgPx, pos.RealizedPnl)
			return true
		})
	})
	return nil
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return defaultLoaded()
	}
	return ops.Load(path)
}

func defaultLoaded() (ops.Loaded, error) {
	return ops.Resolve(ops.FileConfig{
		StorePath: "testdata/store",
		Database:  ops.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		Registry: ops.RegistryConfig{
			Securities:     []ops.SecurityConfig{{ID: 1, Symbol: "TEST-USD", Multiplier: "1", Rate: "1"}},
			Users:          []ops.UserConfig{{ID: 1, Name: "trader"}},
			BrokerAccounts: []ops.BrokerAccountConfig{{ID: 1, Name: "SIM"}},
			SubAccounts:    []ops.SubAccountConfig{{ID: 1, Name: "SIM-1", BrokerAccountID: 1, UserID: 1}},
		},
	})
}
