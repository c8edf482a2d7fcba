package model

import (
	"sync"

	"github.com/shopspring/decimal"

	"main/internal/ledger"
)

// Aggregate is the denormalized position an owner object carries so other
// subsystems can read exposure without a ledger lookup. Mutation goes
// through the Apply methods only; the position manager is the sole writer
// of the trade path and the pnl publisher the sole writer of exposure.
type Aggregate struct {
	mu    sync.Mutex
	value ledger.Position

	longValue  decimal.Decimal
	shortValue decimal.Decimal
}

// ApplyNew mirrors ledger.Position.HandleNew onto the owner aggregate.
func (a *Aggregate) ApplyNew(isBuy bool, qty, price, multiplier decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value.HandleNew(isBuy, qty, price, multiplier)
}

// ApplyTrade mirrors ledger.Position.HandleTrade onto the owner aggregate.
func (a *Aggregate) ApplyTrade(isBuy bool, qty, price, multiplier decimal.Decimal, isBust, isOtc bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value.HandleTrade(isBuy, qty, price, multiplier, isBust, isOtc, false)
}

// ApplyFinish mirrors ledger.Position.HandleFinish onto the owner aggregate.
func (a *Aggregate) ApplyFinish(isBuy bool, leavesQty, price, multiplier decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value.HandleFinish(isBuy, leavesQty, price, multiplier)
}

// PositionValue returns a copy of the aggregate position.
func (a *Aggregate) PositionValue() ledger.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

// SetExposure replaces the owner's long/short notional exposure, including
// outstanding working orders. Written once per publisher pass.
func (a *Aggregate) SetExposure(long, short decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.longValue = long
	a.shortValue = short
}

// Exposure returns the owner's long and short notional exposure.
func (a *Aggregate) Exposure() (long, short decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.longValue, a.shortValue
}

// SubAccount is the finest-grained owning entity. Every order belongs to
// exactly one sub-account, which maps to one broker account and one user.
type SubAccount struct {
	ID              int64
	Name            string
	BrokerAccountID int64
	UserID          int64

	Aggregate
}

// BrokerAccount groups sub-accounts cleared through the same broker.
type BrokerAccount struct {
	ID   int64
	Name string

	Aggregate
}

// User owns sub-accounts across brokers.
type User struct {
	ID   int64
	Name string

	Aggregate
}
