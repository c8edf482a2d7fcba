package position

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/journal"
	"main/internal/ledger"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
)

// Bod is the last durable state for a sub-account key before the current
// session began, the recovery baseline.
type Bod struct {
	Qty             decimal.Decimal
	CxQty           decimal.Decimal
	AvgPx           decimal.Decimal
	RealizedPnl     decimal.Decimal
	BrokerAccountID int64
	Tm              time.Time
}

// Manager owns the three ledgers and applies confirmations to all of them
// atomically. One instance is created by the runtime and handed to
// collaborators; there is no process-wide singleton.
type Manager struct {
	mu sync.Mutex

	dir    *model.Directory
	sub    *ledger.Ledger
	broker *ledger.Ledger
	user   *ledger.Ledger
	bods   map[ledger.Key]Bod

	writer  *journal.Writer
	metrics *obs.Metrics
}

// NewManager creates a manager over the directory. writer may be nil for
// replay/backtest use, in which case nothing is journaled.
func NewManager(dir *model.Directory, writer *journal.Writer, metrics *obs.Metrics) *Manager {
	return &Manager{
		dir:     dir,
		sub:     ledger.NewLedger(),
		broker:  ledger.NewLedger(),
		user:    ledger.NewLedger(),
		bods:    make(map[ledger.Key]Bod),
		writer:  writer,
		metrics: metrics,
	}
}

// Handle applies one confirmation to the sub-account, broker-account and
// user ledgers and the owner aggregates, then enqueues the journal write.
// offline applies the in-memory mutation without journaling, so replaying
// history never re-journals.
func (m *Manager) Handle(cm *model.Confirmation, offline bool) {
	ord := cm.Order
	if ord == nil {
		return
	}
	sec := ord.Security
	if sec == nil {
		m.metrics.IncUnknownSecurity()
		return
	}
	multiplier := sec.ConversionMultiplier()
	isBuy := ord.Side.IsBuy()
	isOtc := ord.Type.IsOffBook()
	isCx := ord.Type.IsCx()
	start := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case cm.ExecType.IsFill():
		var isBust bool
		switch cm.ExecTransType {
		case enum.TransNew:
			isBust = false
		case enum.TransCancel:
			isBust = true
		default:
			m.metrics.IncIgnoredTrans()
			return
		}
		qty, px := cm.LastShares, cm.LastPx
		pos := m.sub.Get(ord.SubAccount.ID, sec.ID)
		pos.HandleTrade(isBuy, qty, px, multiplier, isBust, isOtc, isCx)
		m.broker.Get(ord.BrokerAccount.ID, sec.ID).HandleTrade(isBuy, qty, px, multiplier, isBust, isOtc, isCx)
		m.user.Get(ord.User.ID, sec.ID).HandleTrade(isBuy, qty, px, multiplier, isBust, isOtc, isCx)
		ord.SubAccount.ApplyTrade(isBuy, qty, px, multiplier, isBust, isOtc)
		ord.BrokerAccount.ApplyTrade(isBuy, qty, px, multiplier, isBust, isOtc)
		ord.User.ApplyTrade(isBuy, qty, px, multiplier, isBust, isOtc)
		m.metrics.ObserveApply(cm.ExecType, time.Since(start))
		if offline || m.writer == nil {
			return
		}
		m.enqueueJournal(cm, *pos)

	case cm.ExecType == enum.ExecUnconfirmedNew:
		if isOtc {
			return
		}
		qty, px := ord.Qty, ord.Price
		m.sub.Get(ord.SubAccount.ID, sec.ID).HandleNew(isBuy, qty, px, multiplier)
		m.broker.Get(ord.BrokerAccount.ID, sec.ID).HandleNew(isBuy, qty, px, multiplier)
		m.user.Get(ord.User.ID, sec.ID).HandleNew(isBuy, qty, px, multiplier)
		ord.SubAccount.ApplyNew(isBuy, qty, px, multiplier)
		ord.BrokerAccount.ApplyNew(isBuy, qty, px, multiplier)
		ord.User.ApplyNew(isBuy, qty, px, multiplier)
		m.metrics.ObserveApply(cm.ExecType, time.Since(start))

	case cm.ExecType.IsFinish():
		if isOtc {
			return
		}
		leaves, px := cm.LeavesQty, ord.Price
		m.sub.Get(ord.SubAccount.ID, sec.ID).HandleFinish(isBuy, leaves, px, multiplier)
		m.broker.Get(ord.BrokerAccount.ID, sec.ID).HandleFinish(isBuy, leaves, px, multiplier)
		m.user.Get(ord.User.ID, sec.ID).HandleFinish(isBuy, leaves, px, multiplier)
		ord.SubAccount.ApplyFinish(isBuy, leaves, px, multiplier)
		ord.BrokerAccount.ApplyFinish(isBuy, leaves, px, multiplier)
		ord.User.ApplyFinish(isBuy, leaves, px, multiplier)
		m.metrics.ObserveApply(cm.ExecType, time.Since(start))
	}
}

func (m *Manager) enqueueJournal(cm *model.Confirmation, pos ledger.Position) {
	rec, err := journal.NewRecord(cm, pos, time.Now().UTC())
	if err != nil {
		logs.Errorf("build journal record: %v", err)
		return
	}
	if err := m.writer.Append(rec); err != nil {
		logs.Errorf("enqueue journal record: %v", err)
		return
	}
	m.metrics.IncJournalAppend()
}

// SeedBod folds one recovered journal row into the ledgers and the bod
// table. The sub-account ledger is seeded directly; the broker and user
// ledgers accumulate across sub-accounts with the same weighted-average
// rule a trade opening uses. Rows for unknown securities are skipped.
func (m *Manager) SeedBod(rec journal.Record) {
	sec, ok := m.dir.Security(rec.SecurityID)
	if !ok {
		m.metrics.IncUnknownSecurity()
		return
	}
	multiplier := sec.ConversionMultiplier()

	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.sub.Get(rec.SubAccountID, rec.SecurityID)
	pos.Qty = rec.Qty
	pos.CxQty = rec.CxQty
	pos.AvgPx = rec.AvgPx
	pos.RealizedPnl = rec.RealizedPnl

	m.bods[ledger.Key{OwnerID: rec.SubAccountID, SecurityID: rec.SecurityID}] = Bod{
		Qty:             rec.Qty,
		CxQty:           rec.CxQty,
		AvgPx:           rec.AvgPx,
		RealizedPnl:     rec.RealizedPnl,
		BrokerAccountID: rec.BrokerAccountID,
		Tm:              rec.Tm,
	}

	fold := func(p *ledger.Position) {
		p.RealizedPnl = p.RealizedPnl.Add(rec.RealizedPnl)
		if !rec.Qty.IsZero() {
			p.ApplyPnl(rec.Qty, rec.AvgPx, multiplier)
		}
		p.Qty = p.Qty.Add(rec.Qty)
		p.CxQty = p.CxQty.Add(rec.CxQty)
	}
	fold(m.broker.Get(rec.BrokerAccountID, rec.SecurityID))
	fold(m.user.Get(rec.UserID, rec.SecurityID))
}

// Bod returns the beginning-of-day baseline for a sub-account key.
func (m *Manager) Bod(subAccountID, securityID int64) (Bod, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bod, ok := m.bods[ledger.Key{OwnerID: subAccountID, SecurityID: securityID}]
	return bod, ok
}

// SubPosition returns a copy of the sub-account ledger entry for a key.
func (m *Manager) SubPosition(subAccountID, securityID int64) (ledger.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.sub.Lookup(subAccountID, securityID)
	if !ok {
		return ledger.Position{}, false
	}
	return *pos, true
}

// BrokerPosition returns a copy of the broker-account ledger entry.
func (m *Manager) BrokerPosition(brokerAccountID, securityID int64) (ledger.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.broker.Lookup(brokerAccountID, securityID)
	if !ok {
		return ledger.Position{}, false
	}
	return *pos, true
}

// UserPosition returns a copy of the user ledger entry.
func (m *Manager) UserPosition(userID, securityID int64) (ledger.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.user.Lookup(userID, securityID)
	if !ok {
		return ledger.Position{}, false
	}
	return *pos, true
}

// WithLedgers runs fn holding the manager's critical section. The pnl
// publisher uses it so a pass never observes a half-applied event across
// tiers.
func (m *Manager) WithLedgers(fn func(sub, broker, user *ledger.Ledger)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.sub, m.broker, m.user)
}

// Directory returns the reference-data registry the manager resolves
// against.
func (m *Manager) Directory() *model.Directory {
	return m.dir
}
