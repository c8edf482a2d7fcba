package pnl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/ledger"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/position"
)

const _defaultInterval = time.Second

type emitted struct {
	realized   decimal.Decimal
	unrealized decimal.Decimal
}

// Publisher re-marks unrealized pnl every interval and appends one
// timeseries line per sub-account whose realized or unrealized figure moved
// by more than the noise threshold since the last emission.
type Publisher struct {
	mgr       *position.Manager
	storePath string
	interval  time.Duration
	threshold decimal.Decimal
	metrics   *obs.Metrics

	files map[int64]*os.File
	last  map[int64]emitted
}

// NewPublisher creates a publisher. interval <= 0 falls back to one second.
func NewPublisher(mgr *position.Manager, storePath string, interval time.Duration, threshold decimal.Decimal, metrics *obs.Metrics) *Publisher {
	if interval <= 0 {
		interval = _defaultInterval
	}
	return &Publisher{
		mgr:       mgr,
		storePath: storePath,
		interval:  interval,
		threshold: threshold,
		metrics:   metrics,
		files:     make(map[int64]*os.File),
		last:      make(map[int64]emitted),
	}
}

// Run executes passes until the context or the process shuts down. The
// timer is reset after each pass completes, so a slow pass delays the next
// one instead of stacking.
func (p *Publisher) Run(ctx context.Context) {
	defer p.closeFiles()
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sys.Shutdown():
			return
		case <-timer.C:
			p.publishOnce(time.Now())
			timer.Reset(p.interval)
		}
	}
}

// publishOnce runs one full pass. The read-and-remark phase holds the
// manager's critical section so it never observes an event half-applied
// across tiers; file writes happen after the lock is released.
func (p *Publisher) publishOnce(now time.Time) {
	start := time.Now()
	totals := make(map[int64]emitted)

	p.mgr.WithLedgers(func(sub, broker, user *ledger.Ledger) {
		dir := p.mgr.Directory()

		p.remark(sub, dir)
		p.remark(broker, dir)
		p.remark(user, dir)

		p.rollExposure(sub, dir, func(id int64) (*model.Aggregate, bool) {
			acc, ok := dir.SubAccount(id)
			if !ok {
				return nil, false
			}
			return &acc.Aggregate, true
		})
		p.rollExposure(broker, dir, func(id int64) (*model.Aggregate, bool) {
			acc, ok := dir.BrokerAccount(id)
			if !ok {
				return nil, false
			}
			return &acc.Aggregate, true
		})
		p.rollExposure(user, dir, func(id int64) (*model.Aggregate, bool) {
			u, ok := dir.User(id)
			if !ok {
				return nil, false
			}
			return &u.Aggregate, true
		})

		sub.Range(func(key ledger.Key, pos *ledger.Position) bool {
			t := totals[key.OwnerID]
			t.realized = t.realized.Add(pos.RealizedPnl)
			t.unrealized = t.unrealized.Add(pos.UnrealizedPnl)
			totals[key.OwnerID] = t
			return true
		})
	})

	lines := 0
	for id, t := range totals {
		if !p.shouldEmit(id, t) {
			continue
		}
		p.last[id] = t
		if p.appendLine(id, now, t) {
			lines++
		}
	}
	p.metrics.ObservePublish(lines, time.Since(start))
}

// remark recomputes UnrealizedPnl for every entry that holds a position or
// still carries a stale mark. Securities without a current price keep the
// previous mark.
func (p *Publisher) remark(l *ledger.Ledger, dir *model.Directory) {
	l.Range(func(key ledger.Key, pos *ledger.Position) bool {
		if pos.Qty.IsZero() && pos.UnrealizedPnl.IsZero() {
			return true
		}
		sec, ok := dir.Security(key.SecurityID)
		if !ok {
			return true
		}
		px, ok := sec.CurrentPrice()
		if !ok {
			return true
		}
		if pos.Qty.IsZero() {
			pos.UnrealizedPnl = decimal.Zero
			return true
		}
		pos.UnrealizedPnl = pos.Qty.Mul(px.Sub(pos.AvgPx)).Mul(sec.ConversionMultiplier())
		return true
	})
}

// rollExposure computes each owner's long and short notional, counting
// outstanding working orders as if filled, and replaces the owner's
// exposure fields. Each key nets to one signed quantity and lands on
// exactly one side; short notional is stored positive.
func (p *Publisher) rollExposure(l *ledger.Ledger, dir *model.Directory, aggregate func(int64) (*model.Aggregate, bool)) {
	type exposure struct {
		long  decimal.Decimal
		short decimal.Decimal
	}
	owners := make(map[int64]exposure)
	l.Range(func(key ledger.Key, pos *ledger.Position) bool {
		sec, ok := dir.Security(key.SecurityID)
		if !ok {
			return true
		}
		px, ok := sec.CurrentPrice()
		if !ok {
			return true
		}
		net := pos.Qty.Add(pos.TotalOutstandingBuyQty).Sub(pos.TotalOutstandingSellQty)
		notional := net.Mul(px).Mul(sec.ConversionMultiplier())
		e := owners[key.OwnerID]
		switch {
		case notional.IsPositive():
			e.long = e.long.Add(notional)
		case notional.IsNegative():
			e.short = e.short.Sub(notional)
		}
		owners[key.OwnerID] = e
		return true
	})
	for id, e := range owners {
		agg, ok := aggregate(id)
		if !ok {
			continue
		}
		agg.SetExposure(e.long, e.short)
	}
}

// shouldEmit applies the noise threshold against the last emitted pair. A
// sub-account that has never emitted compares against (0, 0), so sub-noise
// totals stay silent from the first pass on.
func (p *Publisher) shouldEmit(id int64, t emitted) bool {
	prev := p.last[id]
	return t.realized.Sub(prev.realized).Abs().GreaterThanOrEqual(p.threshold) ||
		t.unrealized.Sub(prev.unrealized).Abs().GreaterThanOrEqual(p.threshold)
}

func (p *Publisher) appendLine(id int64, now time.Time, t emitted) bool {
	f, ok := p.files[id]
	if !ok {
		path := filepath.Join(p.storePath, fmt.Sprintf("pnl-%d", id))
		var err error
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logs.Errorf("open pnl file for sub-account %d: %v", id, err)
			return false
		}
		p.files[id] = f
	}
	if _, err := fmt.Fprintf(f, "%d %s %s\n", now.Unix(), t.realized, t.unrealized); err != nil {
		logs.Errorf("append pnl line for sub-account %d: %v", id, err)
		return false
	}
	return true
}

func (p *Publisher) closeFiles() {
	for _, f := range p.files {
		_ = f.Close()
	}
}
