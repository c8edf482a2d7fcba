package ledger

import "github.com/shopspring/decimal"

// Position tracks one owner/security pair. Quantities are signed: positive
// is a long position. UnrealizedPnl is recomputed from market prices by the
// pnl publisher and is never journaled.
type Position struct {
	Qty           decimal.Decimal
	AvgPx         decimal.Decimal
	RealizedPnl   decimal.Decimal
	UnrealizedPnl decimal.Decimal

	// CxQty accumulates the signed quantity of cancel/replace trades, for audit.
	CxQty decimal.Decimal

	TotalOutstandingBuyQty  decimal.Decimal
	TotalOutstandingSellQty decimal.Decimal
	TotalBoughtQty          decimal.Decimal
	TotalSoldQty            decimal.Decimal
}

// ApplyPnl books a signed trade delta at price against the current position
// using the average-cost method. Opening or adding recomputes AvgPx as the
// quantity-weighted mean; reducing realizes pnl against AvgPx; crossing
// through flat realizes on the full prior quantity and re-opens the residual
// at the trade price. A flat result forces AvgPx to zero.
func (p *Position) ApplyPnl(delta, price, multiplier decimal.Decimal) {
	qty0 := p.Qty
	switch {
	case qty0.IsPositive() && delta.IsNegative(): // sell trade against a long
		if qty0.GreaterThan(delta.Neg()) {
			p.RealizedPnl = p.RealizedPnl.Add(price.Sub(p.AvgPx).Mul(delta.Neg()).Mul(multiplier))
		} else {
			p.RealizedPnl = p.RealizedPnl.Add(price.Sub(p.AvgPx).Mul(qty0).Mul(multiplier))
			p.AvgPx = price
		}
	case qty0.IsNegative() && delta.IsPositive(): // buy trade to cover a short
		if qty0.Neg().GreaterThan(delta) {
			p.RealizedPnl = p.RealizedPnl.Add(p.AvgPx.Sub(price).Mul(delta).Mul(multiplier))
		} else {
			p.RealizedPnl = p.RealizedPnl.Add(p.AvgPx.Sub(price).Mul(qty0.Neg()).Mul(multiplier))
			p.AvgPx = price
		}
	default: // opening or adding
		total := qty0.Add(delta)
		if !total.IsZero() {
			p.AvgPx = qty0.Mul(p.AvgPx).Add(delta.Mul(price)).Div(total)
		}
	}
	if qty0.Add(delta).IsZero() {
		p.AvgPx = decimal.Zero
	}
}

// HandleNew reserves working-order exposure for an acknowledged order.
// qty must be positive. No pnl effect.
func (p *Position) HandleNew(isBuy bool, qty, price, multiplier decimal.Decimal) {
	if isBuy {
		p.TotalOutstandingBuyQty = p.TotalOutstandingBuyQty.Add(qty)
	} else {
		p.TotalOutstandingSellQty = p.TotalOutstandingSellQty.Add(qty)
	}
}

// HandleTrade applies a (partial) fill. qty must be positive; the signed
// delta is derived from isBuy and negated again for a bust, so a bust
// re-applies the inverse of the original fill. Off-book trades skip the
// outstanding and cumulative counters entirely. A bust decrements only the
// cumulative counters: the original order is already closed, so the
// reservation is not restored.
func (p *Position) HandleTrade(isBuy bool, qty, price, multiplier decimal.Decimal, isBust, isOtc, isCx bool) {
	switch {
	case isOtc:
	case !isBust:
		if isBuy {
			p.TotalOutstandingBuyQty = p.TotalOutstandingBuyQty.Sub(qty)
			p.TotalBoughtQty = p.TotalBoughtQty.Add(qty)
		} else {
			p.TotalOutstandingSellQty = p.TotalOutstandingSellQty.Sub(qty)
			p.TotalSoldQty = p.TotalSoldQty.Add(qty)
		}
	default:
		if isBuy {
			p.TotalBoughtQty = p.TotalBoughtQty.Sub(qty)
		} else {
			p.TotalSoldQty = p.TotalSoldQty.Sub(qty)
		}
	}

	delta := qty
	if !isBuy {
		delta = delta.Neg()
	}
	if isBust {
		delta = delta.Neg()
	}
	p.ApplyPnl(delta, price, multiplier)
	p.Qty = p.Qty.Add(delta)
	if isCx {
		p.CxQty = p.CxQty.Add(delta)
	}
}

// HandleFinish releases the remaining reservation when an order reaches a
// terminal non-fill state. leavesQty must be positive. No pnl effect.
func (p *Position) HandleFinish(isBuy bool, leavesQty, price, multiplier decimal.Decimal) {
	if isBuy {
		p.TotalOutstandingBuyQty = p.TotalOutstandingBuyQty.Sub(leavesQty)
	} else {
		p.TotalOutstandingSellQty = p.TotalOutstandingSellQty.Sub(leavesQty)
	}
}
