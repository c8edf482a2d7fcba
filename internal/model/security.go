package model

import (
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// Security is reference data for one traded instrument. The current market
// price is pushed in by the market-data collaborator and read by the pnl
// publisher, so it sits behind an atomic value.
type Security struct {
	ID         int64
	Symbol     string
	Multiplier decimal.Decimal
	Rate       decimal.Decimal // fx rate into the platform base currency

	px atomic.Value // decimal.Decimal
}

// ConversionMultiplier returns instrument multiplier times fx rate, the
// factor every pnl figure is scaled by.
func (s *Security) ConversionMultiplier() decimal.Decimal {
	return s.Multiplier.Mul(s.Rate)
}

// CurrentPrice returns the last pushed market price. ok is false until the
// first price arrives or while the price is zero.
func (s *Security) CurrentPrice() (decimal.Decimal, bool) {
	v := s.px.Load()
	if v == nil {
		return decimal.Zero, false
	}
	px := v.(decimal.Decimal)
	if px.IsZero() {
		return decimal.Zero, false
	}
	return px, true
}

// SetCurrentPrice stores a market price.
func (s *Security) SetCurrentPrice(px decimal.Decimal) {
	s.px.Store(px)
}
