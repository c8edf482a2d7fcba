package enum

type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStop
	OrderTypeOTC
	OrderTypeCX
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

// IsOffBook reports whether the order is reported without a live working
// order, so it never touches outstanding-quantity bookkeeping.
func (t OrderType) IsOffBook() bool {
	return t == OrderTypeOTC || t == OrderTypeCX
}

// IsCx reports whether the trade is a cancel/replace variant tracked
// cumulatively for audit.
func (t OrderType) IsCx() bool {
	return t == OrderTypeCX
}

var _order_type_names = [...]string{
	OrderTypeMarket: "market",
	OrderTypeLimit:  "limit",
	OrderTypeStop:   "stop",
	OrderTypeOTC:    "otc",
	OrderTypeCX:     "cx",
}

func (t OrderType) String() string {
	if !t.IsAvailable() {
		return "unknown"
	}
	return _order_type_names[t]
}
