package model

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// Order is the order an execution confirmation refers to. References are
// resolved against the directory before the confirmation enters the bus.
type Order struct {
	ID          int64
	Side        enum.OrderSide
	Type        enum.OrderType
	Price       decimal.Decimal
	Qty         decimal.Decimal
	Destination string

	SubAccount    *SubAccount
	BrokerAccount *BrokerAccount
	User          *User
	Security      *Security

	// Optional carries broker-specific order fields, journaled verbatim.
	Optional map[string]string
}

// Confirmation is one already-normalized execution event from the order
// engine.
type Confirmation struct {
	ExecType        enum.ExecType
	ExecTransType   enum.ExecTransType
	ExecID          string
	LastShares      decimal.Decimal
	LastPx          decimal.Decimal
	LeavesQty       decimal.Decimal
	TransactionTime time.Time

	// Misc carries destination-specific execution fields, journaled verbatim.
	Misc map[string]string

	Order *Order
}
