package model

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/model/enum"
)

// RawConfirmation is the JSON shape confirmations arrive in from outside
// the process (replay files, test harnesses). Owner and security references
// are carried as ids and resolved against the directory.
type RawConfirmation struct {
	ExecType      string          `json:"execType"`
	ExecTransType string          `json:"execTransType"`
	ExecID        string          `json:"execId"`
	LastShares    decimal.Decimal `json:"lastShares"`
	LastPx        decimal.Decimal `json:"lastPx"`
	LeavesQty     decimal.Decimal `json:"leavesQty"`
	Tm            int64           `json:"tm"` // unix seconds

	Misc map[string]string `json:"misc,omitempty"`

	Order RawOrder `json:"order"`
}

// RawOrder is the order block inside a RawConfirmation.
type RawOrder struct {
	ID            int64             `json:"id"`
	Side          string            `json:"side"`
	Type          string            `json:"type"`
	Price         decimal.Decimal   `json:"price"`
	Qty           decimal.Decimal   `json:"qty"`
	Destination   string            `json:"destination,omitempty"`
	SubAccountID  int64             `json:"subAccountId"`
	SecurityID    int64             `json:"securityId"`
	Optional      map[string]string `json:"optional,omitempty"`
}

var _exec_types_by_name = map[string]enum.ExecType{
	"unconfirmed_new":  enum.ExecUnconfirmedNew,
	"partially_filled": enum.ExecPartiallyFilled,
	"filled":           enum.ExecFilled,
	"canceled":         enum.ExecCanceled,
	"rejected":         enum.ExecRejected,
	"expired":          enum.ExecExpired,
	"calculated":       enum.ExecCalculated,
	"done_for_day":     enum.ExecDoneForDay,
	"risk_rejected":    enum.ExecRiskRejected,
}

var _exec_trans_types_by_name = map[string]enum.ExecTransType{
	"":        enum.TransNew,
	"new":     enum.TransNew,
	"cancel":  enum.TransCancel,
	"correct": enum.TransCorrect,
	"status":  enum.TransStatus,
}

var _order_sides_by_name = map[string]enum.OrderSide{
	"buy":  enum.OrderSideBuy,
	"sell": enum.OrderSideSell,
}

var _order_types_by_name = map[string]enum.OrderType{
	"":       enum.OrderTypeLimit,
	"market": enum.OrderTypeMarket,
	"limit":  enum.OrderTypeLimit,
	"stop":   enum.OrderTypeStop,
	"otc":    enum.OrderTypeOTC,
	"cx":     enum.OrderTypeCX,
}

// Resolve binds a raw confirmation to directory objects. The sub-account
// determines the broker account and user, mirroring how orders are owned.
func (r RawConfirmation) Resolve(dir *Directory) (*Confirmation, error) {
	execType, ok := _exec_types_by_name[r.ExecType]
	if !ok {
		return nil, errors.New("unknown exec type: " + r.ExecType)
	}
	transType, ok := _exec_trans_types_by_name[r.ExecTransType]
	if !ok {
		return nil, errors.New("unknown exec trans type: " + r.ExecTransType)
	}
	side, ok := _order_sides_by_name[r.Order.Side]
	if !ok {
		return nil, errors.New("unknown order side: " + r.Order.Side)
	}
	orderType, ok := _order_types_by_name[r.Order.Type]
	if !ok {
		return nil, errors.New("unknown order type: " + r.Order.Type)
	}
	sub, ok := dir.SubAccount(r.Order.SubAccountID)
	if !ok {
		return nil, errors.New("unknown sub account")
	}
	broker, ok := dir.BrokerAccount(sub.BrokerAccountID)
	if !ok {
		return nil, errors.New("sub account references unknown broker account")
	}
	user, ok := dir.User(sub.UserID)
	if !ok {
		return nil, errors.New("sub account references unknown user")
	}
	sec, ok := dir.Security(r.Order.SecurityID)
	if !ok {
		return nil, errors.New("unknown security")
	}

	return &Confirmation{
		ExecType:        execType,
		ExecTransType:   transType,
		ExecID:          r.ExecID,
		LastShares:      r.LastShares,
		LastPx:          r.LastPx,
		LeavesQty:       r.LeavesQty,
		TransactionTime: time.Unix(r.Tm, 0).UTC(),
		Misc:            r.Misc,
		Order: &Order{
			ID:            r.Order.ID,
			Side:          side,
			Type:          orderType,
			Price:         r.Order.Price,
			Qty:           r.Order.Qty,
			Destination:   r.Order.Destination,
			SubAccount:    sub,
			BrokerAccount: broker,
			User:          user,
			Security:      sec,
			Optional:      r.Order.Optional,
		},
	}, nil
}
