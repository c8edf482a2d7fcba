package journal

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/datatypes"

	"main/internal/ledger"
	"main/internal/model"
	"main/internal/model/enum"
)

// Record is one journaled position mutation: the resulting state for the
// sub-account key plus free-form trade metadata. Rows are only ever
// inserted.
type Record struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          int64           `gorm:"column:user_id"`
	SubAccountID    int64           `gorm:"column:sub_account_id;index:idx_position_key,priority:1"`
	SecurityID      int64           `gorm:"column:security_id;index:idx_position_key,priority:2"`
	BrokerAccountID int64           `gorm:"column:broker_account_id"`
	Qty             decimal.Decimal `gorm:"column:qty;type:numeric"`
	CxQty           decimal.Decimal `gorm:"column:cx_qty;type:numeric"`
	AvgPx           decimal.Decimal `gorm:"column:avg_px;type:numeric"`
	RealizedPnl     decimal.Decimal `gorm:"column:realized_pnl;type:numeric"`
	Tm              time.Time       `gorm:"column:tm;index:idx_position_key,priority:3"`
	Info            datatypes.JSON  `gorm:"column:info"`
}

// TableName keeps the original table name.
func (Record) TableName() string {
	return "position"
}

// NewRecord snapshots the resulting sub-account position and the trade
// metadata of a fill confirmation into a self-contained record, so the
// async writer never reaches back into live state.
func NewRecord(cm *model.Confirmation, pos ledger.Position, tm time.Time) (Record, error) {
	ord := cm.Order
	info := map[string]any{
		"tm":      cm.TransactionTime.UTC().Unix(),
		"qty":     cm.LastShares,
		"px":      cm.LastPx,
		"exec_id": cm.ExecID,
		"side":    ord.Side.String(),
		"type":    ord.Type.String(),
		"id":      ord.ID,
	}
	if ord.Destination != "" {
		info["destination"] = ord.Destination
	}
	for key, value := range ord.Optional {
		info[key] = value
	}
	if cm.ExecTransType == enum.TransCancel {
		info["bust"] = true
	}
	if ord.Type == enum.OrderTypeOTC {
		info["otc"] = true
	} else if ord.Type == enum.OrderTypeCX {
		info["cx"] = true
	}
	for key, value := range cm.Misc {
		info[key] = value
	}
	blob, err := json.Marshal(info)
	if err != nil {
		return Record{}, errors.Wrap(err, "marshal journal info")
	}

	return Record{
		UserID:          ord.User.ID,
		SubAccountID:    ord.SubAccount.ID,
		SecurityID:      ord.Security.ID,
		BrokerAccountID: ord.BrokerAccount.ID,
		Qty:             pos.Qty,
		CxQty:           pos.CxQty,
		AvgPx:           pos.AvgPx,
		RealizedPnl:     pos.RealizedPnl,
		Tm:              tm,
		Info:            datatypes.JSON(blob),
	}, nil
}
