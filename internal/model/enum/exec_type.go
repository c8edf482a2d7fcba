package enum

type ExecType uint8

const (
	_exec_type_beg ExecType = iota
	ExecUnconfirmedNew
	ExecPartiallyFilled
	ExecFilled
	ExecCanceled
	ExecRejected
	ExecExpired
	ExecCalculated
	ExecDoneForDay
	ExecRiskRejected
	_exec_type_end
)

func (e ExecType) IsAvailable() bool {
	return e > _exec_type_beg && e < _exec_type_end
}

// IsFill reports whether the confirmation carries an executed quantity.
func (e ExecType) IsFill() bool {
	return e == ExecPartiallyFilled || e == ExecFilled
}

// IsFinish reports whether the order reached a terminal non-fill state.
func (e ExecType) IsFinish() bool {
	switch e {
	case ExecCanceled, ExecRejected, ExecExpired, ExecCalculated, ExecDoneForDay, ExecRiskRejected:
		return true
	default:
		return false
	}
}

var _exec_type_names = [...]string{
	ExecUnconfirmedNew:  "unconfirmed_new",
	ExecPartiallyFilled: "partially_filled",
	ExecFilled:          "filled",
	ExecCanceled:        "canceled",
	ExecRejected:        "rejected",
	ExecExpired:         "expired",
	ExecCalculated:      "calculated",
	ExecDoneForDay:      "done_for_day",
	ExecRiskRejected:    "risk_rejected",
}

func (e ExecType) String() string {
	if !e.IsAvailable() {
		return "unknown"
	}
	return _exec_type_names[e]
}

// Count returns the number of available exec types, for metrics tables.
func (ExecType) Count() int {
	return int(_exec_type_end)
}
