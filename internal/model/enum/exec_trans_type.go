package enum

type ExecTransType uint8

const (
	_exec_trans_type_beg ExecTransType = iota
	TransNew
	TransCancel
	TransCorrect
	TransStatus
	_exec_trans_type_end
)

func (t ExecTransType) IsAvailable() bool {
	return t > _exec_trans_type_beg && t < _exec_trans_type_end
}

var _exec_trans_type_names = [...]string{
	TransNew:     "new",
	TransCancel:  "cancel",
	TransCorrect: "correct",
	TransStatus:  "status",
}

func (t ExecTransType) String() string {
	if !t.IsAvailable() {
		return "unknown"
	}
	return _exec_trans_type_names[t]
}
