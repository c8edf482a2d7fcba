package ledger

// Key identifies a position inside one aggregation tier.
type Key struct {
	OwnerID    int64
	SecurityID int64
}

// Ledger maps (owner id, security id) to a position for one aggregation
// tier. Entries are created on first touch and never removed; a closed
// position is driven back to zero quantity instead. The ledger itself is
// not synchronized: the position manager owns the critical section.
type Ledger struct {
	positions map[Key]*Position
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{positions: make(map[Key]*Position)}
}

// Get returns the position for a key, creating it when first touched.
func (l *Ledger) Get(ownerID, securityID int64) *Position {
	key := Key{OwnerID: ownerID, SecurityID: securityID}
	pos, ok := l.positions[key]
	if !ok {
		pos = &Position{}
		l.positions[key] = pos
	}
	return pos
}

// Lookup returns the position for a key without creating it.
func (l *Ledger) Lookup(ownerID, securityID int64) (*Position, bool) {
	pos, ok := l.positions[Key{OwnerID: ownerID, SecurityID: securityID}]
	return pos, ok
}

// Range calls fn for every entry until fn returns false.
func (l *Ledger) Range(fn func(Key, *Position) bool) {
	for key, pos := range l.positions {
		if !fn(key, pos) {
			return
		}
	}
}

// Len returns the number of tracked keys.
func (l *Ledger) Len() int {
	return len(l.positions)
}
