package journal

import (
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
)

// latest row per (sub_account_id, security_id) strictly before the cutoff.
const (
	_latestBeforePostgres = `
		select distinct on (sub_account_id, security_id)
			user_id, sub_account_id, broker_account_id, security_id,
			qty, cx_qty, avg_px, realized_pnl, tm
		from position
		where tm < ?
		order by sub_account_id, security_id, tm desc`

	_latestBeforeSqlite = `
		select a.user_id, a.sub_account_id, a.broker_account_id, a.security_id,
			a.qty, a.cx_qty, a.avg_px, a.realized_pnl, a.tm
		from position as a
		inner join (
			select sub_account_id, security_id, max(tm) as tm
			from position
			where tm < ?
			group by sub_account_id, security_id
		) as b
		on a.sub_account_id = b.sub_account_id
			and a.security_id = b.security_id
			and a.tm = b.tm`
)

// Store wraps the journal table on a gorm connection.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store on an open connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the position table and its key index.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&Record{}); err != nil {
		return errors.Wrap(err, "migrate position table")
	}
	return nil
}

// Append inserts one record. The table is append-only: nothing in this
// service updates or deletes rows.
func (s *Store) Append(rec *Record) error {
	if err := s.db.Create(rec).Error; err != nil {
		return errors.Wrap(err, "insert position row")
	}
	return nil
}

// LatestBefore returns, for every (sub_account, security) key, the most
// recent record strictly before the cutoff. The postgres form uses
// DISTINCT ON; the sqlite form joins against max(tm) per key.
func (s *Store) LatestBefore(cutoff time.Time) ([]Record, error) {
	query := _latestBeforeSqlite
	if s.db.Dialector.Name() == "postgres" {
		query = _latestBeforePostgres
	}
	var rows []Record
	if err := s.db.Raw(query, cutoff).Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load latest positions before cutoff")
	}
	return rows, nil
}
