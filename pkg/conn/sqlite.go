package conn

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SqliteOption defines connection options for SQLite.
type SqliteOption struct {
	Path   string // file path, or ":memory:"
	Config *gorm.Config
}

// NewSqlite creates a SQLite client. An empty path opens an in-memory
// database, which is what the tests use.
func NewSqlite(option SqliteOption) (*Client, error) {
	path := option.Path
	if path == "" {
		path = ":memory:"
	}

	config := option.Config
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(sqlite.Open(path), config)
	if err != nil {
		return nil, err
	}

	return &Client{db: db}, nil
}
