// Package warehouse implements the dimensional store: schema management,
// dimension inserts with duplicate swallowing, bulk fact loads and the read
// queries used by reconciliation and reporting.
package warehouse

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"playlistpulse/internal/core"
)

// ErrDuplicateRow classifies a uniqueness-constraint violation on a dimension
// insert. Expected during normal operation and swallowed by the loader.
var ErrDuplicateRow = errors.New("row already present in dimension")

// Store wraps one warehouse connection pool. A Store is opened per run scope
// and injected into the pipeline stages that need it.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func Open(config *core.WarehouseConfig, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", config.Path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping warehouse: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
