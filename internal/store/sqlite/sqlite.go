// Package sqlite stores match results in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/store"
	"github.com/crimson-sun/triage/internal/store/sqlstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_results (
	issue_id    TEXT PRIMARY KEY,
	classified  BOOLEAN NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	record      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_results_classified ON match_results(classified);
`

func init() {
	store.Register("sqlite", func(dsn string) (store.Store, error) {
		return Open(dsn)
	})
}

// Open opens or creates the database at path.
func Open(path string) (*sqlstore.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite store: create directory: %w: %w", model.ErrConfiguration, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w: %w", model.ErrConfiguration, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: ping: %w: %w", model.ErrConfiguration, err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent upserts
	db.SetMaxOpenConns(1)

	s, err := sqlstore.New(context.Background(), db, sqlstore.Dialect{Schema: schema, Placeholder: sqlstore.Question})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
