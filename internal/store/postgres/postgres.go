// Package postgres stores match results in PostgreSQL through pgx.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

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
	store.Register("postgres", func(dsn string) (store.Store, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return Open(ctx, dsn)
	})
}

// Open connects to databaseURL and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open: %w: %w", model.ErrConfiguration, err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres store: ping: %w: %w", model.ErrConfiguration, err)
	}
	s, err := sqlstore.New(ctx, db, sqlstore.Dialect{Schema: schema, Placeholder: sqlstore.Dollar})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
