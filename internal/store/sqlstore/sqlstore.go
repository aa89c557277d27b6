// Package sqlstore implements the Store over database/sql. The sqlite and
// postgres backends supply the driver, schema and placeholder style.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/store"
)

// Dialect describes the SQL differences between backends.
type Dialect struct {
	Schema string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// Question is the "?" placeholder style.
func Question(int) string { return "?" }

// Dollar is the "$n" placeholder style.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Store persists records in a match_results table.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New applies the dialect schema to db and returns a Store that owns db.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, d.Schema); err != nil {
		return nil, store.Failed("apply schema", err)
	}
	return &Store{db: db, dialect: d}, nil
}

// bind replaces each "?" in query with the dialect placeholder.
func (s *Store) bind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) Upsert(ctx context.Context, rec model.Record) error {
	data, err := store.Encode(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.bind(`
		INSERT INTO match_results (issue_id, classified, fingerprint, record)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (issue_id) DO UPDATE SET
			classified = excluded.classified,
			fingerprint = excluded.fingerprint,
			record = excluded.record`),
		rec.Result.IssueID, rec.Result.Classified(), rec.Fingerprint, string(data))
	if err != nil {
		return store.Failed("upsert "+rec.Result.IssueID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, issueID string) (model.Record, error) {
	return get(ctx, s.db, s.bind(`SELECT record FROM match_results WHERE issue_id = ?`), issueID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q queryer, query, issueID string) (model.Record, error) {
	var data string
	err := q.QueryRowContext(ctx, query, issueID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, store.NotFound(issueID)
	}
	if err != nil {
		return model.Record{}, store.Failed("get "+issueID, err)
	}
	return store.Decode([]byte(data))
}

func (s *Store) List(ctx context.Context) ([]model.Record, error) {
	return s.list(ctx, `SELECT record FROM match_results ORDER BY issue_id`)
}

func (s *Store) ListUnmatched(ctx context.Context) ([]model.Record, error) {
	return s.list(ctx, s.bind(`SELECT record FROM match_results WHERE classified = ? ORDER BY issue_id`), false)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Failed("list", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, store.Failed("list", err)
		}
		rec, err := store.Decode([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Failed("list", err)
	}
	// collation differs between backends
	store.SortByIssueID(out)
	return out, nil
}

func (s *Store) AssignMatch(ctx context.Context, issueID string, c model.MatchCandidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Failed("begin", err)
	}
	defer tx.Rollback()

	rec, err := get(ctx, tx, s.bind(`SELECT record FROM match_results WHERE issue_id = ?`), issueID)
	if err != nil {
		return err
	}
	store.Assign(&rec, c)
	data, err := store.Encode(rec)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.bind(`UPDATE match_results SET classified = ?, record = ? WHERE issue_id = ?`),
		true, string(data), issueID); err != nil {
		return store.Failed("assign "+issueID, err)
	}
	if err := tx.Commit(); err != nil {
		return store.Failed("commit", err)
	}
	return nil
}

// Raw returns the stored bytes for issueID.
func (s *Store) Raw(ctx context.Context, issueID string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT record FROM match_results WHERE issue_id = ?`), issueID).Scan(&data)
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// DB exposes the underlying handle for maintenance and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}
