// Package sqlite reads taxonomy and issue snapshots from a SQLite database.
//
// The taxonomy is stored as whole JSON documents, newest row wins; issues
// are one row each with comments held as a JSON array.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crimson-sun/triage/internal/engine/taxonomy"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/source"
)

const schema = `
CREATE TABLE IF NOT EXISTS taxonomy_snapshots (
	version  INTEGER PRIMARY KEY AUTOINCREMENT,
	document TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS issues (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	comments    TEXT NOT NULL DEFAULT '[]',
	status      TEXT NOT NULL DEFAULT '',
	project     TEXT NOT NULL DEFAULT '',
	component   TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT '',
	resolution  TEXT NOT NULL DEFAULT '',
	created     TEXT NOT NULL DEFAULT '',
	updated     TEXT NOT NULL DEFAULT ''
);
`

func init() {
	source.Register("sqlite", func(cfg source.Config) (source.Source, error) {
		return Open(cfg.DSN)
	})
}

// Source reads from a SQLite database file.
type Source struct {
	db *sql.DB
}

// Open opens the database at path and ensures the schema exists.
func Open(path string) (*Source, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite source: open: %w: %w", model.ErrConfiguration, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite source: ping: %w: %w", model.ErrConfiguration, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite source: schema: %w", err)
	}
	return &Source{db: db}, nil
}

func (s *Source) Taxonomy(ctx context.Context) (*model.TaxonomyNode, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM taxonomy_snapshots ORDER BY version DESC LIMIT 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite source: no taxonomy stored: %w", model.ErrConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite source: read taxonomy: %w: %w", model.ErrConfiguration, err)
	}
	return taxonomy.Parse([]byte(doc))
}

func (s *Source) Issues(ctx context.Context) ([]model.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, comments, status, project, component,
		       type, resolution, created, updated
		FROM issues ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("sqlite source: query issues: %w: %w", model.ErrConfiguration, err)
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		var is model.Issue
		var comments string
		if err := rows.Scan(&is.ID, &is.Title, &is.Description, &comments, &is.Status,
			&is.Project, &is.Component, &is.Type, &is.Resolution, &is.Created, &is.Updated); err != nil {
			return nil, fmt.Errorf("sqlite source: scan issue: %w: %w", model.ErrConfiguration, err)
		}
		if err := json.Unmarshal([]byte(comments), &is.Comments); err != nil {
			return nil, fmt.Errorf("sqlite source: issue %s comments: %w: %w", is.ID, model.ErrConfiguration, err)
		}
		issues = append(issues, is)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite source: iterate issues: %w: %w", model.ErrConfiguration, err)
	}
	return issues, nil
}

// PutTaxonomy stores root as the newest taxonomy snapshot.
func (s *Source) PutTaxonomy(ctx context.Context, root *model.TaxonomyNode) error {
	if err := taxonomy.Validate(root); err != nil {
		return err
	}
	doc, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("sqlite source: encode taxonomy: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO taxonomy_snapshots (document) VALUES (?)`, string(doc)); err != nil {
		return fmt.Errorf("sqlite source: store taxonomy: %w", err)
	}
	return nil
}

// PutIssues inserts or replaces issues by id. Existing rows keep their position.
func (s *Source) PutIssues(ctx context.Context, issues []model.Issue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite source: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO issues (id, title, description, comments, status, project,
		                    component, type, resolution, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description,
			comments = excluded.comments, status = excluded.status,
			project = excluded.project, component = excluded.component,
			type = excluded.type, resolution = excluded.resolution,
			created = excluded.created, updated = excluded.updated`)
	if err != nil {
		return fmt.Errorf("sqlite source: prepare: %w", err)
	}
	defer stmt.Close()

	for _, is := range issues {
		comments := is.Comments
		if comments == nil {
			comments = []string{}
		}
		data, err := json.Marshal(comments)
		if err != nil {
			return fmt.Errorf("sqlite source: encode comments: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, is.ID, is.Title, is.Description, string(data), is.Status,
			is.Project, is.Component, is.Type, is.Resolution, is.Created, is.Updated); err != nil {
			return fmt.Errorf("sqlite source: store issue %s: %w", is.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Source) Close() error {
	return s.db.Close()
}
