// Package store defines the Match Result Store: the persisted mapping from
// issue id to its latest match outcome.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/crimson-sun/triage/internal/model"
)

// Store persists match records keyed by issue id. A read that follows a
// successful Upsert in the same process observes it. Implementations are
// safe for concurrent use on distinct keys.
type Store interface {
	// Upsert inserts the record or replaces the one stored under its issue id.
	Upsert(ctx context.Context, rec model.Record) error

	// Get returns the record for issueID or an error wrapping model.ErrNotFound.
	Get(ctx context.Context, issueID string) (model.Record, error)

	// List returns every record ordered by issue id.
	List(ctx context.Context) ([]model.Record, error)

	// ListUnmatched returns records whose issue had no text to classify,
	// ordered by issue id.
	ListUnmatched(ctx context.Context) ([]model.Record, error)

	// AssignMatch replaces the stored best matches of issueID with the single
	// reviewer-chosen candidate.
	AssignMatch(ctx context.Context, issueID string, c model.MatchCandidate) error

	Close() error
}

// Constructor opens a Store from a backend-specific DSN.
type Constructor func(dsn string) (Store, error)

var registry = map[string]Constructor{}

// Register adds a backend constructor under the given name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Open constructs the named backend.
func Open(name, dsn string) (Store, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown store backend: %s: %w", name, model.ErrConfiguration)
	}
	return ctor(dsn)
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode serialises a record. Equal records encode to identical bytes.
func Encode(rec model.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("store: encode %s: %w: %w", rec.Result.IssueID, model.ErrPersistence, err)
	}
	return data, nil
}

// Decode parses a record produced by Encode.
func Decode(data []byte) (model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Record{}, fmt.Errorf("store: decode: %w: %w", model.ErrPersistence, err)
	}
	return rec, nil
}

// Assign applies a manual match assignment to rec.
func Assign(rec *model.Record, c model.MatchCandidate) {
	rec.Result.BestMatches = []model.MatchCandidate{c}
}

// NotFound builds the error returned for unknown issue ids.
func NotFound(issueID string) error {
	return fmt.Errorf("store: issue %s: %w", issueID, model.ErrNotFound)
}

// Failed wraps a backend error as a persistence failure.
func Failed(op string, err error) error {
	return fmt.Errorf("store: %s: %w: %w", op, model.ErrPersistence, err)
}

// SortByIssueID orders records by issue id in place.
func SortByIssueID(recs []model.Record) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Result.IssueID < recs[j].Result.IssueID
	})
}
