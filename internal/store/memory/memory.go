// Package memory is an in-process Store, used for dry runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/store"
)

func init() {
	store.Register("memory", func(string) (store.Store, error) {
		return New(), nil
	})
}

// Store keeps encoded records in a map so callers never share mutable state
// with the store.
type Store struct {
	mu   sync.RWMutex
	recs map[string][]byte
}

func New() *Store {
	return &Store{recs: make(map[string][]byte)}
}

func (s *Store) Upsert(_ context.Context, rec model.Record) error {
	data, err := store.Encode(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.recs[rec.Result.IssueID] = data
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(_ context.Context, issueID string) (model.Record, error) {
	s.mu.RLock()
	data, ok := s.recs[issueID]
	s.mu.RUnlock()
	if !ok {
		return model.Record{}, store.NotFound(issueID)
	}
	return store.Decode(data)
}

func (s *Store) List(ctx context.Context) ([]model.Record, error) {
	return s.filter(func(model.Record) bool { return true })
}

func (s *Store) ListUnmatched(ctx context.Context) ([]model.Record, error) {
	return s.filter(func(r model.Record) bool { return !r.Result.Classified() })
}

func (s *Store) AssignMatch(_ context.Context, issueID string, c model.MatchCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.recs[issueID]
	if !ok {
		return store.NotFound(issueID)
	}
	rec, err := store.Decode(data)
	if err != nil {
		return err
	}
	store.Assign(&rec, c)
	if data, err = store.Encode(rec); err != nil {
		return err
	}
	s.recs[issueID] = data
	return nil
}

// Raw returns the stored bytes for issueID.
func (s *Store) Raw(issueID string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.recs[issueID]...)
}

func (s *Store) Close() error { return nil }

func (s *Store) filter(keep func(model.Record) bool) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Record, 0, len(s.recs))
	for _, data := range s.recs {
		rec, err := store.Decode(data)
		if err != nil {
			return nil, err
		}
		if keep(rec) {
			out = append(out, rec)
		}
	}
	store.SortByIssueID(out)
	return out, nil
}
