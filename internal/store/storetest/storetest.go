// Package storetest is a conformance suite shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/store"
)

// Run exercises a backend. open must return an empty store; the suite closes it.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"GetMissing", testGetMissing},
		{"UpsertGet", testUpsertGet},
		{"UpsertReplaces", testUpsertReplaces},
		{"ListOrdered", testListOrdered},
		{"ListUnmatched", testListUnmatched},
		{"AssignMatch", testAssignMatch},
		{"AssignMissing", testAssignMissing},
		{"ConcurrentUpserts", testConcurrentUpserts},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			tc.fn(t, s)
		})
	}
}

func str(s string) *string { return &s }

// Classified builds a record with one best match.
func Classified(id string) model.Record {
	return model.Record{
		Result: model.MatchResult{
			IssueID:            id,
			BestMatches:        []model.MatchCandidate{{Path: "Support -> Authentication -> Login failure", SimilarityScore: 0.75}},
			TicketSummary:      "Ticket ID: " + id,
			DescriptionSummary: str("users cannot log in"),
		},
		Fingerprint: "fp-" + id,
	}
}

// Unclassified builds a record for an issue that had no text.
func Unclassified(id string) model.Record {
	return model.Record{
		Result:      model.MatchResult{IssueID: id, TicketSummary: "Ticket ID: " + id},
		Fingerprint: "fp-" + id,
	}
}

func ids(recs []model.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Result.IssueID
	}
	return out
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.Get(context.Background(), "NOPE-1")
	assert.True(t, errors.Is(err, model.ErrNotFound), "got %v", err)
}

func testUpsertGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	want := Classified("A-1")
	require.NoError(t, s.Upsert(ctx, want))

	got, err := s.Get(ctx, "A-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Nil(t, got.Result.CommentsSummary)
}

func testUpsertReplaces(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, Classified("A-1")))
	require.NoError(t, s.Upsert(ctx, Unclassified("A-1")))

	got, err := s.Get(ctx, "A-1")
	require.NoError(t, err)
	assert.Nil(t, got.Result.BestMatches)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-1"}, ids(all))

	unmatched, err := s.ListUnmatched(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-1"}, ids(unmatched))
}

func testListOrdered(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, id := range []string{"C-3", "A-1", "B-2"} {
		require.NoError(t, s.Upsert(ctx, Classified(id)))
	}
	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-1", "B-2", "C-3"}, ids(all))
}

func testListUnmatched(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, Classified("A-1")))
	require.NoError(t, s.Upsert(ctx, Unclassified("B-2")))

	// classified but below threshold still counts as matched
	empty := Classified("C-3")
	empty.Result.BestMatches = []model.MatchCandidate{}
	require.NoError(t, s.Upsert(ctx, empty))

	unmatched, err := s.ListUnmatched(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B-2"}, ids(unmatched))

	got, err := s.Get(ctx, "C-3")
	require.NoError(t, err)
	assert.NotNil(t, got.Result.BestMatches)
	assert.Empty(t, got.Result.BestMatches)
}

func testAssignMatch(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, Unclassified("B-2")))

	pick := model.MatchCandidate{Path: "Support -> Billing -> Refund request", SimilarityScore: 1}
	require.NoError(t, s.AssignMatch(ctx, "B-2", pick))

	got, err := s.Get(ctx, "B-2")
	require.NoError(t, err)
	assert.Equal(t, []model.MatchCandidate{pick}, got.Result.BestMatches)
	assert.Equal(t, "fp-B-2", got.Fingerprint)
	assert.Equal(t, "Ticket ID: B-2", got.Result.TicketSummary)

	unmatched, err := s.ListUnmatched(ctx)
	require.NoError(t, err)
	assert.Empty(t, unmatched)
}

func testAssignMissing(t *testing.T, s store.Store) {
	err := s.AssignMatch(context.Background(), "NOPE-1", model.MatchCandidate{Path: "X"})
	assert.True(t, errors.Is(err, model.ErrNotFound), "got %v", err)
}

func testConcurrentUpserts(t *testing.T, s store.Store) {
	ctx := context.Background()
	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Upsert(ctx, Classified(fmt.Sprintf("P-%02d", i)))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)
	assert.Equal(t, "P-00", all[0].Result.IssueID)
}
