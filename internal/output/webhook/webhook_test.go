package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crimson-sun/triage/internal/collab/httpclient"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/output"
)

func testResult(id string) model.MatchResult {
	return model.MatchResult{
		IssueID:     id,
		BestMatches: []model.MatchCandidate{{Path: "Support -> Performance", SimilarityScore: 0.6}},
	}
}

type recorder struct {
	mu       sync.Mutex
	batches  [][]output.Result
	auth     string
	srv      *httptest.Server
	statuses []int // served in order, then 200
	calls    atomic.Int64
}

func newRecorder(t *testing.T, statuses ...int) *recorder {
	rec := &recorder{statuses: statuses}
	rec.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(rec.calls.Add(1))
		if n <= len(rec.statuses) {
			w.WriteHeader(rec.statuses[n-1])
			return
		}
		body, _ := io.ReadAll(r.Body)
		var batch []output.Result
		json.Unmarshal(body, &batch)
		rec.mu.Lock()
		rec.batches = append(rec.batches, batch)
		rec.auth = r.Header.Get("Authorization")
		rec.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(rec.srv.Close)
	return rec
}

func (r *recorder) snapshot() [][]output.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]output.Result(nil), r.batches...)
}

func TestBatchFlushAtBatchSize(t *testing.T) {
	rec := newRecorder(t)
	out := New(rec.srv.URL, output.Full, WithBatchSize(3), WithFlushInterval(10*time.Second))

	for _, id := range []string{"P-1", "P-2", "P-3"} {
		if err := out.Write(context.Background(), testResult(id)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(got))
	}
	if len(got[0]) != 3 || got[0][2].IssueID != "P-3" {
		t.Errorf("batch = %+v", got[0])
	}
}

func TestTimerFlushBeforeBatchSize(t *testing.T) {
	rec := newRecorder(t)
	out := New(rec.srv.URL, output.Full, WithBatchSize(100), WithFlushInterval(100*time.Millisecond))

	out.Write(context.Background(), testResult("P-1"))
	time.Sleep(300 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 || len(got[0]) != 1 {
		t.Fatalf("expected 1 timer-triggered batch of 1, got %v", got)
	}
}

func TestRetryOn5xx(t *testing.T) {
	rec := newRecorder(t, 500, 503)
	out := New(rec.srv.URL, output.Full, WithBatchSize(1), WithRetry(3, 10*time.Millisecond))

	if err := out.Write(context.Background(), testResult("P-1")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if rec.calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", rec.calls.Load())
	}
	if len(rec.snapshot()) != 1 {
		t.Error("expected the batch to be delivered after retries")
	}
}

func TestNoRetryOn4xx(t *testing.T) {
	rec := newRecorder(t, 400)
	out := New(rec.srv.URL, output.Full, WithBatchSize(1), WithRetry(3, 10*time.Millisecond))

	err := out.Write(context.Background(), testResult("P-1"))
	var apiErr *httpclient.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 400 {
		t.Fatalf("expected APIError 400, got %v", err)
	}
	if rec.calls.Load() != 1 {
		t.Errorf("expected exactly 1 attempt for 4xx, got %d", rec.calls.Load())
	}
}

func TestBearerToken(t *testing.T) {
	rec := newRecorder(t)
	out := New(rec.srv.URL, output.Full, WithBatchSize(1), WithToken("secret123"))

	out.Write(context.Background(), testResult("P-1"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.auth != "Bearer secret123" {
		t.Errorf("Authorization = %q", rec.auth)
	}
}

func TestTimerFlushErrorCallbackInvoked(t *testing.T) {
	rec := newRecorder(t, 400)
	var errCount atomic.Int64
	out := New(rec.srv.URL, output.Full,
		WithBatchSize(100),
		WithFlushInterval(50*time.Millisecond),
		WithOnError(func(error) { errCount.Add(1) }),
	)

	out.Write(context.Background(), testResult("P-1"))
	time.Sleep(300 * time.Millisecond)

	if errCount.Load() != 1 {
		t.Errorf("expected error callback called 1 time, got %d", errCount.Load())
	}
	out.Close()
}

func TestCloseFlushesRemaining(t *testing.T) {
	rec := newRecorder(t)
	out := New(rec.srv.URL, output.Minimal, WithBatchSize(100), WithFlushInterval(10*time.Second))

	out.Write(context.Background(), testResult("P-1"))
	out.Write(context.Background(), testResult("P-2"))
	if err := out.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	got := rec.snapshot()
	if len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("expected 1 batch of 2 on Close, got %v", got)
	}
}
