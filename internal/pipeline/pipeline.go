// Package pipeline runs reconciliation passes: every issue from the source is
// classified against the current taxonomy and upserted into the result store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/triage/internal/engine"
	"github.com/crimson-sun/triage/internal/engine/taxonomy"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/output"
	"github.com/crimson-sun/triage/internal/source"
	"github.com/crimson-sun/triage/internal/store"
)

// Options tunes a Reconciler.
type Options struct {
	// Workers is the number of issues processed concurrently. Default: 1.
	Workers int

	// FailFast aborts the pass on the first issue failure.
	FailFast bool

	// Resume skips issues whose stored fingerprint matches the current inputs.
	Resume bool

	// OnProgress is called each time the processed count advances, in order.
	OnProgress func(Progress)
}

// Progress describes how far a pass has got.
type Progress struct {
	Done    int
	Total   int
	Percent int
}

// IssueFailure records why one issue could not be reconciled.
type IssueFailure struct {
	IssueID string `json:"issue_id"`
	Reason  string `json:"reason"`
	Err     error  `json:"-"`
}

// Report is the outcome of one pass. Results holds the successfully
// reconciled (or reused) results in input order.
type Report struct {
	RunID     string              `json:"run_id"`
	Results   []model.MatchResult `json:"results"`
	Progress  int                 `json:"progress"`
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Skipped   int                 `json:"skipped"`
	Failed    []IssueFailure      `json:"failed"`
	Duration  time.Duration       `json:"-"`
}

// Reconciler wires a source, engine, store and optional output sink.
type Reconciler struct {
	src   source.Source
	eng   *engine.Engine
	store store.Store
	out   output.Output
	opts  Options
}

// New creates a Reconciler. out may be nil.
func New(src source.Source, eng *engine.Engine, st store.Store, out output.Output, opts Options) *Reconciler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Reconciler{src: src, eng: eng, store: st, out: out, opts: opts}
}

// Reconcile runs one full pass.
//
// Fetch and taxonomy preparation failures abort the pass before any issue is
// touched. Per-issue failures are recorded in the report and the pass
// continues, unless FailFast is set. When ctx is cancelled no further issues
// are started and the partial report is returned with ctx.Err().
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Results: []model.MatchResult{}}
	log := slog.With("run", report.RunID)

	root, err := r.src.Taxonomy(ctx)
	if err != nil {
		return nil, fatal("fetch taxonomy", err)
	}
	issues, err := r.src.Issues(ctx)
	if err != nil {
		return nil, fatal("fetch issues", err)
	}
	report.Total = len(issues)

	if len(issues) == 0 {
		if err := taxonomy.Validate(root); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		log.Info("reconcile: no issues")
		report.Duration = time.Since(start)
		return report, nil
	}

	pass, err := r.eng.Prepare(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("pipeline: prepare taxonomy: %w", err)
	}
	log.Info("reconcile started", "issues", len(issues), "leaves", pass.Index.Len(), "workers", r.opts.Workers, "resume", r.opts.Resume)

	slots := make([]*model.MatchResult, len(issues))
	failures := make([]*IssueFailure, len(issues))
	tracker := newTracker(len(issues), r.opts.OnProgress)
	var skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, issue := range issues {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, reused, err := r.reconcileOne(gctx, pass, issue)
			if err != nil {
				if gctx.Err() != nil {
					return nil // pass is stopping; the issue counts as not started
				}
				failures[i] = &IssueFailure{IssueID: issue.ID, Reason: err.Error(), Err: err}
				log.Warn("issue failed", "issue", issue.ID, "error", err)
				tracker.advance()
				if r.opts.FailFast {
					return err
				}
				return nil
			}
			if reused {
				skipped.Add(1)
			}
			slots[i] = &res
			tracker.advance()
			return nil
		})
	}
	waitErr := g.Wait()

	for i := range issues {
		if slots[i] != nil {
			report.Results = append(report.Results, *slots[i])
		}
		if failures[i] != nil {
			report.Failed = append(report.Failed, *failures[i])
		}
	}
	report.Skipped = int(skipped.Load())
	report.Succeeded = len(report.Results) - report.Skipped
	report.Progress = tracker.percent()
	report.Duration = time.Since(start)

	attrs := []any{
		"succeeded", report.Succeeded, "skipped", report.Skipped, "failed", len(report.Failed),
		"progress", report.Progress, "duration", report.Duration.Round(time.Millisecond),
	}
	switch {
	case waitErr != nil:
		log.Error("reconcile aborted", append(attrs, "error", waitErr)...)
		return report, fmt.Errorf("pipeline: %w", waitErr)
	case ctx.Err() != nil:
		log.Warn("reconcile cancelled", attrs...)
		return report, ctx.Err()
	}
	log.Info("reconcile finished", attrs...)
	return report, nil
}

// reconcileOne classifies and stores one issue. reused reports that the
// stored result was kept because its fingerprint still matches.
func (r *Reconciler) reconcileOne(ctx context.Context, pass *engine.Pass, issue model.Issue) (model.MatchResult, bool, error) {
	if issue.ID == "" {
		return model.MatchResult{}, false, fmt.Errorf("issue has no id: %w", model.ErrConfiguration)
	}
	fp := r.eng.Fingerprint(pass, issue)

	if r.opts.Resume {
		rec, err := r.store.Get(ctx, issue.ID)
		switch {
		case err == nil && rec.Fingerprint == fp:
			slog.Debug("issue unchanged, skipping", "issue", issue.ID)
			return rec.Result, true, nil
		case err != nil && !errors.Is(err, model.ErrNotFound):
			slog.Warn("resume lookup failed, reclassifying", "issue", issue.ID, "error", err)
		}
	}

	res, err := r.eng.Classify(ctx, pass, issue)
	if err != nil {
		return model.MatchResult{}, false, err
	}
	if err := r.store.Upsert(ctx, model.Record{Result: res, Fingerprint: fp}); err != nil {
		return model.MatchResult{}, false, err
	}
	if r.out != nil {
		if err := r.out.Write(ctx, res); err != nil {
			slog.Warn("output sink failed", "issue", issue.ID, "error", err)
		}
	}
	return res, false, nil
}

// fatal marks source failures as configuration errors.
func fatal(op string, err error) error {
	if errors.Is(err, model.ErrConfiguration) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("pipeline: %s: %w", op, err)
	}
	return fmt.Errorf("pipeline: %s: %w: %w", op, model.ErrConfiguration, err)
}

// Percent returns round(100*done/total), or 0 when there is no work.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*done + total) / (2 * total)
}

// tracker counts processed issues and emits progress in order.
type tracker struct {
	total int
	done  atomic.Int64
	fn    func(Progress)

	mu       sync.Mutex
	reported int
}

func newTracker(total int, fn func(Progress)) *tracker {
	return &tracker{total: total, fn: fn}
}

func (t *tracker) advance() {
	d := int(t.done.Add(1))
	if t.fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if d <= t.reported {
		return
	}
	t.reported = d
	t.fn(Progress{Done: d, Total: t.total, Percent: Percent(d, t.total)})
}

func (t *tracker) percent() int {
	return Percent(int(t.done.Load()), t.total)
}
