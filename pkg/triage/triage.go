package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/triage/internal/collab"
	"github.com/crimson-sun/triage/internal/config"
	"github.com/crimson-sun/triage/internal/engine"
	"github.com/crimson-sun/triage/internal/engine/embedder"
	"github.com/crimson-sun/triage/internal/engine/matcher"
	"github.com/crimson-sun/triage/internal/engine/summary"
	"github.com/crimson-sun/triage/internal/engine/taxonomy"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/output"
	"github.com/crimson-sun/triage/internal/output/async"
	"github.com/crimson-sun/triage/internal/output/file"
	"github.com/crimson-sun/triage/internal/output/meili"
	"github.com/crimson-sun/triage/internal/output/multi"
	"github.com/crimson-sun/triage/internal/output/s3"
	"github.com/crimson-sun/triage/internal/output/stdout"
	"github.com/crimson-sun/triage/internal/output/webhook"
	"github.com/crimson-sun/triage/internal/pipeline"
	"github.com/crimson-sun/triage/internal/source"
	"github.com/crimson-sun/triage/internal/store"

	// Register source providers and store backends.
	_ "github.com/crimson-sun/triage/internal/source/file"
	_ "github.com/crimson-sun/triage/internal/source/http"
	_ "github.com/crimson-sun/triage/internal/source/sqlite"
	_ "github.com/crimson-sun/triage/internal/store/memory"
	_ "github.com/crimson-sun/triage/internal/store/postgres"
	_ "github.com/crimson-sun/triage/internal/store/redis"
	_ "github.com/crimson-sun/triage/internal/store/sqlite"
)

// Triage ties an issue source, the matching engine, a result store and the
// configured output sinks together.
type Triage struct {
	cfg        config.Config
	source     source.Source
	embedder   embedder.Embedder
	engine     *engine.Engine
	store      store.Store
	output     output.Output
	reconciler *pipeline.Reconciler
}

// New builds a Triage instance. Loading a local ONNX model is expensive;
// create once and reuse.
func New(opts ...Option) (*Triage, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var cfg config.Config
	if o.cfg != nil {
		cfg = *o.cfg
	} else {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("triage: %w: %w", model.ErrConfiguration, err)
		}
		cfg = loaded
	}
	if o.threshold != nil {
		cfg.Matching.Threshold = *o.threshold
	}
	if o.topK > 0 {
		cfg.Matching.TopK = o.topK
	}
	if o.workers > 0 {
		cfg.Reconcile.Workers = o.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("triage: %w: %w", model.ErrConfiguration, err)
	}

	t := &Triage{cfg: cfg}
	if err := t.build(o); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func (t *Triage) build(o options) error {
	cfg := t.cfg
	transport := collab.Transport{
		Token:       cfg.Collab.Token,
		Timeout:     cfg.Collab.Timeout,
		Retries:     cfg.Collab.Retries,
		RateLimit:   cfg.Collab.RateLimit,
		Concurrency: cfg.Collab.Concurrency,
	}

	t.source = o.source
	if t.source == nil {
		src, err := source.Open(source.Config{
			Provider:     cfg.Source.Provider,
			TaxonomyPath: cfg.Source.TaxonomyPath,
			IssuesPath:   cfg.Source.IssuesPath,
			DSN:          cfg.Source.DSN,
			Endpoint:     cfg.Source.Endpoint,
			Token:        cfg.Source.Token,
		})
		if err != nil {
			return fmt.Errorf("triage: open source: %w", err)
		}
		t.source = src
	}

	t.embedder = o.embedder
	if t.embedder == nil {
		emb, err := newEmbedder(cfg.Embedder, transport)
		if err != nil {
			return fmt.Errorf("triage: %w", err)
		}
		t.embedder = emb
	}

	t.store = o.store
	if t.store == nil {
		st, err := store.Open(cfg.Store.Backend, cfg.Store.DSN)
		if err != nil {
			return fmt.Errorf("triage: open store: %w", err)
		}
		t.store = st
	}

	out, err := newOutput(cfg.Output)
	if err != nil {
		return fmt.Errorf("triage: %w", err)
	}
	t.output = out

	m := matcher.New(cfg.Matching.Threshold, cfg.Matching.TopK)
	t.engine = engine.New(t.embedder, m, newSummarizer(cfg, transport, o.answerer, o.ner))
	t.reconciler = pipeline.New(t.source, t.engine, t.store, t.output, pipeline.Options{
		Workers:    cfg.Reconcile.Workers,
		FailFast:   cfg.Reconcile.FailFast,
		Resume:     cfg.Reconcile.Resume,
		OnProgress: o.onProgress,
	})
	return nil
}

func newEmbedder(cfg config.EmbedderConfig, transport collab.Transport) (embedder.Embedder, error) {
	if cfg.Provider == "http" {
		return collab.NewHTTPEmbedder(cfg.Endpoint, transport), nil
	}
	return embedder.New(embedder.Config{
		ModelPath:      cfg.ModelPath,
		VocabPath:      cfg.VocabPath,
		ProjectionPath: cfg.ProjectionPath,
		LibraryPath:    cfg.LibraryPath,
		Normalize:      true,
	})
}

// newSummarizer returns nil when question answering is disabled.
func newSummarizer(cfg config.Config, transport collab.Transport, qa Answerer, ner EntityDetector) *summary.Summarizer {
	if qa == nil {
		switch cfg.Collab.QA {
		case "http":
			qa = collab.NewHTTPAnswerer(cfg.Collab.QAEndpoint, transport)
		case "anthropic":
			qa = collab.NewAnthropicAnswerer(cfg.Collab.AnthropicAPIKey, cfg.Collab.AnthropicModel)
		default:
			return nil
		}
	}
	if ner == nil && cfg.Collab.NEREndpoint != "" {
		ner = collab.NewHTTPEntityDetector(cfg.Collab.NEREndpoint, transport)
	}
	s := summary.New(qa, ner)
	s.PersonThreshold = cfg.Matching.PersonThreshold
	s.RedactThreshold = cfg.Matching.RedactThreshold
	return s
}

// newOutput builds the configured sinks. Network sinks are wrapped in async
// so reconciler workers never wait on them. It returns nil when no sink is
// configured.
func newOutput(cfg config.OutputConfig) (output.Output, error) {
	if len(cfg.Sinks) == 0 {
		return nil, nil
	}
	verbosity, err := output.ParseVerbosity(cfg.Verbosity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}

	var outs []output.Output
	fail := func(err error) (output.Output, error) {
		multi.New(outs...).Close()
		return nil, err
	}
	for _, sink := range cfg.Sinks {
		switch sink {
		case "stdout":
			outs = append(outs, stdout.New(verbosity, cfg.Pretty))
		case "file":
			f, err := file.New(cfg.FilePath, verbosity)
			if err != nil {
				return fail(err)
			}
			outs = append(outs, f)
		case "webhook":
			var opts []webhook.Option
			if cfg.WebhookToken != "" {
				opts = append(opts, webhook.WithToken(cfg.WebhookToken))
			}
			outs = append(outs, async.New(webhook.New(cfg.WebhookURL, verbosity, opts...)))
		case "meili":
			outs = append(outs, async.New(meili.New(cfg.MeiliURL, cfg.MeiliKey, cfg.MeiliIndex)))
		case "s3":
			o, err := s3.New(s3.Config{
				Endpoint:  cfg.S3Endpoint,
				Bucket:    cfg.S3Bucket,
				AccessKey: cfg.S3AccessKey,
				SecretKey: cfg.S3SecretKey,
				Region:    cfg.S3Region,
				Secure:    cfg.S3Secure,
				Prefix:    cfg.S3Prefix,
			}, "", verbosity)
			if err != nil {
				return fail(err)
			}
			outs = append(outs, o)
		default:
			return fail(fmt.Errorf("unknown output sink %q: %w", sink, model.ErrConfiguration))
		}
	}
	return multi.New(outs...), nil
}

// Reconcile runs one reconciliation pass over every issue in the source.
// On cancellation or fail-fast abort the partial report is returned with
// the error.
func (t *Triage) Reconcile(ctx context.Context) (*Report, error) {
	return t.reconciler.Reconcile(ctx)
}

// MatchSingle classifies the issue with the given id against the current
// taxonomy without storing the result.
func (t *Triage) MatchSingle(ctx context.Context, issueID string) (Result, error) {
	issue, err := source.FindIssue(ctx, t.source, issueID)
	if err != nil {
		return Result{}, fmt.Errorf("triage: %w", err)
	}
	return t.MatchIssue(ctx, issue)
}

// MatchIssue classifies an issue that need not exist in the source.
func (t *Triage) MatchIssue(ctx context.Context, issue Issue) (Result, error) {
	root, err := t.taxonomy(ctx)
	if err != nil {
		return Result{}, err
	}
	return t.engine.MatchSingle(ctx, issue, root)
}

// LeafPaths returns the rendered path of every leaf in the current
// taxonomy, in depth-first order.
func (t *Triage) LeafPaths(ctx context.Context) ([]string, error) {
	root, err := t.taxonomy(ctx)
	if err != nil {
		return nil, err
	}
	if err := taxonomy.Validate(root); err != nil {
		return nil, err
	}
	paths := taxonomy.LeafPaths(root)
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out, nil
}

// Result returns the stored result for one issue.
func (t *Triage) Result(ctx context.Context, issueID string) (Result, error) {
	rec, err := t.store.Get(ctx, issueID)
	if err != nil {
		return Result{}, err
	}
	return rec.Result, nil
}

// Results returns every stored result ordered by issue id.
func (t *Triage) Results(ctx context.Context) ([]Result, error) {
	recs, err := t.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return results(recs), nil
}

// Unmatched returns the stored results of issues that had no text to
// classify, ordered by issue id.
func (t *Triage) Unmatched(ctx context.Context) ([]Result, error) {
	recs, err := t.store.ListUnmatched(ctx)
	if err != nil {
		return nil, err
	}
	return results(recs), nil
}

// Assign records a reviewer's choice of leaf for a stored issue. path must
// be a leaf path of the current taxonomy.
func (t *Triage) Assign(ctx context.Context, issueID, path string, score float64) error {
	root, err := t.taxonomy(ctx)
	if err != nil {
		return err
	}
	if !taxonomy.HasPath(root, path) {
		return fmt.Errorf("triage: %q is not a leaf path of the current taxonomy: %w", path, model.ErrNotFound)
	}
	return t.store.AssignMatch(ctx, issueID, Match{Path: path, SimilarityScore: score})
}

// Ask answers a question about an issue from its comments, falling back to
// the stored ticket summary. Person names are redacted from the answer.
func (t *Triage) Ask(ctx context.Context, issueID, question string) (string, error) {
	issue, err := source.FindIssue(ctx, t.source, issueID)
	if err != nil {
		return "", fmt.Errorf("triage: %w", err)
	}
	ticketSummary := summary.TicketSummary(issue, nil)
	rec, err := t.store.Get(ctx, issueID)
	switch {
	case err == nil:
		ticketSummary = rec.Result.TicketSummary
	case !errors.Is(err, model.ErrNotFound):
		return "", err
	}
	return t.engine.Ask(ctx, issue, ticketSummary, question)
}

// Close flushes the output sinks and releases the store, source and
// embedder.
func (t *Triage) Close() error {
	var errs []error
	if t.output != nil {
		errs = append(errs, t.output.Close())
	}
	if t.store != nil {
		errs = append(errs, t.store.Close())
	}
	if t.source != nil {
		errs = append(errs, t.source.Close())
	}
	if t.embedder != nil {
		errs = append(errs, t.embedder.Close())
	}
	return errors.Join(errs...)
}

func (t *Triage) taxonomy(ctx context.Context) (*model.TaxonomyNode, error) {
	root, err := t.source.Taxonomy(ctx)
	if err != nil {
		return nil, fmt.Errorf("triage: fetch taxonomy: %w", err)
	}
	return root, nil
}

func results(recs []model.Record) []Result {
	out := make([]Result, len(recs))
	for i, rec := range recs {
		out[i] = rec.Result
	}
	return out
}
