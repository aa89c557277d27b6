package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/triage/internal/collab/httpclient"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/output"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
	defaultRetries       = 3
)

// Option configures a webhook Output.
type Option func(*Output)

// WithToken sends "Authorization: Bearer <token>" with every POST.
func WithToken(token string) Option {
	return func(o *Output) { o.token = token }
}

// WithBatchSize sets the number of results accumulated before a flush. Default: 50.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithFlushInterval sets the maximum time between flushes. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithRetry sets the retry count and first backoff for 429 and 5xx responses.
func WithRetry(n int, backoff time.Duration) Option {
	return func(o *Output) {
		o.retries = n
		o.backoff = backoff
	}
}

// WithOnError sets a callback invoked when a timer-triggered flush fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// Output POSTs batches of results to a URL as a JSON array. A batch is sent
// when batchSize is reached, when flushInterval elapses after its first
// result, or on Close.
type Output struct {
	client        *httpclient.Client
	url           string
	token         string
	verbosity     output.Verbosity
	batchSize     int
	flushInterval time.Duration
	retries       int
	backoff       time.Duration
	errFunc       func(error)

	mu      sync.Mutex
	pending []output.Result
	timer   *time.Timer
}

func New(url string, verbosity output.Verbosity, opts ...Option) *Output {
	o := &Output{
		url:           url,
		verbosity:     verbosity,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		retries:       defaultRetries,
		backoff:       time.Second,
		errFunc:       func(err error) { slog.Warn("webhook flush error", "error", err) },
	}
	for _, opt := range opts {
		opt(o)
	}
	o.client = httpclient.New(url, o.token,
		httpclient.WithTimeout(defaultTimeout),
		httpclient.WithRetries(o.retries),
		httpclient.WithBackoff(o.backoff),
	)
	return o
}

func (o *Output) Write(ctx context.Context, result model.MatchResult) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, output.Format(result, o.verbosity))
	if len(o.pending) >= o.batchSize {
		return o.flushLocked(ctx)
	}

	if len(o.pending) == 1 {
		o.timer = time.AfterFunc(o.flushInterval, func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if err := o.flushLocked(context.Background()); err != nil {
				o.errFunc(err)
			}
		})
	}
	return nil
}

// Close flushes any pending results and stops the timer.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flushLocked(context.Background())
}

// flushLocked sends the pending batch. Caller must hold o.mu.
func (o *Output) flushLocked(ctx context.Context) error {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if len(o.pending) == 0 {
		return nil
	}
	batch := o.pending
	o.pending = nil

	if err := o.client.PostJSON(ctx, "", batch, nil); err != nil {
		return fmt.Errorf("webhook: post %d results to %s: %w", len(batch), o.url, err)
	}
	return nil
}
