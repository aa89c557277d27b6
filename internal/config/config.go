// Package config loads triage settings from TRIAGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all triage configuration.
type Config struct {
	Source    SourceConfig
	Embedder  EmbedderConfig
	Collab    CollabConfig
	Matching  MatchingConfig
	Reconcile ReconcileConfig
	Store     StoreConfig
	Output    OutputConfig
	Log       LogConfig
}

// SourceConfig selects where the taxonomy and issues come from.
type SourceConfig struct {
	Provider     string // file, sqlite, http
	TaxonomyPath string
	IssuesPath   string
	DSN          string
	Endpoint     string
	Token        string
}

// EmbedderConfig selects the embedding collaborator.
type EmbedderConfig struct {
	Provider       string // onnx, http
	ModelPath      string
	VocabPath      string
	ProjectionPath string
	LibraryPath    string
	Endpoint       string
}

// CollabConfig covers the QA and NER collaborators and the HTTP transport
// shared by every HTTP collaborator.
type CollabConfig struct {
	QA              string // http, anthropic, none
	QAEndpoint      string
	NEREndpoint     string
	AnthropicModel  string
	AnthropicAPIKey string

	Token       string
	RateLimit   float64
	Concurrency int
	Timeout     time.Duration
	Retries     int
}

// MatchingConfig holds ranking and screening thresholds.
type MatchingConfig struct {
	Threshold       float64
	TopK            int
	PersonThreshold float64
	RedactThreshold float64
}

// ReconcileConfig tunes batch passes.
type ReconcileConfig struct {
	Workers  int
	FailFast bool
	Resume   bool
}

// StoreConfig selects the match result store.
type StoreConfig struct {
	Backend string // sqlite, postgres, redis, memory
	DSN     string
}

// OutputConfig lists the result sinks and their settings.
type OutputConfig struct {
	Sinks        []string // stdout, file, webhook, meili, s3
	Verbosity    string   // minimal, full
	FilePath     string
	Pretty       bool
	WebhookURL   string
	WebhookToken string
	MeiliURL     string
	MeiliKey     string
	MeiliIndex   string
	S3Endpoint   string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Region     string
	S3Prefix     string
	S3Secure     bool
}

// LogConfig controls slog initialisation.
type LogConfig struct {
	Level  string
	Format string // text, json
}

// Load reads configuration from the environment, applies defaults and
// validates the result. Malformed numbers and booleans are errors.
func Load() (Config, error) {
	e := &env{}
	cfg := Config{
		Source: SourceConfig{
			Provider:     e.str("TRIAGE_SOURCE", "file"),
			TaxonomyPath: e.str("TRIAGE_TAXONOMY_PATH", "taxonomy.yaml"),
			IssuesPath:   e.str("TRIAGE_ISSUES_PATH", "issues.yaml"),
			DSN:          e.str("TRIAGE_SOURCE_DSN", ""),
			Endpoint:     e.str("TRIAGE_SOURCE_ENDPOINT", ""),
			Token:        e.str("TRIAGE_SOURCE_TOKEN", ""),
		},
		Embedder: EmbedderConfig{
			Provider:       e.str("TRIAGE_EMBEDDER", "onnx"),
			ModelPath:      e.str("TRIAGE_MODEL_PATH", "models/model_quantized.onnx"),
			VocabPath:      e.str("TRIAGE_VOCAB_PATH", "models/vocab.txt"),
			ProjectionPath: e.str("TRIAGE_PROJECTION_PATH", ""),
			LibraryPath:    e.str("TRIAGE_ONNX_LIBRARY", ""),
			Endpoint:       e.str("TRIAGE_EMBED_ENDPOINT", ""),
		},
		Collab: CollabConfig{
			QA:              e.str("TRIAGE_QA", "none"),
			QAEndpoint:      e.str("TRIAGE_QA_ENDPOINT", ""),
			NEREndpoint:     e.str("TRIAGE_NER_ENDPOINT", ""),
			AnthropicModel:  e.str("TRIAGE_ANTHROPIC_MODEL", ""),
			AnthropicAPIKey: e.str("ANTHROPIC_API_KEY", ""),
			Token:           e.str("TRIAGE_COLLAB_TOKEN", ""),
			RateLimit:       e.number("TRIAGE_COLLAB_RPS", 0),
			Concurrency:     e.integer("TRIAGE_COLLAB_CONCURRENCY", 4),
			Timeout:         e.duration("TRIAGE_COLLAB_TIMEOUT", 30*time.Second),
			Retries:         e.integer("TRIAGE_COLLAB_RETRIES", 3),
		},
		Matching: MatchingConfig{
			Threshold:       e.number("TRIAGE_THRESHOLD", 0.5),
			TopK:            e.integer("TRIAGE_TOP_K", 3),
			PersonThreshold: e.number("TRIAGE_PERSON_THRESHOLD", 0.3),
			RedactThreshold: e.number("TRIAGE_REDACT_THRESHOLD", 0.7),
		},
		Reconcile: ReconcileConfig{
			Workers:  e.integer("TRIAGE_WORKERS", 1),
			FailFast: e.flag("TRIAGE_FAIL_FAST", false),
			Resume:   e.flag("TRIAGE_RESUME", false),
		},
		Store: StoreConfig{
			Backend: e.str("TRIAGE_STORE", "sqlite"),
			DSN:     e.str("TRIAGE_STORE_DSN", "triage.db"),
		},
		Output: OutputConfig{
			Sinks:        e.list("TRIAGE_OUTPUT"),
			Verbosity:    e.str("TRIAGE_OUTPUT_VERBOSITY", "full"),
			FilePath:     e.str("TRIAGE_OUTPUT_FILE", "triage-results.jsonl"),
			Pretty:       e.flag("TRIAGE_OUTPUT_PRETTY", false),
			WebhookURL:   e.str("TRIAGE_WEBHOOK_URL", ""),
			WebhookToken: e.str("TRIAGE_WEBHOOK_TOKEN", ""),
			MeiliURL:     e.str("TRIAGE_MEILI_URL", ""),
			MeiliKey:     e.str("TRIAGE_MEILI_KEY", ""),
			MeiliIndex:   e.str("TRIAGE_MEILI_INDEX", "triage_results"),
			S3Endpoint:   e.str("TRIAGE_S3_ENDPOINT", ""),
			S3Bucket:     e.str("TRIAGE_S3_BUCKET", ""),
			S3AccessKey:  e.str("TRIAGE_S3_ACCESS_KEY", ""),
			S3SecretKey:  e.str("TRIAGE_S3_SECRET_KEY", ""),
			S3Region:     e.str("TRIAGE_S3_REGION", ""),
			S3Prefix:     e.str("TRIAGE_S3_PREFIX", ""),
			S3Secure:     e.flag("TRIAGE_S3_SECURE", true),
		},
		Log: LogConfig{
			Level:  e.str("TRIAGE_LOG_LEVEL", "info"),
			Format: e.str("TRIAGE_LOG_FORMAT", "text"),
		},
	}
	if err := errors.Join(e.errs...); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.Embedder.Provider == "onnx" {
		if err := cfg.Embedder.checkFiles(); err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
	}
	return cfg, nil
}

// checkFiles verifies that the local model files exist.
func (c EmbedderConfig) checkFiles() error {
	var errs []error
	for _, f := range []struct{ key, path string }{
		{"TRIAGE_MODEL_PATH", c.ModelPath},
		{"TRIAGE_VOCAB_PATH", c.VocabPath},
		{"TRIAGE_PROJECTION_PATH", c.ProjectionPath},
	} {
		if f.path == "" && f.key == "TRIAGE_PROJECTION_PATH" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %s not found", f.key, f.path))
		}
	}
	return errors.Join(errs...)
}

// Validate checks ranges, enums and that every selected provider has the
// settings it needs. All problems are reported together.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	oneOf(&errs, "TRIAGE_SOURCE", c.Source.Provider, "file", "sqlite", "http")
	switch c.Source.Provider {
	case "sqlite":
		if c.Source.DSN == "" {
			add("TRIAGE_SOURCE_DSN is required for the sqlite source")
		}
	case "http":
		if c.Source.Endpoint == "" {
			add("TRIAGE_SOURCE_ENDPOINT is required for the http source")
		}
	}

	oneOf(&errs, "TRIAGE_EMBEDDER", c.Embedder.Provider, "onnx", "http")
	if c.Embedder.Provider == "http" && c.Embedder.Endpoint == "" {
		add("TRIAGE_EMBED_ENDPOINT is required for the http embedder")
	}

	oneOf(&errs, "TRIAGE_QA", c.Collab.QA, "http", "anthropic", "none")
	switch c.Collab.QA {
	case "http":
		if c.Collab.QAEndpoint == "" {
			add("TRIAGE_QA_ENDPOINT is required for the http answerer (or set TRIAGE_QA=none)")
		}
	case "anthropic":
		if c.Collab.AnthropicAPIKey == "" {
			add("ANTHROPIC_API_KEY is required for the anthropic answerer")
		}
	}
	if c.Collab.RateLimit < 0 {
		add("TRIAGE_COLLAB_RPS must be non-negative, got %v", c.Collab.RateLimit)
	}
	if c.Collab.Concurrency < 0 {
		add("TRIAGE_COLLAB_CONCURRENCY must be non-negative, got %d", c.Collab.Concurrency)
	}
	if c.Collab.Retries < 0 {
		add("TRIAGE_COLLAB_RETRIES must be non-negative, got %d", c.Collab.Retries)
	}
	if c.Collab.Timeout <= 0 {
		add("TRIAGE_COLLAB_TIMEOUT must be positive, got %v", c.Collab.Timeout)
	}

	if math.IsNaN(c.Matching.Threshold) || c.Matching.Threshold < -1 || c.Matching.Threshold > 1 {
		add("TRIAGE_THRESHOLD must be within [-1, 1], got %v", c.Matching.Threshold)
	}
	if c.Matching.TopK < 1 {
		add("TRIAGE_TOP_K must be at least 1, got %d", c.Matching.TopK)
	}
	for _, f := range []struct {
		key string
		v   float64
	}{
		{"TRIAGE_PERSON_THRESHOLD", c.Matching.PersonThreshold},
		{"TRIAGE_REDACT_THRESHOLD", c.Matching.RedactThreshold},
	} {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 1 {
			add("%s must be within [0, 1], got %v", f.key, f.v)
		}
	}

	if c.Reconcile.Workers < 1 {
		add("TRIAGE_WORKERS must be at least 1, got %d", c.Reconcile.Workers)
	}

	oneOf(&errs, "TRIAGE_STORE", c.Store.Backend, "sqlite", "postgres", "redis", "memory")
	if c.Store.Backend != "memory" && c.Store.DSN == "" {
		add("TRIAGE_STORE_DSN is required for the %s store", c.Store.Backend)
	}

	oneOf(&errs, "TRIAGE_OUTPUT_VERBOSITY", c.Output.Verbosity, "minimal", "full")
	for _, sink := range c.Output.Sinks {
		switch sink {
		case "stdout":
		case "file":
			if c.Output.FilePath == "" {
				add("TRIAGE_OUTPUT_FILE is required for the file sink")
			}
		case "webhook":
			if c.Output.WebhookURL == "" {
				add("TRIAGE_WEBHOOK_URL is required for the webhook sink")
			}
		case "meili":
			if c.Output.MeiliURL == "" {
				add("TRIAGE_MEILI_URL is required for the meili sink")
			}
		case "s3":
			if c.Output.S3Endpoint == "" || c.Output.S3Bucket == "" {
				add("TRIAGE_S3_ENDPOINT and TRIAGE_S3_BUCKET are required for the s3 sink")
			}
		default:
			add("TRIAGE_OUTPUT: unknown sink %q", sink)
		}
	}

	oneOf(&errs, "TRIAGE_LOG_FORMAT", c.Log.Format, "text", "json")
	oneOf(&errs, "TRIAGE_LOG_LEVEL", strings.ToLower(c.Log.Level), "debug", "info", "warn", "warning", "error")

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// HasSink reports whether the named sink is enabled.
func (c OutputConfig) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

func oneOf(errs *[]error, key, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	*errs = append(*errs, fmt.Errorf("%s: unknown value %q (want one of %s)", key, value, strings.Join(allowed, ", ")))
}

// env reads variables and accumulates parse errors.
type env struct {
	errs []error
}

func (e *env) str(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (e *env) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *env) number(key string, fallback float64) float64 {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return fallback
	}
	return f
}

func (e *env) integer(key string, fallback int) int {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return fallback
	}
	return n
}

func (e *env) flag(key string, fallback bool) bool {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return fallback
	}
	return b
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}
