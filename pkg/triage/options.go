package triage

import "github.com/crimson-sun/triage/internal/config"

type options struct {
	cfg        *config.Config
	source     Source
	embedder   Embedder
	answerer   Answerer
	ner        EntityDetector
	store      Store
	threshold  *float64
	topK       int
	workers    int
	onProgress func(Progress)
}

// Option configures a Triage instance.
type Option func(*options)

// WithConfig uses cfg instead of reading the environment.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithSource replaces the configured taxonomy and issue source.
func WithSource(src Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithEmbedder replaces the configured embedding collaborator.
func WithEmbedder(emb Embedder) Option {
	return func(o *options) {
		o.embedder = emb
	}
}

// WithAnswerer replaces the configured question-answering collaborator.
func WithAnswerer(qa Answerer) Option {
	return func(o *options) {
		o.answerer = qa
	}
}

// WithEntityDetector replaces the configured named-entity collaborator.
func WithEntityDetector(ner EntityDetector) Option {
	return func(o *options) {
		o.ner = ner
	}
}

// WithStore replaces the configured result store. The Triage instance takes
// ownership and closes it.
func WithStore(st Store) Option {
	return func(o *options) {
		o.store = st
	}
}

// WithThreshold sets the minimum cosine similarity for a match. Default: 0.5.
func WithThreshold(t float64) Option {
	return func(o *options) {
		o.threshold = &t
	}
}

// WithTopK sets how many matches are kept per issue. Default: 3.
func WithTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithWorkers sets how many issues a pass classifies concurrently. Default: 1.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithProgress registers a callback invoked as a pass advances.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) {
		o.onProgress = fn
	}
}
