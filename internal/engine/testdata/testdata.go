// Package testdata holds a small support-desk taxonomy, matching issues and
// deterministic stand-ins for the embedding, question-answering and
// named-entity collaborators.
package testdata

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/triage/internal/engine/textprep"
	"github.com/crimson-sun/triage/internal/model"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

//go:embed issues.yaml
var issuesYAML []byte

// TaxonomyYAML returns the raw taxonomy document.
func TaxonomyYAML() []byte { return taxonomyYAML }

// IssuesYAML returns the raw issue list document.
func IssuesYAML() []byte { return issuesYAML }

// Taxonomy returns a fresh copy of the sample tree.
func Taxonomy() (*model.TaxonomyNode, error) {
	var root *model.TaxonomyNode
	if err := yaml.Unmarshal(taxonomyYAML, &root); err != nil {
		return nil, fmt.Errorf("parse taxonomy.yaml: %w", err)
	}
	return root, nil
}

// Issues returns a fresh copy of the sample issues.
func Issues() ([]model.Issue, error) {
	var issues []model.Issue
	if err := yaml.Unmarshal(issuesYAML, &issues); err != nil {
		return nil, fmt.Errorf("parse issues.yaml: %w", err)
	}
	return issues, nil
}

// WordEmbedder is a bag-of-words embedder: every distinct normalised token
// gets its own dimension on first sight, so cosine similarity is exactly the
// token-overlap cosine of the two texts.
type WordEmbedder struct {
	Dim int

	mu    sync.Mutex
	vocab map[string]int
	calls int
}

// NewWordEmbedder returns a WordEmbedder with room for dim distinct tokens.
func NewWordEmbedder(dim int) *WordEmbedder {
	return &WordEmbedder{Dim: dim, vocab: make(map[string]int)}
}

func (w *WordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := w.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (w *WordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, w.Dim)
		for _, tok := range strings.Fields(textprep.Normalize(text)) {
			idx, ok := w.vocab[tok]
			if !ok {
				idx = len(w.vocab) % w.Dim
				w.vocab[tok] = idx
			}
			vec[idx] = 1
		}
		out[i] = vec
	}
	return out, nil
}

// Calls returns how many EmbedBatch calls have been served.
func (w *WordEmbedder) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func (w *WordEmbedder) Close() error { return nil }

// EchoAnswerer answers with the passage up to its first full stop.
type EchoAnswerer struct {
	mu    sync.Mutex
	calls int
}

func (e *EchoAnswerer) Answer(_ context.Context, _, passage string) (model.Answer, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	text := strings.TrimSpace(passage)
	if i := strings.IndexByte(text, '.'); i >= 0 {
		text = text[:i]
	}
	return model.Answer{Text: text, Confidence: 0.8}, nil
}

// Calls returns how many questions have been answered.
func (e *EchoAnswerer) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// NameTagger tags any whitespace-separated word that case-insensitively
// equals one of Names as a high-confidence B-PER entity.
type NameTagger struct {
	Names []string
}

func (n NameTagger) DetectEntities(_ context.Context, text string) ([]model.Entity, error) {
	var out []model.Entity
	for _, word := range strings.Fields(text) {
		for _, name := range n.Names {
			if strings.EqualFold(word, name) {
				out = append(out, model.Entity{Word: word, Tag: "B-PER", Score: 0.99})
			}
		}
	}
	return out, nil
}
