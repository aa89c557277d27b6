package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/crimson-sun/triage/internal/engine/embedder"
	"github.com/crimson-sun/triage/internal/engine/matcher"
	"github.com/crimson-sun/triage/internal/engine/summary"
	"github.com/crimson-sun/triage/internal/engine/taxonomy"
	"github.com/crimson-sun/triage/internal/engine/textprep"
	"github.com/crimson-sun/triage/internal/model"
)

// Engine classifies single issues: normalise → embed → match → summarise.
// It holds long-lived collaborator handles and no per-pass state.
type Engine struct {
	embedder   embedder.Embedder
	matcher    *matcher.Matcher
	summarizer *summary.Summarizer
}

// New creates an Engine. A nil summarizer disables description and comments
// summaries; ticket summaries are always produced.
func New(emb embedder.Embedder, m *matcher.Matcher, s *summary.Summarizer) *Engine {
	return &Engine{embedder: emb, matcher: m, summarizer: s}
}

// Pass is the per-pass view of a taxonomy: the tree and its leaf index,
// built once and shared read-only by every issue in the pass.
type Pass struct {
	Root        *model.TaxonomyNode
	Index       *taxonomy.Index
	Fingerprint string
}

// Prepare validates the tree and embeds its leaf paths.
func (e *Engine) Prepare(ctx context.Context, root *model.TaxonomyNode) (*Pass, error) {
	if err := taxonomy.Validate(root); err != nil {
		return nil, err
	}
	ix, err := taxonomy.BuildIndex(ctx, root, e.embedder)
	if err != nil {
		return nil, err
	}
	return &Pass{Root: root, Index: ix, Fingerprint: taxonomy.Fingerprint(root)}, nil
}

// Classify runs the per-issue pipeline against a prepared pass. Embedding
// failures are returned; summary failures are logged and leave the summary
// absent.
func (e *Engine) Classify(ctx context.Context, p *Pass, issue model.Issue) (model.MatchResult, error) {
	result := model.MatchResult{IssueID: issue.ID}

	normalized := textprep.Normalize(issue.Description)
	if normalized == "" || strings.TrimSpace(issue.Description) == "" {
		slog.Debug("issue has no text to classify", "issue", issue.ID)
		result.TicketSummary = summary.TicketSummary(issue, nil)
		return result, nil
	}

	vec, err := e.embedder.Embed(ctx, normalized)
	if err != nil {
		return result, fmt.Errorf("engine: embed issue %s: %w: %w", issue.ID, model.ErrCollaborator, err)
	}
	result.BestMatches = e.matcher.Match(vec, p.Root, p.Index)

	if e.summarizer != nil {
		result.DescriptionSummary, err = e.summarizer.Description(ctx, issue.Description)
		if err != nil {
			slog.Warn("description summary unavailable", "issue", issue.ID, "error", err)
		}
		result.CommentsSummary, err = e.summarizer.Comments(ctx, issue.Comments)
		if err != nil {
			slog.Warn("comment summaries skipped", "issue", issue.ID, "error", err)
		}
	}
	result.TicketSummary = summary.TicketSummary(issue, result.CommentsSummary)
	return result, nil
}

// MatchSingle classifies one issue on demand without a batch pass.
func (e *Engine) MatchSingle(ctx context.Context, issue model.Issue, root *model.TaxonomyNode) (model.MatchResult, error) {
	p, err := e.Prepare(ctx, root)
	if err != nil {
		return model.MatchResult{}, err
	}
	return e.Classify(ctx, p, issue)
}

// Ask answers a question about an issue from its comments, falling back to
// ticketSummary when the issue has none. Person names are redacted from the
// answer.
func (e *Engine) Ask(ctx context.Context, issue model.Issue, ticketSummary, question string) (string, error) {
	if e.summarizer == nil {
		return "", fmt.Errorf("engine: question answering is disabled: %w", model.ErrConfiguration)
	}

	var parts []string
	for _, c := range issue.Comments {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	passage := strings.Join(parts, "\n")
	if passage == "" {
		passage = strings.TrimSpace(ticketSummary)
	}
	if passage == "" {
		return "", fmt.Errorf("engine: issue %s has no comments or summary: %w", issue.ID, model.ErrNotFound)
	}
	return e.summarizer.Ask(ctx, question, passage)
}

// Fingerprint identifies the inputs that determine an issue's result within
// a pass. Equal fingerprints yield equal results.
func (e *Engine) Fingerprint(p *Pass, issue model.Issue) string {
	data, _ := json.Marshal(issue)
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(p.Fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(e.matcher.Threshold, 'g', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(e.matcher.TopK)))
	if e.summarizer != nil {
		h.Write([]byte{0, 's'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
