// Package meili indexes match results in Meilisearch so reviewers can search
// tickets by summary and filter by assigned leaf path.
package meili

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/output"
)

const DefaultIndex = "triage_results"

// Document is the indexed form of a match result.
type Document struct {
	ID                 string   `json:"id"`
	IssueID            string   `json:"issueId"`
	Classified         bool     `json:"classified"`
	TopPath            string   `json:"topPath"`
	TopScore           float64  `json:"topScore"`
	Paths              []string `json:"paths"`
	TicketSummary      string   `json:"ticketSummary"`
	DescriptionSummary string   `json:"descriptionSummary,omitempty"`
	CommentsSummary    string   `json:"commentsSummary,omitempty"`
}

// Output upserts one document per result.
type Output struct {
	index meili.IndexManager
}

// New connects to Meilisearch and configures the index. Index setup failures
// are logged; writes still go through once the server is reachable.
func New(url, apiKey, index string) *Output {
	if index == "" {
		index = DefaultIndex
	}
	client := meili.New(url, meili.WithAPIKey(apiKey))

	if _, err := client.CreateIndex(&meili.IndexConfig{Uid: index, PrimaryKey: "id"}); err != nil {
		slog.Debug("meili: create index (may already exist)", "index", index, "error", err)
	}
	idx := client.Index(index)
	filterable := []interface{}{"classified", "topPath", "paths"}
	if _, err := idx.UpdateFilterableAttributes(&filterable); err != nil {
		slog.Warn("meili: update filterable attributes", "index", index, "error", err)
	}
	searchable := []string{"ticketSummary", "descriptionSummary", "commentsSummary", "issueId"}
	if _, err := idx.UpdateSearchableAttributes(&searchable); err != nil {
		slog.Warn("meili: update searchable attributes", "index", index, "error", err)
	}
	return &Output{index: idx}
}

func (o *Output) Write(_ context.Context, result model.MatchResult) error {
	doc := NewDocument(result)
	if _, err := o.index.AddDocuments([]Document{doc}, nil); err != nil {
		return fmt.Errorf("meili output: index %s: %w", result.IssueID, err)
	}
	return nil
}

func (o *Output) Close() error { return nil }

// NewDocument flattens a result for indexing.
func NewDocument(r model.MatchResult) Document {
	doc := Document{
		ID:            DocumentID(r.IssueID),
		IssueID:       r.IssueID,
		Classified:    r.Classified(),
		TopPath:       output.TopPath(r),
		Paths:         make([]string, 0, len(r.BestMatches)),
		TicketSummary: r.TicketSummary,
	}
	for _, c := range r.BestMatches {
		doc.Paths = append(doc.Paths, c.Path)
	}
	if len(r.BestMatches) > 0 {
		doc.TopScore = r.BestMatches[0].SimilarityScore
	}
	if r.DescriptionSummary != nil {
		doc.DescriptionSummary = *r.DescriptionSummary
	}
	if r.CommentsSummary != nil {
		doc.CommentsSummary = *r.CommentsSummary
	}
	return doc
}

// DocumentID maps an issue id onto Meilisearch's primary key alphabet
// (a-z A-Z 0-9 - _).
func DocumentID(issueID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, issueID)
}
