package source

import (
	"context"
	"fmt"

	"github.com/crimson-sun/triage/internal/model"
)

// Source provides read-only full snapshots of the taxonomy and the issue set.
type Source interface {
	// Taxonomy fetches the current taxonomy tree.
	Taxonomy(ctx context.Context) (*model.TaxonomyNode, error)

	// Issues fetches every issue, in a stable order.
	Issues(ctx context.Context) ([]model.Issue, error)

	Close() error
}

// Config holds provider-specific connection settings.
type Config struct {
	Provider     string
	TaxonomyPath string
	IssuesPath   string
	DSN          string
	Endpoint     string
	Token        string
}

// FindIssue returns the issue with the given id, or an error wrapping
// model.ErrNotFound.
func FindIssue(ctx context.Context, src Source, id string) (model.Issue, error) {
	issues, err := src.Issues(ctx)
	if err != nil {
		return model.Issue{}, err
	}
	for _, is := range issues {
		if is.ID == id {
			return is, nil
		}
	}
	return model.Issue{}, fmt.Errorf("source: issue %s: %w", id, model.ErrNotFound)
}
