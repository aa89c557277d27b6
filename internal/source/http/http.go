// Package http fetches taxonomy and issue snapshots from a JSON HTTP API:
// GET {endpoint}/taxonomy and GET {endpoint}/issues.
package http

import (
	"context"
	"fmt"

	"github.com/crimson-sun/triage/internal/collab/httpclient"
	"github.com/crimson-sun/triage/internal/engine/taxonomy"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/source"
)

func init() {
	source.Register("http", func(cfg source.Config) (source.Source, error) {
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("http source: endpoint is required: %w", model.ErrConfiguration)
		}
		return New(cfg.Endpoint, cfg.Token), nil
	})
}

// Source reads snapshots from a remote service.
type Source struct {
	client *httpclient.Client
}

func New(endpoint, token string, opts ...httpclient.Option) *Source {
	return &Source{client: httpclient.New(endpoint, token, opts...)}
}

func (s *Source) Taxonomy(ctx context.Context) (*model.TaxonomyNode, error) {
	var root *model.TaxonomyNode
	if err := s.client.GetJSON(ctx, "/taxonomy", nil, &root); err != nil {
		return nil, fmt.Errorf("http source: fetch taxonomy: %w: %w", model.ErrConfiguration, err)
	}
	if err := taxonomy.Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}

func (s *Source) Issues(ctx context.Context) ([]model.Issue, error) {
	var issues []model.Issue
	if err := s.client.GetJSON(ctx, "/issues", nil, &issues); err != nil {
		return nil, fmt.Errorf("http source: fetch issues: %w: %w", model.ErrConfiguration, err)
	}
	return issues, nil
}

func (s *Source) Close() error { return nil }
