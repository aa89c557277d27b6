// Package file reads taxonomy and issue snapshots from YAML or JSON files.
package file

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/triage/internal/engine/taxonomy"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/source"
)

func init() {
	source.Register("file", func(cfg source.Config) (source.Source, error) {
		return New(cfg.TaxonomyPath, cfg.IssuesPath), nil
	})
}

// Source re-reads both files on every fetch so edits take effect on the
// next pass.
type Source struct {
	taxonomyPath string
	issuesPath   string
}

func New(taxonomyPath, issuesPath string) *Source {
	return &Source{taxonomyPath: taxonomyPath, issuesPath: issuesPath}
}

func (s *Source) Taxonomy(ctx context.Context) (*model.TaxonomyNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return taxonomy.Load(s.taxonomyPath)
}

func (s *Source) Issues(ctx context.Context) ([]model.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.issuesPath)
	if err != nil {
		return nil, fmt.Errorf("file source: read %s: %w: %w", s.issuesPath, model.ErrConfiguration, err)
	}
	var issues []model.Issue
	if err := yaml.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("file source: decode %s: %w: %w", s.issuesPath, model.ErrConfiguration, err)
	}
	return issues, nil
}

func (s *Source) Close() error { return nil }
