package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/crimson-sun/triage/internal/engine/testdata"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/source"
)

func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	tax := filepath.Join(dir, "taxonomy.yaml")
	iss := filepath.Join(dir, "issues.yaml")
	if err := os.WriteFile(tax, testdata.TaxonomyYAML(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(iss, testdata.IssuesYAML(), 0o644); err != nil {
		t.Fatal(err)
	}
	return tax, iss
}

func TestFileSource(t *testing.T) {
	tax, iss := writeFixtures(t)
	src, err := source.Open(source.Config{Provider: "file", TaxonomyPath: tax, IssuesPath: iss})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	root, err := src.Taxonomy(context.Background())
	if err != nil {
		t.Fatalf("Taxonomy: %v", err)
	}
	if root.Name != "Support" {
		t.Errorf("root = %q", root.Name)
	}

	issues, err := src.Issues(context.Background())
	if err != nil {
		t.Fatalf("Issues: %v", err)
	}
	if len(issues) != 5 || issues[0].ID != "PORTAL-1" || len(issues[0].Comments) != 3 {
		t.Errorf("issues = %+v", issues)
	}

	got, err := source.FindIssue(context.Background(), src, "PORTAL-4")
	if err != nil || got.Title != "Double charge" {
		t.Errorf("FindIssue = %+v, %v", got, err)
	}
	if _, err := source.FindIssue(context.Background(), src, "NOPE"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("FindIssue(NOPE) err = %v", err)
	}
}

func TestFileSourceMissing(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "a.yaml"), filepath.Join(t.TempDir(), "b.yaml"))
	if _, err := src.Taxonomy(context.Background()); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("Taxonomy err = %v", err)
	}
	if _, err := src.Issues(context.Background()); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("Issues err = %v", err)
	}
}

func TestUnknownProvider(t *testing.T) {
	if _, err := source.Open(source.Config{Provider: "jira"}); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("err = %v", err)
	}
}
