package triage_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/crimson-sun/triage/internal/config"
	"github.com/crimson-sun/triage/internal/engine/testdata"
	"github.com/crimson-sun/triage/pkg/triage"
)

func Example() {
	dir, err := os.MkdirTemp("", "triage-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	taxPath := filepath.Join(dir, "taxonomy.yaml")
	issuesPath := filepath.Join(dir, "issues.yaml")
	if err := os.WriteFile(taxPath, testdata.TaxonomyYAML(), 0o644); err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(issuesPath, testdata.IssuesYAML(), 0o644); err != nil {
		log.Fatal(err)
	}

	t, err := triage.New(
		triage.WithConfig(config.Config{
			Source:    config.SourceConfig{Provider: "file", TaxonomyPath: taxPath, IssuesPath: issuesPath},
			Embedder:  config.EmbedderConfig{Provider: "onnx"},
			Collab:    config.CollabConfig{QA: "none", Timeout: time.Second},
			Matching:  config.MatchingConfig{Threshold: 0.5, TopK: 3, PersonThreshold: 0.3, RedactThreshold: 0.7},
			Reconcile: config.ReconcileConfig{Workers: 1},
			Store:     config.StoreConfig{Backend: "memory"},
			Output:    config.OutputConfig{Verbosity: "full"},
			Log:       config.LogConfig{Level: "info", Format: "text"},
		}),
		// A bag-of-words stand-in for the ONNX model.
		triage.WithEmbedder(testdata.NewWordEmbedder(256)),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer t.Close()

	res, err := t.MatchSingle(context.Background(), "PORTAL-1")
	if err != nil {
		log.Fatal(err)
	}
	top := res.BestMatches[0]
	fmt.Printf("%s (%.2f)\n", top.Path, top.SimilarityScore)
	// Output:
	// Support -> Authentication -> Login failure (0.75)
}
