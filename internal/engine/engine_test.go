package engine

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/crimson-sun/triage/internal/engine/embedder"
	"github.com/crimson-sun/triage/internal/engine/matcher"
	"github.com/crimson-sun/triage/internal/engine/summary"
	"github.com/crimson-sun/triage/internal/engine/testdata"
	"github.com/crimson-sun/triage/internal/model"
)

const (
	modelPath = "../../models/model_quantized.onnx"
	vocabPath = "../../models/vocab.txt"
)

func skipWithoutModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		t.Skip("ONNX model not available, skipping integration test")
	}
}

func newTestEngine(t *testing.T) (*Engine, *testdata.WordEmbedder, *testdata.EchoAnswerer) {
	t.Helper()
	emb := testdata.NewWordEmbedder(256)
	qa := &testdata.EchoAnswerer{}
	sum := summary.New(qa, testdata.NameTagger{Names: []string{"alice"}})
	return New(emb, matcher.New(matcher.DefaultThreshold, matcher.DefaultTopK), sum), emb, qa
}

func issueByID(t *testing.T, id string) model.Issue {
	t.Helper()
	issues, err := testdata.Issues()
	if err != nil {
		t.Fatal(err)
	}
	for _, is := range issues {
		if is.ID == id {
			return is
		}
	}
	t.Fatalf("no issue %s", id)
	return model.Issue{}
}

func sampleTree(t *testing.T) *model.TaxonomyNode {
	t.Helper()
	root, err := testdata.Taxonomy()
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func TestMatchSingleClassified(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	res, err := eng.MatchSingle(context.Background(), issueByID(t, "PORTAL-1"), sampleTree(t))
	if err != nil {
		t.Fatalf("MatchSingle: %v", err)
	}

	if res.IssueID != "PORTAL-1" {
		t.Errorf("IssueID = %q", res.IssueID)
	}
	if len(res.BestMatches) != 1 {
		t.Fatalf("BestMatches = %+v, want one candidate", res.BestMatches)
	}
	if res.BestMatches[0].Path != "Support -> Authentication -> Login failure" {
		t.Errorf("Path = %q", res.BestMatches[0].Path)
	}
	if math.Abs(res.BestMatches[0].SimilarityScore-0.75) > 1e-9 {
		t.Errorf("SimilarityScore = %f, want 0.75", res.BestMatches[0].SimilarityScore)
	}

	if res.DescriptionSummary == nil || *res.DescriptionSummary != "Login failure on the authentication page" {
		t.Errorf("DescriptionSummary = %v", res.DescriptionSummary)
	}
	if res.CommentsSummary == nil || *res.CommentsSummary != "Users cannot sign in since the deploy" {
		t.Errorf("CommentsSummary = %v", res.CommentsSummary)
	}

	want := "The Jira ticket PORTAL-1 titled 'Cannot log in' was created on 2024-03-01T09:00:00Z " +
		"and last modified on 2024-03-02T10:30:00Z. Currently, it is Open. " +
		"The project related to this ticket is Portal, with the component Auth. " +
		"It is a Bug and has a resolution status of 'Unresolved'. " +
		"The comments are talking about: Users cannot sign in since the deploy."
	if res.TicketSummary != want {
		t.Errorf("TicketSummary =\n%s\nwant\n%s", res.TicketSummary, want)
	}
}

func TestMatchSingleTiesKeepTreeOrder(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	res, err := eng.MatchSingle(context.Background(), issueByID(t, "PORTAL-4"), sampleTree(t))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Support -> Billing -> Invoice error", "Support -> Billing -> Refund request"}
	if len(res.BestMatches) != 2 {
		t.Fatalf("BestMatches = %+v", res.BestMatches)
	}
	for i, w := range want {
		if res.BestMatches[i].Path != w {
			t.Errorf("BestMatches[%d] = %q, want %q", i, res.BestMatches[i].Path, w)
		}
	}
}

func TestMatchSingleNoLeafClears(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	res, err := eng.MatchSingle(context.Background(), issueByID(t, "PORTAL-5"), sampleTree(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.BestMatches == nil || len(res.BestMatches) != 0 {
		t.Errorf("BestMatches = %#v, want empty non-nil", res.BestMatches)
	}
	if res.CommentsSummary != nil {
		t.Errorf("CommentsSummary = %q, want nil for trivial comments", *res.CommentsSummary)
	}
	if strings.Contains(res.TicketSummary, "comments are talking about") {
		t.Errorf("TicketSummary should omit the comments sentence: %s", res.TicketSummary)
	}
}

func TestMatchSingleNoText(t *testing.T) {
	for _, id := range []string{"PORTAL-2", "PORTAL-3"} {
		t.Run(id, func(t *testing.T) {
			eng, emb, qa := newTestEngine(t)
			root := sampleTree(t)
			p, err := eng.Prepare(context.Background(), root)
			if err != nil {
				t.Fatal(err)
			}
			before := emb.Calls()

			res, err := eng.Classify(context.Background(), p, issueByID(t, id))
			if err != nil {
				t.Fatal(err)
			}
			if res.BestMatches != nil {
				t.Errorf("BestMatches = %#v, want nil", res.BestMatches)
			}
			if res.DescriptionSummary != nil || res.CommentsSummary != nil {
				t.Error("summaries should be absent for issues without text")
			}
			if !strings.HasPrefix(res.TicketSummary, "The Jira ticket "+id+" titled") {
				t.Errorf("TicketSummary = %q", res.TicketSummary)
			}
			if emb.Calls() != before {
				t.Error("embedder should not be called")
			}
			if qa.Calls() != 0 {
				t.Error("QA should not be called")
			}
		})
	}
}

type failingEmbedder struct{ *testdata.WordEmbedder }

func (f failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("service unavailable")
}

func TestClassifyEmbedFailure(t *testing.T) {
	emb := failingEmbedder{testdata.NewWordEmbedder(64)}
	eng := New(emb, matcher.New(0.5, 3), nil)

	p, err := eng.Prepare(context.Background(), sampleTree(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = eng.Classify(context.Background(), p, issueByID(t, "PORTAL-1"))
	if !errors.Is(err, model.ErrCollaborator) {
		t.Errorf("err = %v, want ErrCollaborator", err)
	}
}

type failingAnswerer struct{}

func (failingAnswerer) Answer(context.Context, string, string) (model.Answer, error) {
	return model.Answer{}, errors.New("qa down")
}

func TestClassifySummaryFailureDegrades(t *testing.T) {
	eng := New(testdata.NewWordEmbedder(256), matcher.New(0.5, 3), summary.New(failingAnswerer{}, nil))

	res, err := eng.MatchSingle(context.Background(), issueByID(t, "PORTAL-1"), sampleTree(t))
	if err != nil {
		t.Fatalf("MatchSingle: %v", err)
	}
	if res.DescriptionSummary != nil || res.CommentsSummary != nil {
		t.Error("summaries should be absent when QA fails")
	}
	if len(res.BestMatches) != 1 {
		t.Errorf("BestMatches = %+v", res.BestMatches)
	}
}

func TestMatchSingleInvalidTree(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	_, err := eng.MatchSingle(context.Background(), issueByID(t, "PORTAL-1"), &model.TaxonomyNode{Name: "bad"})
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestAsk(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	got, err := eng.Ask(ctx, model.Issue{ID: "X", Comments: []string{"", "Alice rebooted the router. Then it worked."}}, "", "what happened?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "[REDACTED] rebooted the router" {
		t.Errorf("Ask = %q", got)
	}

	got, err = eng.Ask(ctx, model.Issue{ID: "X"}, "The Jira ticket X titled 'y'.", "what?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "The Jira ticket X titled 'y'" {
		t.Errorf("Ask fallback = %q", got)
	}

	_, err = eng.Ask(ctx, model.Issue{ID: "X"}, "", "what?")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFingerprint(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	p, err := eng.Prepare(context.Background(), sampleTree(t))
	if err != nil {
		t.Fatal(err)
	}
	issue := issueByID(t, "PORTAL-1")

	a := eng.Fingerprint(p, issue)
	if a != eng.Fingerprint(p, issue) {
		t.Error("fingerprint should be stable")
	}
	issue.Description += " again"
	if a == eng.Fingerprint(p, issue) {
		t.Error("fingerprint should change with the issue")
	}
	strict := New(testdata.NewWordEmbedder(8), matcher.New(0.9, 3), eng.summarizer)
	if a == strict.Fingerprint(p, issueByID(t, "PORTAL-1")) {
		t.Error("fingerprint should change with the threshold")
	}
}

func TestMatchSingleWithModel(t *testing.T) {
	skipWithoutModel(t)

	emb, err := embedder.New(embedder.Config{ModelPath: modelPath, VocabPath: vocabPath, Normalize: true})
	if err != nil {
		t.Fatalf("embedder.New: %v", err)
	}
	t.Cleanup(func() { emb.Close() })

	eng := New(emb, matcher.New(0.3, 3), nil)
	res, err := eng.MatchSingle(context.Background(), issueByID(t, "PORTAL-1"), sampleTree(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.BestMatches) == 0 {
		t.Fatal("expected at least one candidate")
	}
	t.Logf("top match %q (%.3f)", res.BestMatches[0].Path, res.BestMatches[0].SimilarityScore)
}
