package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/crimson-sun/triage/internal/pipeline"
	"github.com/crimson-sun/triage/pkg/triage"
)

func init() {
	color.NoColor = true
}

func str(s string) *string { return &s }

func TestPrintResult(t *testing.T) {
	tests := []struct {
		name   string
		result triage.Result
		detail bool
		want   []string
	}{
		{
			name:   "unclassified",
			result: triage.Result{IssueID: "PORTAL-2"},
			want:   []string{"PORTAL-2  unclassified"},
		},
		{
			name:   "no match",
			result: triage.Result{IssueID: "PORTAL-5", BestMatches: []triage.Match{}},
			want:   []string{"PORTAL-5  no match"},
		},
		{
			name: "summary line",
			result: triage.Result{IssueID: "PORTAL-1", BestMatches: []triage.Match{
				{Path: "Support -> Authentication -> Login failure", SimilarityScore: 0.75},
				{Path: "Support -> Authentication -> Password reset", SimilarityScore: 0.5},
			}},
			want: []string{"PORTAL-1  Support -> Authentication -> Login failure 0.75"},
		},
		{
			name: "detail",
			result: triage.Result{
				IssueID: "PORTAL-1",
				BestMatches: []triage.Match{
					{Path: "Support -> Authentication -> Login failure", SimilarityScore: 0.75},
					{Path: "Support -> Authentication -> Password reset", SimilarityScore: 0.5},
				},
				TicketSummary:      "The Jira ticket PORTAL-1 titled 'Cannot log in'.",
				DescriptionSummary: str("Login failure"),
			},
			detail: true,
			want: []string{
				"PORTAL-1",
				"  1. Support -> Authentication -> Login failure 0.75",
				"  2. Support -> Authentication -> Password reset 0.50",
				"  description: Login failure",
				"  ticket: The Jira ticket PORTAL-1 titled 'Cannot log in'.",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printResult(&buf, tt.result, tt.detail)
			got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines, want %d:\n%s", len(got), len(tt.want), buf.String())
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPrintResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, nil)
	if buf.String() != "No results\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestPrintReportListsFailures(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &triage.Report{
		RunID:     "run-1",
		Total:     3,
		Succeeded: 2,
		Progress:  100,
		Failed:    []pipeline.IssueFailure{{IssueID: "PORTAL-4", Reason: "store unavailable"}},
	})
	out := buf.String()
	for _, want := range []string{"Run:       run-1", "Issues:    3", "Stored:    2", "Failed:    1", "PORTAL-4: store unavailable"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Unchanged") {
		t.Errorf("unexpected Unchanged line with zero skipped:\n%s", out)
	}
}

func TestWriteJSONResultKeepsNullMatches(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, triage.Result{IssueID: "PORTAL-2"}); err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if v, ok := m["best_matches"]; !ok || v != nil {
		t.Errorf("best_matches = %v (present %v), want null", v, ok)
	}
}

func TestCommandTree(t *testing.T) {
	want := map[string]bool{"reconcile": false, "match": false, "paths": false, "results": false, "assign": false, "ask": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
	for _, flag := range []string{"log-level", "store", "store-dsn"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}
