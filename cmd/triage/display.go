package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/crimson-sun/triage/pkg/triage"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printProgress(w io.Writer, p triage.Progress) {
	fmt.Fprintf(w, "\r%s %3d%% (%d/%d)", gray("reconciling"), p.Percent, p.Done, p.Total)
}

func printReport(w io.Writer, r *triage.Report) {
	fmt.Fprintf(w, "%s\n", cyan("=== Reconciliation ==="))
	fmt.Fprintf(w, "  Run:       %s\n", r.RunID)
	fmt.Fprintf(w, "  Issues:    %d\n", r.Total)
	fmt.Fprintf(w, "  Stored:    %s\n", green(r.Succeeded))
	if r.Skipped > 0 {
		fmt.Fprintf(w, "  Unchanged: %s\n", gray(r.Skipped))
	}
	fmt.Fprintf(w, "  Progress:  %d%%\n", r.Progress)
	if r.Duration > 0 {
		fmt.Fprintf(w, "  Took:      %s\n", r.Duration.Round(time.Millisecond))
	}
	if len(r.Failed) == 0 {
		return
	}
	fmt.Fprintf(w, "  Failed:    %s\n", red(len(r.Failed)))
	for _, f := range r.Failed {
		fmt.Fprintf(w, "    %s %s: %s\n", red("✗"), f.IssueID, f.Reason)
	}
}

func printResults(w io.Writer, results []triage.Result) {
	if len(results) == 0 {
		fmt.Fprintf(w, "%s\n", gray("No results"))
		return
	}
	for _, r := range results {
		printResult(w, r, false)
	}
}

// printResult writes one result. With detail set, every match and the
// summaries are shown; otherwise only the best match.
func printResult(w io.Writer, r triage.Result, detail bool) {
	switch {
	case !r.Classified():
		fmt.Fprintf(w, "%s  %s\n", r.IssueID, yellow("unclassified"))
	case len(r.BestMatches) == 0:
		fmt.Fprintf(w, "%s  %s\n", r.IssueID, gray("no match"))
	case !detail:
		top := r.BestMatches[0]
		fmt.Fprintf(w, "%s  %s %s\n", r.IssueID, top.Path, green(fmt.Sprintf("%.2f", top.SimilarityScore)))
	default:
		fmt.Fprintf(w, "%s\n", r.IssueID)
		for i, m := range r.BestMatches {
			fmt.Fprintf(w, "  %d. %s %s\n", i+1, m.Path, green(fmt.Sprintf("%.2f", m.SimilarityScore)))
		}
	}
	if !detail {
		return
	}
	if r.DescriptionSummary != nil {
		fmt.Fprintf(w, "  %s %s\n", gray("description:"), *r.DescriptionSummary)
	}
	if r.CommentsSummary != nil {
		fmt.Fprintf(w, "  %s %s\n", gray("comments:"), *r.CommentsSummary)
	}
	if s := strings.TrimSpace(r.TicketSummary); s != "" {
		fmt.Fprintf(w, "  %s %s\n", gray("ticket:"), s)
	}
}
