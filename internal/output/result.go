package output

import "github.com/crimson-sun/triage/internal/model"

// Result is the sink-facing view of a match result.
type Result struct {
	IssueID            string                 `json:"issue_id"`
	Classified         bool                   `json:"classified"`
	BestMatches        []model.MatchCandidate `json:"best_matches"`
	TicketSummary      string                 `json:"ticket_summary,omitempty"`
	DescriptionSummary *string                `json:"description_summary,omitempty"`
	CommentsSummary    *string                `json:"comments_summary,omitempty"`
}

// Format converts r for emission. At Minimal the summaries are dropped.
func Format(r model.MatchResult, v Verbosity) Result {
	out := Result{
		IssueID:     r.IssueID,
		Classified:  r.Classified(),
		BestMatches: r.BestMatches,
	}
	if v == Minimal {
		return out
	}
	out.TicketSummary = r.TicketSummary
	out.DescriptionSummary = r.DescriptionSummary
	out.CommentsSummary = r.CommentsSummary
	return out
}

// TopPath returns the highest-ranked leaf path of r, or "".
func TopPath(r model.MatchResult) string {
	if len(r.BestMatches) == 0 {
		return ""
	}
	return r.BestMatches[0].Path
}
