package model

// MatchCandidate is one leaf's similarity score for one issue.
type MatchCandidate struct {
	Path            string  `json:"path"`
	SimilarityScore float64 `json:"similarity_score"`
}

// MatchResult is the persisted outcome of classifying one issue.
//
// BestMatches is nil when the issue had no usable text to classify, and an
// empty (non-nil) slice when it was classified but no leaf cleared the threshold.
type MatchResult struct {
	IssueID            string           `json:"issue_id"`
	BestMatches        []MatchCandidate `json:"best_matches"`
	TicketSummary      string           `json:"ticket_summary"`
	DescriptionSummary *string          `json:"description_summary"`
	CommentsSummary    *string          `json:"comments_summary"`
}

// Classified reports whether the issue had text to classify.
func (r MatchResult) Classified() bool {
	return r.BestMatches != nil
}

// Record is a stored MatchResult together with the fingerprint of the inputs
// that produced it.
type Record struct {
	Result      MatchResult `json:"result"`
	Fingerprint string      `json:"fingerprint"`
}
