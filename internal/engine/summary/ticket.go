package summary

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/triage/internal/model"
)

// TicketSummary renders the fixed sentence template describing an issue's
// metadata. Missing fields fall back to placeholder text. The comments
// sentence is appended only when commentsSummary is non-empty.
func TicketSummary(issue model.Issue, commentsSummary *string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The Jira ticket %s titled '%s' was created on %s and last modified on %s. ",
		or(issue.ID, "Unknown ID"), or(issue.Title, "No Title"),
		or(issue.Created, "Unknown Date"), or(issue.Updated, "Unknown Date"))
	fmt.Fprintf(&b, "Currently, it is %s. ", or(issue.Status, "No Status"))
	fmt.Fprintf(&b, "The project related to this ticket is %s, with the component %s. ",
		or(issue.Project, "No Project"), or(issue.Component, "No Component"))
	fmt.Fprintf(&b, "It is a %s and has a resolution status of '%s'.",
		or(issue.Type, "No Type"), or(issue.Resolution, "No Resolution"))
	if commentsSummary != nil && *commentsSummary != "" {
		fmt.Fprintf(&b, " The comments are talking about: %s.", *commentsSummary)
	}
	return b.String()
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
