// Package summary derives reviewer-facing summaries of an issue from the
// question-answering and named-entity collaborators.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crimson-sun/triage/internal/engine/textprep"
	"github.com/crimson-sun/triage/internal/model"
)

const (
	DefaultPersonThreshold = 0.3
	DefaultRedactThreshold = 0.7

	DescriptionQuestion = "What problem is described?"
	CommentsQuestion    = "What are they talking about?"

	redacted = "[REDACTED]"
)

// Answerer is the question-answering collaborator.
type Answerer interface {
	Answer(ctx context.Context, question, passage string) (model.Answer, error)
}

// EntityDetector is the named-entity collaborator.
type EntityDetector interface {
	DetectEntities(ctx context.Context, text string) ([]model.Entity, error)
}

var trivialAnswers = map[string]struct{}{
	"comment":    {},
	"comment by": {},
	"none":       {},
	"nothing":    {},
	"n/a":        {},
}

// IsTrivial reports whether an answer carries no information.
func IsTrivial(answer string) bool {
	_, ok := trivialAnswers[strings.ToLower(strings.TrimSpace(answer))]
	return ok
}

// Summarizer asks fixed questions of an issue's description and comments and
// screens the answers. A nil EntityDetector disables person-name screening
// and redaction.
type Summarizer struct {
	qa  Answerer
	ner EntityDetector

	PersonThreshold float64
	RedactThreshold float64
}

// New creates a Summarizer with the default thresholds.
func New(qa Answerer, ner EntityDetector) *Summarizer {
	return &Summarizer{
		qa:              qa,
		ner:             ner,
		PersonThreshold: DefaultPersonThreshold,
		RedactThreshold: DefaultRedactThreshold,
	}
}

// Description answers DescriptionQuestion against the description. It
// returns nil when the description is blank or the answer is screened out.
func (s *Summarizer) Description(ctx context.Context, description string) (*string, error) {
	if strings.TrimSpace(description) == "" {
		return nil, nil
	}
	answer, err := s.ask(ctx, DescriptionQuestion, description)
	if err != nil {
		return nil, err
	}
	ok, err := s.acceptable(ctx, answer)
	if err != nil || !ok {
		return nil, err
	}
	return &answer, nil
}

// Comments answers CommentsQuestion once per non-blank, non-trivial comment
// and joins the accepted answers with spaces. It returns nil when no answer
// survives screening. A comment whose collaborator call fails is skipped; the
// failures come back joined alongside the summary of the remaining comments.
func (s *Summarizer) Comments(ctx context.Context, comments []string) (*string, error) {
	var (
		points []string
		errs   []error
	)
	for _, c := range comments {
		c = strings.TrimSpace(c)
		if c == "" || IsTrivial(c) {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		answer, err := s.ask(ctx, CommentsQuestion, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ok, err := s.acceptable(ctx, answer)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			points = append(points, answer)
		}
	}
	err := errors.Join(errs...)
	if len(points) == 0 {
		return nil, err
	}
	joined := strings.Join(points, " ")
	return &joined, err
}

// Ask answers a free-form question against passage and redacts person names
// from the answer.
func (s *Summarizer) Ask(ctx context.Context, question, passage string) (string, error) {
	answer, err := s.ask(ctx, question, passage)
	if err != nil {
		return "", err
	}
	return s.Redact(ctx, answer)
}

// MentionsPerson reports whether the normalised text contains a person
// entity scoring above PersonThreshold.
func (s *Summarizer) MentionsPerson(ctx context.Context, text string) (bool, error) {
	if s.ner == nil {
		return false, nil
	}
	normalized := textprep.Normalize(text)
	if normalized == "" {
		return false, nil
	}
	entities, err := s.ner.DetectEntities(ctx, normalized)
	if err != nil {
		return false, fmt.Errorf("summary: detect entities: %w: %w", model.ErrCollaborator, err)
	}
	for _, e := range entities {
		if e.Score > s.PersonThreshold && strings.Contains(e.Tag, "PER") {
			return true, nil
		}
	}
	return false, nil
}

// Redact replaces every word tagged B-PER above RedactThreshold with [REDACTED].
func (s *Summarizer) Redact(ctx context.Context, text string) (string, error) {
	if s.ner == nil || strings.TrimSpace(text) == "" {
		return text, nil
	}
	entities, err := s.ner.DetectEntities(ctx, text)
	if err != nil {
		return "", fmt.Errorf("summary: detect entities: %w: %w", model.ErrCollaborator, err)
	}
	for _, e := range entities {
		if e.Score > s.RedactThreshold && strings.HasPrefix(e.Tag, "B-PER") && e.Word != "" {
			text = strings.ReplaceAll(text, e.Word, redacted)
		}
	}
	return text, nil
}

func (s *Summarizer) ask(ctx context.Context, question, passage string) (string, error) {
	a, err := s.qa.Answer(ctx, question, passage)
	if err != nil {
		return "", fmt.Errorf("summary: answer %q: %w: %w", question, model.ErrCollaborator, err)
	}
	return a.Text, nil
}

func (s *Summarizer) acceptable(ctx context.Context, answer string) (bool, error) {
	if strings.TrimSpace(answer) == "" || IsTrivial(answer) {
		return false, nil
	}
	person, err := s.MentionsPerson(ctx, answer)
	if err != nil {
		return false, err
	}
	return !person, nil
}
