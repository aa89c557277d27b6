package output

import (
	"context"

	"github.com/crimson-sun/triage/internal/model"
)

// Output receives each match result after it has been persisted.
type Output interface {
	Write(ctx context.Context, result model.MatchResult) error
	Close() error
}
