package triage

import (
	"github.com/crimson-sun/triage/internal/engine/embedder"
	"github.com/crimson-sun/triage/internal/engine/summary"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/pipeline"
	"github.com/crimson-sun/triage/internal/source"
	"github.com/crimson-sun/triage/internal/store"
)

type (
	// Issue is a ticket read from the issue source.
	Issue = model.Issue
	// Node is one node of a taxonomy tree.
	Node = model.TaxonomyNode
	// Match is one taxonomy leaf's similarity score for an issue.
	Match = model.MatchCandidate
	// Result is the stored outcome of classifying one issue.
	Result = model.MatchResult
	// Report summarises a reconciliation pass.
	Report = pipeline.Report
	// Progress is passed to the WithProgress callback.
	Progress = pipeline.Progress

	Embedder       = embedder.Embedder
	Answerer       = summary.Answerer
	EntityDetector = summary.EntityDetector
	Source         = source.Source
	Store          = store.Store
)

// Error kinds. Test with errors.Is.
var (
	ErrConfiguration = model.ErrConfiguration
	ErrCollaborator  = model.ErrCollaborator
	ErrPersistence   = model.ErrPersistence
	ErrNotFound      = model.ErrNotFound
)
