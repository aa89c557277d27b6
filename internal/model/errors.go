package model

import "errors"

// Error kinds shared by the engine, sources, collaborators and stores.
// Wrap them with fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrConfiguration marks a missing or unreadable taxonomy/issue source,
	// or an invalid taxonomy. Fatal to a reconciliation pass.
	ErrConfiguration = errors.New("configuration error")

	// ErrLookupInconsistency marks a leaf whose path has no embedding in the index.
	ErrLookupInconsistency = errors.New("leaf path lookup inconsistency")

	// ErrCollaborator marks a failed embedding, QA or NER call.
	ErrCollaborator = errors.New("collaborator failure")

	// ErrPersistence marks a failed result store operation.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotFound is returned by point lookups for unknown keys.
	ErrNotFound = errors.New("not found")
)
