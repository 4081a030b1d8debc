package core

import "errors"

// Sentinel errors shared across services and the HTTP layer.
var (
	// ErrNotFound covers documents and jobs that are absent or not owned
	// by the caller. Handlers translate it to 404 without distinguishing
	// the two cases.
	ErrNotFound = errors.New("not found")

	// ErrExtraction marks a failed extraction run. No pages or chunks
	// are committed for a run that fails.
	ErrExtraction = errors.New("extraction failed")

	// ErrModel marks an embedding or question-answering backend failure.
	ErrModel = errors.New("model backend failed")
)
