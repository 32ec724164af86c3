package domain

import "errors"

var (
	// ErrNotFound signals a missing local file or CRM attachment.
	ErrNotFound = errors.New("not found")
	// ErrEmbedding signals an embedding provider failure or an empty/partial vector set.
	ErrEmbedding = errors.New("embedding failed")
	// ErrStore signals a vector-store failure. Retrieval callers downgrade it
	// to an empty result set instead of propagating.
	ErrStore = errors.New("vector store error")
	// ErrOutputParse signals a model response that does not conform to the
	// expected structured-output schema.
	ErrOutputParse = errors.New("model output parse failed")
	// ErrExternalCall signals a generic collaborator/network failure.
	ErrExternalCall = errors.New("external call failed")
	// ErrAlreadyProcessed signals that a deal was handled before.
	ErrAlreadyProcessed = errors.New("deal already processed")
)
