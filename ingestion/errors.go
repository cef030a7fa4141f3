package ingestion

import "errors"

var (
	// ErrStageRequired is returned when a pipeline stage agent is not provided.
	ErrStageRequired = errors.New("pipeline stage required")

	// ErrCoordinatorRequired is returned when a flow coordinator is not provided.
	ErrCoordinatorRequired = errors.New("flow coordinator required")

	// ErrArchiveRequired is returned when an archive is not provided.
	ErrArchiveRequired = errors.New("archive required")

	// ErrDocumentUnavailable is returned when the document cannot be read from disk.
	ErrDocumentUnavailable = errors.New("document unavailable")

	// ErrAlreadyProcessing is returned when the same document is already in flight.
	ErrAlreadyProcessing = errors.New("document already being processed")

	// ErrNoText is returned when no text could be extracted from a document.
	ErrNoText = errors.New("no text extracted from document")

	// ErrNoChunks is returned when chunking produced nothing.
	ErrNoChunks = errors.New("no chunks created")

	// ErrEmbeddingFailed is returned when chunks could not be embedded.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrStoreFailed is returned when chunks could not be stored.
	ErrStoreFailed = errors.New("failed to store chunks")

	// ErrArchiveFailed is returned when processed artifacts could not be archived.
	ErrArchiveFailed = errors.New("failed to archive document")
)
