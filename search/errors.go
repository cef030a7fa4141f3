package search

import "errors"

var (
	// ErrQueryProcessorRequired is returned when a query processor is not provided.
	ErrQueryProcessorRequired = errors.New("query processor required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrQARequired is returned when a QA agent is not provided.
	ErrQARequired = errors.New("QA agent required")
)
