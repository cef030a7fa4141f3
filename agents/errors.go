package agents

import "errors"

var (
	// ErrBrokerRequired is returned when an agent is built without a broker.
	ErrBrokerRequired = errors.New("broker required")

	// ErrPoolRequired is returned when an offloading agent has no worker pool.
	ErrPoolRequired = errors.New("worker pool required")

	// ErrEmbedderRequired is returned when an embedding agent has no embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrChatModelRequired is returned when an agent needing completions has no chat model.
	ErrChatModelRequired = errors.New("chat model required")

	// ErrRepositoryRequired is returned when the vector store has no repository.
	ErrRepositoryRequired = errors.New("vector repository required")

	// ErrExtractorRequired is returned when the parser has no extractor.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrChunkerRequired is returned when the chunker agent has no chunker.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrUnexpectedContent is returned when a request carries the wrong payload type.
	ErrUnexpectedContent = errors.New("unexpected message content")

	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("empty query")
)
