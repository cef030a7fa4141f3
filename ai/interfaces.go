package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatModel produces completions for a conversation.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Chat sends messages to the model described by cfg. cfg.SystemPrompt, when
	// set, is sent ahead of messages. Failures reported by the backend wrap
	// ErrUpstreamFailure.
	Chat(ctx context.Context, messages []ChatMessage, cfg ModelConfig) (*ChatResponse, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// ChatModel returns the chat completion service.
	ChatModel() ChatModel

	// Verify checks that the backend is reachable. Failures wrap ErrConnection.
	Verify(ctx context.Context) error

	// Close releases resources held by the provider and its services.
	Close() error
}
