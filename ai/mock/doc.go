// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder, MockChatModel and MockProvider implement ai.Embedder,
// ai.ChatModel and ai.Provider. Behavior is injected through exported
// function fields; when a field is nil the mock falls back to a deterministic
// default.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	provider.Chat.ChatFunc = func(ctx context.Context, msgs []ai.ChatMessage, cfg ai.ModelConfig) (*ai.ChatResponse, error) {
//	    return &ai.ChatResponse{Content: "42", ModelID: cfg.ModelID}, nil
//	}
//
//	count := provider.Embed.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns unit vectors derived from an FNV hash of the text
//   - MockChatModel: Echoes the last user message
//   - MockProvider: Verify succeeds and Close is a no-op
package mock
