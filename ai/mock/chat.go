package mock

import (
	"context"
	"sync"

	"github.com/poiesic/retrievio/ai"
)

// MockChatModel is a test double for ai.ChatModel.
type MockChatModel struct {
	// ChatFunc is called by Chat if set.
	// If nil, the last user message is echoed back.
	ChatFunc func(ctx context.Context, messages []ai.ChatMessage, cfg ai.ModelConfig) (*ai.ChatResponse, error)

	mu    sync.Mutex
	calls []ai.ModelConfig
}

// NewMockChatModel creates a mock chat model with echo behavior.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

func (m *MockChatModel) Chat(ctx context.Context, messages []ai.ChatMessage, cfg ai.ModelConfig) (*ai.ChatResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cfg)
	m.mu.Unlock()

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages, cfg)
	}

	var last string
	for _, msg := range messages {
		if msg.Role == ai.RoleUser {
			last = msg.Content
		}
	}
	return &ai.ChatResponse{
		Content: last,
		ModelID: cfg.ModelID,
		Usage:   ai.Usage{PromptTokens: len(last), CompletionTokens: len(last)},
	}, nil
}

// CallCount returns the number of Chat calls.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Configs returns the model configs passed to Chat, in call order.
func (m *MockChatModel) Configs() []ai.ModelConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.ModelConfig, len(m.calls))
	copy(out, m.calls)
	return out
}
