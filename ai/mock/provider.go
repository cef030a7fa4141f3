// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mock

import (
	"context"

	"github.com/poiesic/retrievio/ai"
)

// MockProvider is a test double for ai.Provider.
// Its fields are exported so tests can inject behavior into each service.
type MockProvider struct {
	Embed *MockEmbedder
	Chat  *MockChatModel

	// VerifyFunc is called by Verify if set.
	VerifyFunc func(ctx context.Context) error
}

// NewMockProvider creates a new mock provider with default mock services.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Embed: NewMockEmbedder(),
		Chat:  NewMockChatModel(),
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.Embed
}

// ChatModel returns the mock chat model.
func (p *MockProvider) ChatModel() ai.ChatModel {
	return p.Chat
}

// Verify succeeds unless VerifyFunc says otherwise.
func (p *MockProvider) Verify(ctx context.Context) error {
	if p.VerifyFunc != nil {
		return p.VerifyFunc(ctx)
	}
	return nil
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}
