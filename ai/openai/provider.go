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

package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/retrievio/ai"
)

const verifyTimeout = 5 * time.Second

// Provider implements ai.Provider using OpenAI-compatible services.
// It manages the embedder and chat model instances.
type Provider struct {
	config     *ai.Config
	embedder   *Embedder
	chat       *ChatModel
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	chat, err := newChatModel(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:     config,
		embedder:   embedder,
		chat:       chat,
		httpClient: &http.Client{Timeout: verifyTimeout},
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ChatModel returns the chat completion service.
func (p *Provider) ChatModel() ai.ChatModel {
	return p.chat
}

// Verify lists the models on every configured host.
func (p *Provider) Verify(ctx context.Context) error {
	hosts := []string{p.config.ChatHost}
	if p.config.EmbeddingHost != p.config.ChatHost {
		hosts = append(hosts, p.config.EmbeddingHost)
	}
	for _, host := range hosts {
		if err := p.listModels(ctx, host); err != nil {
			p.logger.Error("failed to connect to AI backend", "host", host, "err", err)
			return fmt.Errorf("%w at %s: %w", ai.ErrConnection, host, err)
		}
		p.logger.Info("connected to AI backend", "host", host)
	}
	return nil
}

func (p *Provider) listModels(ctx context.Context, host string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer none")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	p.httpClient.CloseIdleConnections()
	return nil
}
