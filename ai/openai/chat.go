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
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/retrievio/ai"
)

// ChatModel implements ai.ChatModel on an OpenAI-compatible chat endpoint.
type ChatModel struct {
	client       llms.Model
	defaultModel string
	logger       *slog.Logger
}

func newChatModel(config *ai.Config) (*ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &ChatModel{
		client:       client,
		defaultModel: config.ChatModel,
		logger:       slog.Default().With("component", "openai-chat"),
	}, nil
}

// NewChatModel creates a chat model using the provided configuration.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	return newChatModel(config)
}

func (c *ChatModel) Chat(ctx context.Context, messages []ai.ChatMessage, cfg ai.ModelConfig) (*ai.ChatResponse, error) {
	content := make([]llms.MessageContent, 0, len(messages)+1)
	if cfg.SystemPrompt != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(cfg.SystemPrompt)},
		})
	}
	for _, m := range messages {
		content = append(content, llms.MessageContent{
			Role:  messageType(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	model := cfg.ModelID
	if model == "" {
		model = c.defaultModel
	}

	c.logger.Debug("sending chat request", "model", model, "messages", len(content))
	response, err := c.client.GenerateContent(ctx, content, callOptions(model, cfg)...)
	if err != nil {
		c.logger.Error("chat completion failed", "model", model, "err", err)
		return nil, fmt.Errorf("%w: chat: %w", ai.ErrUpstreamFailure, err)
	}
	if len(response.Choices) < 1 {
		return nil, fmt.Errorf("%w: no choices returned", ai.ErrUpstreamFailure)
	}

	choice := response.Choices[0]
	return &ai.ChatResponse{
		Content: choice.Content,
		ModelID: model,
		Usage: ai.Usage{
			PromptTokens:     intInfo(choice.GenerationInfo, "PromptTokens"),
			CompletionTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
		},
	}, nil
}

func callOptions(model string, cfg ai.ModelConfig) []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithModel(model),
		llms.WithTemperature(cfg.Temperature),
	}
	if cfg.TopP > 0 {
		opts = append(opts, llms.WithTopP(cfg.TopP))
	}
	if cfg.TopK > 0 {
		opts = append(opts, llms.WithTopK(cfg.TopK))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	if len(cfg.StopSequences) > 0 {
		opts = append(opts, llms.WithStopWords(cfg.StopSequences))
	}
	return opts
}

func messageType(role ai.ChatRole) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
