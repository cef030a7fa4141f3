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

// Package ai provides abstractions for the AI services used by RetrievIO agents.
//
// The package defines the interfaces agents depend on:
//
//   - Embedder: Generates vector embeddings from text
//   - ChatModel: Produces completions for a list of chat messages
//   - Provider: Aggregates both services and verifies backend connectivity
//
// Model behavior is described per agent role with RoleConfig, which returns
// the temperature and token limits a role uses by default. DecodeJSON pulls a
// JSON object out of a completion that may carry prose or code fences around it.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return interface
// types. Mock constructors return concrete types so tests can inject behavior
// and inspect call counts.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	resp, err := provider.ChatModel().Chat(ctx,
//	    []ai.ChatMessage{{Role: ai.RoleUser, Content: "Summarize this"}},
//	    ai.RoleConfig(ai.RoleQA, config.ChatModel))
package ai
