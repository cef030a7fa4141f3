package ai

import "strings"

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// ModelConfig selects a model and its sampling parameters for one agent role.
// Zero values leave the backend default in place.
type ModelConfig struct {
	ModelID       string
	SystemPrompt  string
	Temperature   float64
	TopP          float64
	TopK          int
	MaxTokens     int
	StopSequences []string
}

// Usage reports token counts for a completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// ChatResponse is a completed chat turn.
type ChatResponse struct {
	Content string
	ModelID string
	Usage   Usage
}

// Agent roles with dedicated model settings.
const (
	RoleDocumentParser = "document_parser"
	RoleQA             = "qa"
	RoleEngagement     = "engagement"
	RoleQueryProcessor = "query_processor"
)

// RoleConfig returns the model settings for an agent role using modelID.
// Unknown roles get the question-answering settings.
func RoleConfig(role, modelID string) ModelConfig {
	switch role {
	case RoleDocumentParser:
		return ModelConfig{
			ModelID: modelID,
			SystemPrompt: trimPrompt(`You are a document parsing assistant. Your role is to:
				1. Extract and structure text content
				2. Identify document sections and metadata
				3. Clean and normalize text`),
			Temperature: 0.2,
			MaxTokens:   1000,
		}
	case RoleEngagement:
		return ModelConfig{
			ModelID: modelID,
			SystemPrompt: trimPrompt(`You analyze documents and produce engaging study material.
				Respond with a single JSON object and nothing else.`),
			Temperature: 0.4,
			MaxTokens:   800,
		}
	default:
		return ModelConfig{
			ModelID: modelID,
			SystemPrompt: trimPrompt(`You are a helpful assistant answering questions based on provided context.
				Always:
				1. Base answers strictly on the given context
				2. Cite sources when possible
				3. Admit when information is not available
				4. Be concise but thorough`),
			Temperature: 0.7,
			MaxTokens:   500,
		}
	}
}

// trimPrompt strips the indentation Go raw strings pick up from source.
func trimPrompt(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}
