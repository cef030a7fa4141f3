package agents

import (
	"context"
	"fmt"

	"github.com/poiesic/retrievio/ai"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/messaging"
	"github.com/poiesic/retrievio/offload"
)

// engagementSampleRunes is how much of a document is shown to the model.
const engagementSampleRunes = 3000

// Questions probes a document at three depths.
type Questions struct {
	Basic     string `json:"basic"`
	Detailed  string `json:"detailed"`
	Practical string `json:"practical"`
}

// Analysis is the structured study material produced for a document.
type Analysis struct {
	Topic       string    `json:"topic"`
	Overview    string    `json:"overview"`
	KeyConcepts []string  `json:"key_concepts"`
	Questions   Questions `json:"questions"`
	FollowUp    []string  `json:"follow_up"`
}

// Engagement is the engagement agent's output for one document. Analysis is
// nil when the model reply could not be decoded; Raw keeps the reply.
type Engagement struct {
	Document string    `json:"document"`
	Analysis *Analysis `json:"analysis,omitempty"`
	Raw      string    `json:"raw,omitempty"`
	Model    string    `json:"model,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// EngagementAgent analyzes documents and suggests questions about them.
type EngagementAgent struct {
	*Agent
	chat   ai.ChatModel
	config ai.ModelConfig
}

func NewEngagement(broker *messaging.Broker, pool *offload.Pool, chat ai.ChatModel, modelID string, opts ...Option) (*EngagementAgent, error) {
	if chat == nil {
		return nil, ErrChatModelRequired
	}
	a, err := newAgent(NameEngagement, ai.RoleEngagement, broker, pool, opts)
	if err != nil {
		return nil, err
	}
	if err := a.requirePool(); err != nil {
		return nil, err
	}
	return &EngagementAgent{Agent: a, chat: chat, config: ai.RoleConfig(ai.RoleEngagement, modelID)}, nil
}

// Analyze builds study material for text. The result is announced to
// subscribers; failures are reported in Engagement.Error.
func (e *EngagementAgent) Analyze(ctx context.Context, text string, metadata map[string]string) Engagement {
	doc := metadata[core.MetaFileName]
	if doc == "" {
		doc = "unknown"
	}

	prompt := engagementPrompt(text)
	resp, err := offload.Do(ctx, e.pool, func(ctx context.Context) (*ai.ChatResponse, error) {
		return e.chat.Chat(ctx, []ai.ChatMessage{{Role: ai.RoleUser, Content: prompt}}, e.config)
	})
	if err != nil {
		e.logger.Error("failed to generate engagement content", "document", doc, "err", err)
		return Engagement{Document: doc, Error: err.Error()}
	}

	result := Engagement{Document: doc, Raw: resp.Content, Model: resp.ModelID}
	var analysis Analysis
	if err := ai.DecodeJSON(resp.Content, &analysis); err != nil {
		e.logger.Warn("engagement reply is not valid JSON", "document", doc, "err", err)
	} else {
		result.Analysis = &analysis
	}

	e.Notify(ctx, result, core.MessageTypeEngagementReady, flowMetadata(metadata))
	return result
}

func engagementPrompt(text string) string {
	sample := []rune(text)
	if len(sample) > engagementSampleRunes {
		sample = sample[:engagementSampleRunes]
	}
	return fmt.Sprintf(`Analyze this document and provide a structured engagement summary.
Focus on the main concepts and potential areas of interest.

Document: %s...

Provide the following in JSON format:
1. Main topic and brief overview
2. Key concepts (max 3)
3. Three questions at different levels:
   - Basic understanding
   - Detailed comprehension
   - Practical application
4. Suggested follow-up topics

Format as:
{
    "topic": "Main topic",
    "overview": "Brief overview",
    "key_concepts": ["concept1", "concept2", "concept3"],
    "questions": {
        "basic": "Question about fundamental concept",
        "detailed": "Question about specific details",
        "practical": "Question about real-world application"
    },
    "follow_up": ["topic1", "topic2"]
}`, string(sample))
}

func (e *EngagementAgent) Run(ctx context.Context) error {
	return e.Serve(ctx, e)
}
