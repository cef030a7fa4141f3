package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/retrievio/ai"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/messaging"
	"github.com/poiesic/retrievio/offload"
)

// Answer is the QA agent's reply to a question.
type Answer struct {
	Answer  string   `json:"answer,omitempty"`
	Model   string   `json:"model,omitempty"`
	Sources []string `json:"sources"`
	Usage   ai.Usage `json:"usage"`
	Error   string   `json:"error,omitempty"`
}

// QA answers questions using only retrieved passages.
type QA struct {
	*Agent
	chat   ai.ChatModel
	config ai.ModelConfig
}

func NewQA(broker *messaging.Broker, pool *offload.Pool, chat ai.ChatModel, modelID string, opts ...Option) (*QA, error) {
	if chat == nil {
		return nil, ErrChatModelRequired
	}
	a, err := newAgent(NameQA, ai.RoleQA, broker, pool, opts)
	if err != nil {
		return nil, err
	}
	if err := a.requirePool(); err != nil {
		return nil, err
	}
	return &QA{Agent: a, chat: chat, config: ai.RoleConfig(ai.RoleQA, modelID)}, nil
}

// GenerateAnswer asks the chat model to answer query from results. Failures
// are reported in Answer.Error; Sources is always filled.
func (q *QA) GenerateAnswer(ctx context.Context, query string, results []core.SearchResult) Answer {
	sources := make([]string, len(results))
	for i, r := range results {
		sources[i] = r.File
	}

	prompt := qaPrompt(query, results)
	resp, err := offload.Do(ctx, q.pool, func(ctx context.Context) (*ai.ChatResponse, error) {
		return q.chat.Chat(ctx, []ai.ChatMessage{{Role: ai.RoleUser, Content: prompt}}, q.config)
	})
	if err != nil {
		q.logger.Error("failed to generate answer", "err", err)
		return Answer{Sources: sources, Error: err.Error()}
	}

	answer := Answer{
		Answer:  resp.Content,
		Model:   resp.ModelID,
		Sources: sources,
		Usage:   resp.Usage,
	}
	q.Send(ctx, NameFrontend, answer, core.MessageTypeAnswerReady, nil)
	return answer
}

func qaPrompt(query string, results []core.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the following context, answer the question.\nQuestion: %s\n\n", query)
	sb.WriteString("Relevant passages:\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "\n[From: %s]\n%s\n", r.File, r.Text)
	}
	sb.WriteString("\nAnswer the question using ONLY the information provided above.")
	return sb.String()
}

func (q *QA) Run(ctx context.Context) error {
	return q.Serve(ctx, q)
}
