package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engagementShape struct {
	Topic       string   `json:"topic"`
	KeyConcepts []string `json:"key_concepts"`
	Questions   struct {
		Basic string `json:"basic"`
	} `json:"questions"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTopic string
	}{
		{
			name:      "plain object",
			input:     `{"topic": "Go", "key_concepts": ["channels"]}`,
			wantTopic: "Go",
		},
		{
			name:      "code fence",
			input:     "```json\n{\"topic\": \"Go\"}\n```",
			wantTopic: "Go",
		},
		{
			name:      "surrounding prose",
			input:     "Here is the analysis:\n{\"topic\": \"Go\"}\nHope this helps!",
			wantTopic: "Go",
		},
		{
			name:      "missing opening quote on key",
			input:     `{"topic": "Go", key_concepts": ["a", "b"]}`,
			wantTopic: "Go",
		},
		{
			name:      "trailing comma",
			input:     `{"topic": "Go", "key_concepts": ["a", "b",],}`,
			wantTopic: "Go",
		},
		{
			name:      "comma inside string is kept",
			input:     `{"topic": "a, }", "key_concepts": [],}`,
			wantTopic: "a, }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out engagementShape
			require.NoError(t, DecodeJSON(tt.input, &out))
			assert.Equal(t, tt.wantTopic, out.Topic)
		})
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	var out engagementShape
	assert.ErrorIs(t, DecodeJSON("no json here", &out), ErrNoJSON)
	assert.ErrorIs(t, DecodeJSON(`{"topic": }`, &out), ErrUpstreamFailure)
}

func TestRepairJSON(t *testing.T) {
	assert.Equal(t, `{"type": "x", "name": "y"}`, repairJSON(`{"type": "x", name": "y"}`))
	assert.Equal(t, `{"a": 1}`, repairJSON(`{"a": 1}`))
}

func TestRoleConfig(t *testing.T) {
	parser := RoleConfig(RoleDocumentParser, "llama2")
	assert.Equal(t, "llama2", parser.ModelID)
	assert.InDelta(t, 0.2, parser.Temperature, 1e-9)
	assert.Equal(t, 1000, parser.MaxTokens)

	qa := RoleConfig(RoleQA, "llama2")
	assert.InDelta(t, 0.7, qa.Temperature, 1e-9)
	assert.Equal(t, 500, qa.MaxTokens)
	assert.Contains(t, qa.SystemPrompt, "\n1. Base answers strictly on the given context")

	assert.Equal(t, qa, RoleConfig("frontend", "llama2"), "unknown roles fall back to qa")
}
