package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/retrievio/ai"
)

func TestVector_DeterministicUnit(t *testing.T) {
	a := Vector("hello")
	b := Vector("hello")
	c := Vector("world")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	require.Len(t, a, DefaultDimensions)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}

func TestMockEmbedder_Injection(t *testing.T) {
	m := NewMockEmbedder()
	boom := errors.New("boom")
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}

	_, err := m.EmbedTexts(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)

	_, err = m.EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 2, m.CallCount())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	vectors, err := m.EmbedTexts(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
}

func TestMockChatModel_Echo(t *testing.T) {
	m := NewMockChatModel()
	resp, err := m.Chat(context.Background(), []ai.ChatMessage{
		{Role: ai.RoleUser, Content: "first"},
		{Role: ai.RoleAssistant, Content: "reply"},
		{Role: ai.RoleUser, Content: "second"},
	}, ai.ModelConfig{ModelID: "m"})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)
	assert.Equal(t, "m", resp.ModelID)
	assert.Equal(t, 1, m.CallCount())
	assert.Equal(t, "m", m.Configs()[0].ModelID)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	var _ ai.Provider = p

	require.NoError(t, p.Verify(context.Background()))
	p.VerifyFunc = func(context.Context) error { return ai.ErrConnection }
	assert.ErrorIs(t, p.Verify(context.Background()), ai.ErrConnection)
	assert.Same(t, p.Embed, p.Embedder())
	assert.NoError(t, p.Close())
}
