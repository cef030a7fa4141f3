package agents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/retrievio/ai"
	"github.com/poiesic/retrievio/ai/mock"
	"github.com/poiesic/retrievio/core"
)

const engagementReply = "Here you go:\n```json\n" + `{
  "topic": "Concurrency",
  "overview": "How Go runs things at once",
  "key_concepts": ["goroutines", "channels"],
  "questions": {"basic": "What is a goroutine?", "detailed": "How are channels buffered?", "practical": "When would you use select?"},
  "follow_up": ["sync package"],
}` + "\n```"

func TestEngagement_Analyze(t *testing.T) {
	b := newTestBroker(t, NameFrontend)
	require.NoError(t, b.Subscribe(NameFrontend, NameEngagement))

	chat := mock.NewMockChatModel()
	var prompt string
	chat.ChatFunc = func(_ context.Context, msgs []ai.ChatMessage, cfg ai.ModelConfig) (*ai.ChatResponse, error) {
		prompt = msgs[0].Content
		return &ai.ChatResponse{Content: engagementReply, ModelID: cfg.ModelID}, nil
	}
	e, err := NewEngagement(b, newTestPool(t), chat, "llama2")
	require.NoError(t, err)

	long := make([]rune, 5000)
	for i := range long {
		long[i] = 'x'
	}
	result := e.Analyze(context.Background(), string(long), docMetadata("/docs/go.pdf"))
	require.Empty(t, result.Error)
	require.NotNil(t, result.Analysis)
	assert.Equal(t, "go.pdf", result.Document)
	assert.Equal(t, "llama2", result.Model)
	assert.Equal(t, "Concurrency", result.Analysis.Topic)
	assert.Equal(t, []string{"goroutines", "channels"}, result.Analysis.KeyConcepts)
	assert.Equal(t, "When would you use select?", result.Analysis.Questions.Practical)

	assert.Contains(t, prompt, "Document: "+string(long[:engagementSampleRunes])+"...")
	assert.NotContains(t, prompt, string(long[:engagementSampleRunes+1]))
	assert.InDelta(t, 0.4, chat.Configs()[0].Temperature, 1e-9)

	msgs := drain(t, b, NameFrontend)
	require.Len(t, msgs, 1)
	assert.Equal(t, core.MessageTypeEngagementReady, msgs[0].MessageType)
	assert.Equal(t, "flow-1", msgs[0].Metadata[core.MetaFlowID])
}

func TestEngagement_UndecodableReplyKeepsRaw(t *testing.T) {
	b := newTestBroker(t)
	chat := mock.NewMockChatModel()
	chat.ChatFunc = func(context.Context, []ai.ChatMessage, ai.ModelConfig) (*ai.ChatResponse, error) {
		return &ai.ChatResponse{Content: "I cannot produce JSON today"}, nil
	}
	e, err := NewEngagement(b, newTestPool(t), chat, "llama2")
	require.NoError(t, err)

	result := e.Analyze(context.Background(), "text", map[string]string{})
	assert.Empty(t, result.Error)
	assert.Nil(t, result.Analysis)
	assert.Equal(t, "I cannot produce JSON today", result.Raw)
	assert.Equal(t, "unknown", result.Document)
}

func TestEngagement_ChatError(t *testing.T) {
	b := newTestBroker(t)
	chat := mock.NewMockChatModel()
	chat.ChatFunc = func(context.Context, []ai.ChatMessage, ai.ModelConfig) (*ai.ChatResponse, error) {
		return nil, errors.New("overloaded")
	}
	e, err := NewEngagement(b, newTestPool(t), chat, "llama2")
	require.NoError(t, err)

	result := e.Analyze(context.Background(), "text", docMetadata("/d/a.md"))
	assert.Equal(t, Engagement{Document: "a.md", Error: "overloaded"}, result)
}

func TestNewEngagement_RequiresChat(t *testing.T) {
	_, err := NewEngagement(newTestBroker(t), newTestPool(t), nil, "m")
	assert.ErrorIs(t, err, ErrChatModelRequired)
}

func TestFrontend_HandleMessage(t *testing.T) {
	b := newTestBroker(t)
	f, err := NewFrontend(b, 8)
	require.NoError(t, err)
	ctx := context.Background()

	f.NotifyDocumentAdded("/w/report.pdf")
	f.HandleMessage(ctx, core.NewMessage("1", NameEngagement, "", Engagement{
		Document: "report.pdf", Analysis: &Analysis{Topic: "Budgets"},
	}, core.MessageTypeEngagementReady, nil))
	f.HandleMessage(ctx, core.NewMessage("2", NameQA, NameFrontend, Answer{Error: "x"}, core.MessageTypeAnswerReady, nil))
	f.HandleMessage(ctx, core.NewMessage("3", "someone", NameFrontend, 42, "", nil))

	got := make([]Notification, 0, 3)
	for len(f.Notifications()) > 0 {
		got = append(got, <-f.Notifications())
	}
	require.Len(t, got, 3)
	assert.Equal(t, core.MessageTypeDocumentDetected, got[0].Kind)
	assert.Contains(t, got[0].Text, "report.pdf")
	assert.Equal(t, "report.pdf is about Budgets", got[1].Text)
	assert.Equal(t, NameEngagement, got[1].From)
	assert.Contains(t, got[2].Text, "couldn't find an answer")
}

func TestFrontend_DropsWhenFull(t *testing.T) {
	f, err := NewFrontend(newTestBroker(t), 1)
	require.NoError(t, err)

	f.NotifyDocumentAdded("/a.pdf")
	f.NotifyDocumentAdded("/b.pdf")
	assert.Len(t, f.Notifications(), 1)
}

func TestWatcher_AnnouncesNewDocuments(t *testing.T) {
	b := newTestBroker(t, NameParser)
	require.NoError(t, b.Subscribe(NameParser, NameWatcher))

	supports := func(p string) bool { return filepath.Ext(p) == ".pdf" }
	w, err := NewWatcher(b, supports, 20*time.Millisecond)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, w.Watch(dir))
	require.NoError(t, w.Watch(dir))
	assert.Len(t, w.Dirs(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.png"), []byte("x"), 0o644))
	target := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(target, []byte("%PDF-1.4"), 0o644))

	select {
	case path := <-w.Events():
		assert.Equal(t, target, path)
	case <-time.After(5 * time.Second):
		t.Fatal("document was not detected")
	}

	msg := waitFor(t, b, NameParser)
	assert.Equal(t, core.MessageTypeDocumentDetected, msg.MessageType)
	assert.Equal(t, DocumentDetected{Path: target}, msg.Content)
	assert.Equal(t, "paper.pdf", msg.Metadata[core.MetaFileName])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	_, open := <-w.Events()
	assert.False(t, open)
}

func TestWatcher_WatchMissingDir(t *testing.T) {
	w, err := NewWatcher(newTestBroker(t), nil, 0)
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "nope")))
}
