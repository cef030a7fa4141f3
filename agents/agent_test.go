package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/messaging"
	"github.com/poiesic/retrievio/offload"
)

func newTestBroker(t *testing.T, mailboxes ...string) *messaging.Broker {
	t.Helper()
	b, err := messaging.NewBroker(messaging.WithTickInterval(10 * time.Millisecond))
	require.NoError(t, err)
	for _, m := range mailboxes {
		require.NoError(t, b.Register(m))
	}
	t.Cleanup(b.Stop)
	return b
}

func newTestPool(t *testing.T) *offload.Pool {
	t.Helper()
	p, err := offload.NewPool(offload.WithPoolSize(4))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func drain(t *testing.T, b *messaging.Broker, mailbox string) []core.Message {
	t.Helper()
	msgs, err := b.DrainAll(mailbox)
	require.NoError(t, err)
	return msgs
}

// waitFor blocks until mailbox receives a message or the test times out.
func waitFor(t *testing.T, b *messaging.Broker, mailbox string) core.Message {
	t.Helper()
	msg, ok, err := b.Next(context.Background(), mailbox, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok, "no message for %s", mailbox)
	return msg
}

type recordingHandler struct {
	got chan core.Message
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg core.Message) {
	h.got <- msg
}

func TestNewAgent_RequiresBroker(t *testing.T) {
	_, err := newAgent("x", "x", nil, nil, nil)
	assert.ErrorIs(t, err, ErrBrokerRequired)
}

func TestNewAgent_RegistersMailbox(t *testing.T) {
	b := newTestBroker(t)
	a, err := newAgent("worker", "role", b, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "worker", a.Name())
	assert.Equal(t, "role", a.Role())
	assert.Contains(t, b.Agents(), "worker")
}

func TestAgent_SendAndMessages(t *testing.T) {
	b := newTestBroker(t, "peer")
	a, err := newAgent("worker", "role", b, nil, nil)
	require.NoError(t, err)

	ok := a.Send(context.Background(), "peer", "hello", "", map[string]string{"k": "v"})
	assert.True(t, ok)
	assert.False(t, a.Send(context.Background(), "nobody", "hello", "", nil))

	msgs := drain(t, b, "peer")
	require.Len(t, msgs, 1)
	assert.Equal(t, "worker", msgs[0].Sender)
	assert.Equal(t, core.DefaultMessageType, msgs[0].MessageType)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.NotEmpty(t, msgs[0].ID)

	a.Send(context.Background(), "worker", "self", "", nil)
	assert.Len(t, a.Messages(), 1)
	assert.Empty(t, a.Messages())
}

func TestAgent_ReplyCarriesRequestAndFlow(t *testing.T) {
	b := newTestBroker(t, "client")
	a, err := newAgent("worker", "role", b, nil, nil)
	require.NoError(t, err)

	req := core.NewMessage("req-1", "client", "worker", nil, "ping", map[string]string{core.MetaFlowID: "f1"})
	a.Reply(context.Background(), req, "pong", "pong")
	a.ReplyError(context.Background(), req, errors.New("broken"))

	msgs := drain(t, b, "client")
	require.Len(t, msgs, 2)
	assert.Equal(t, "req-1", msgs[0].Metadata[core.MetaRequestID])
	assert.Equal(t, "f1", msgs[0].Metadata[core.MetaFlowID])

	assert.Equal(t, core.MessageTypeError, msgs[1].MessageType)
	assert.Equal(t, "req-1", msgs[1].Metadata[core.MetaRequestID])
	assert.Equal(t, "broken", msgs[1].Metadata[core.MetaError])
	assert.Equal(t, Notice{Error: "broken"}, msgs[1].Content)
}

func TestAgent_ServeDispatchesUntilCancelled(t *testing.T) {
	b := newTestBroker(t, "client")
	a, err := newAgent("worker", "role", b, nil, []Option{WithPollInterval(10 * time.Millisecond)})
	require.NoError(t, err)

	h := &recordingHandler{got: make(chan core.Message, 4)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, h) }()

	_, err = b.Publish(context.Background(), core.NewMessage("m1", "client", "worker", 1, "", nil))
	require.NoError(t, err)

	select {
	case msg := <-h.got:
		assert.Equal(t, "m1", msg.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestAgent_ServeStopsWithBroker(t *testing.T) {
	b := newTestBroker(t)
	a, err := newAgent("worker", "role", b, nil, []Option{WithPollInterval(10 * time.Millisecond)})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Serve(context.Background(), a) }()
	b.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop")
	}
}

type panicHandler struct{}

func (panicHandler) HandleMessage(context.Context, core.Message) { panic("boom") }

func TestAgent_DispatchRecoversPanic(t *testing.T) {
	b := newTestBroker(t)
	a, err := newAgent("worker", "role", b, nil, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		a.dispatch(context.Background(), panicHandler{}, core.NewMessage("m", "s", "worker", nil, "", nil))
	})
}
