package messaging

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/retrievio/core"
)

func testMessage(id, sender, receiver string) core.Message {
	return core.NewMessage(id, sender, receiver, "payload-"+id, "", nil)
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("a")
	require.NoError(t, r.Deliver("a", testMessage("m1", "x", "a")))

	r.Register("a")

	assert.Equal(t, []string{"a"}, r.Agents())
	n, err := r.Pending("a")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "re-registering must keep queued messages")
}

func TestRegistry_DeliverUnknownAgent(t *testing.T) {
	r := NewRegistry()
	err := r.Deliver("ghost", testMessage("m1", "x", "ghost"))
	assert.ErrorIs(t, err, ErrUnknownAgent)
	assert.False(t, r.IsRegistered("ghost"))
}

func TestRegistry_NextReturnsOldestFirst(t *testing.T) {
	r := NewRegistry()
	r.Register("a")
	for i := range 3 {
		require.NoError(t, r.Deliver("a", testMessage(fmt.Sprintf("m%d", i), "x", "a")))
	}

	for i := range 3 {
		msg, found, err := r.Next(context.Background(), "a", time.Second)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.ID)
	}
}

func TestRegistry_NextTimesOut(t *testing.T) {
	r := NewRegistry()
	r.Register("a")

	start := time.Now()
	msg, found, err := r.Next(context.Background(), "a", 200*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err, "timeout is not an error")
	assert.False(t, found)
	assert.Empty(t, msg.ID)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
}

func TestRegistry_NextWakesOnDelivery(t *testing.T) {
	r := NewRegistry()
	r.Register("a")

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = r.Deliver("a", testMessage("late", "x", "a"))
	}()

	msg, found, err := r.Next(context.Background(), "a", 2*time.Second)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "late", msg.ID)
}

func TestRegistry_NextNoTimeoutHonoursContext(t *testing.T) {
	r := NewRegistry()
	r.Register("a")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, found, err := r.Next(ctx, "a", NoTimeout)
	assert.False(t, found)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry_NextUnknownAgent(t *testing.T) {
	r := NewRegistry()
	_, found, err := r.Next(context.Background(), "ghost", 10*time.Millisecond)
	assert.False(t, found)
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestRegistry_DrainAll(t *testing.T) {
	r := NewRegistry()
	r.Register("a")
	for i := range 4 {
		require.NoError(t, r.Deliver("a", testMessage(fmt.Sprintf("m%d", i), "x", "a")))
	}

	msgs, err := r.DrainAll("a")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, msg := range msgs {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.ID)
	}

	again, err := r.DrainAll("a")
	require.NoError(t, err)
	assert.NotNil(t, again)
	assert.Empty(t, again)
}

func TestRegistry_ConcurrentWaitersEachGetOneMessage(t *testing.T) {
	r := NewRegistry()
	r.Register("a")

	const waiters = 8
	var wg sync.WaitGroup
	got := make(chan string, waiters)
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, found, err := r.Next(context.Background(), "a", 2*time.Second)
			if err == nil && found {
				got <- msg.ID
			}
		}()
	}

	for i := range waiters {
		require.NoError(t, r.Deliver("a", testMessage(fmt.Sprintf("m%d", i), "x", "a")))
	}
	wg.Wait()
	close(got)

	seen := make(map[string]bool)
	for id := range got {
		assert.False(t, seen[id], "message %s delivered twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, waiters)
}

func TestSubscriptions_Resolve(t *testing.T) {
	s := NewSubscriptions()
	s.Subscribe("x", "sender")
	s.Subscribe("y", "sender")
	s.Subscribe("x", "sender")

	assert.Equal(t, []string{"x", "y"}, s.Subscribers("sender"))
	assert.Equal(t, []string{"r", "x", "y"}, s.Resolve("sender", "r"))
	assert.Equal(t, []string{"x", "y"}, s.Resolve("sender", ""))
	assert.Equal(t, []string{"x", "y"}, s.Resolve("sender", "x"), "receiver that is also a subscriber appears once")
	assert.Empty(t, s.Resolve("nobody", ""))
}

func TestSubscriptions_Directed(t *testing.T) {
	s := NewSubscriptions()
	s.Subscribe("x", "y")
	assert.Empty(t, s.Subscribers("x"))
}

func TestSubscriptions_Unsubscribe(t *testing.T) {
	s := NewSubscriptions()
	s.Subscribe("x", "sender")
	s.Unsubscribe("x", "sender")
	s.Unsubscribe("x", "other")
	assert.Empty(t, s.Subscribers("sender"))
}
