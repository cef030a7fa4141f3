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

package messaging

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/poiesic/retrievio/core"
)

// NoTimeout makes Next wait until a message arrives or the context ends.
const NoTimeout time.Duration = 0

// mailbox is an unbounded FIFO owned by a single agent.
// ready holds at most one pending wakeup; waiters re-check the queue after
// every wakeup so a stale signal is harmless.
type mailbox struct {
	mu    sync.Mutex
	queue []core.Message
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox) push(msg core.Message) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox) pop() (core.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return core.Message{}, false
	}
	msg := m.queue[0]
	m.queue[0] = core.Message{}
	m.queue = m.queue[1:]
	if len(m.queue) > 0 {
		// Pass the wakeup on to any other waiter.
		m.signal()
	}
	return msg, true
}

func (m *mailbox) drain() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Message, len(m.queue))
	copy(out, m.queue)
	m.queue = nil
	return out
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Registry owns one mailbox per registered agent.
// The map lock is held only to look up or create mailboxes, so deliveries
// to different agents never contend with each other.
type Registry struct {
	mu        sync.RWMutex
	mailboxes map[string]*mailbox
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{mailboxes: make(map[string]*mailbox)}
}

// Register creates an empty mailbox for agentID. Registering an agent that
// already has a mailbox is a no-op and keeps any queued messages.
func (r *Registry) Register(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mailboxes[agentID]; !ok {
		r.mailboxes[agentID] = newMailbox()
	}
}

// IsRegistered reports whether agentID has a mailbox.
func (r *Registry) IsRegistered(agentID string) bool {
	_, ok := r.lookup(agentID)
	return ok
}

// Deliver appends msg to the tail of agentID's mailbox.
func (r *Registry) Deliver(agentID string, msg core.Message) error {
	box, ok := r.lookup(agentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	box.push(msg)
	return nil
}

// Next removes and returns the oldest message in agentID's mailbox, waiting
// up to timeout for one to arrive. A timeout <= 0 waits indefinitely.
// found is false when the timeout elapses; that is not an error.
// If ctx ends first, Next returns ctx.Err().
func (r *Registry) Next(ctx context.Context, agentID string, timeout time.Duration) (core.Message, bool, error) {
	box, ok := r.lookup(agentID)
	if !ok {
		return core.Message{}, false, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		if msg, ok := box.pop(); ok {
			return msg, true, nil
		}
		select {
		case <-box.ready:
		case <-expired:
			// A message may have landed alongside the deadline.
			msg, ok := box.pop()
			return msg, ok, nil
		case <-ctx.Done():
			return core.Message{}, false, ctx.Err()
		}
	}
}

// DrainAll removes and returns every queued message in arrival order without
// waiting. The result is empty, never nil, when nothing is pending.
func (r *Registry) DrainAll(agentID string) ([]core.Message, error) {
	box, ok := r.lookup(agentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	return box.drain(), nil
}

// Pending returns the number of queued messages for agentID.
func (r *Registry) Pending(agentID string) (int, error) {
	box, ok := r.lookup(agentID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	return box.len(), nil
}

// Agents returns the registered agent names in sorted order.
func (r *Registry) Agents() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.mailboxes))
	for name := range r.mailboxes {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(agentID string) (*mailbox, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	box, ok := r.mailboxes[agentID]
	return box, ok
}
