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
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/poiesic/retrievio/core"
)

const (
	// DefaultTickInterval is how often Run wakes up to check for shutdown.
	DefaultTickInterval = 100 * time.Millisecond
	// DefaultMaxFanout bounds the goroutines used by a single Publish.
	DefaultMaxFanout = 16
)

// Broker routes published messages to the explicit receiver and to every
// subscriber of the sender.
type Broker struct {
	registry      *Registry
	subscriptions *Subscriptions
	logger        *slog.Logger
	tickInterval  time.Duration
	maxFanout     int

	stopped  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

// Option configures a Broker.
type Option func(*Broker) error

// WithLogger sets the logger used by the broker.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) error {
		if logger != nil {
			b.logger = logger
		}
		return nil
	}
}

// WithTickInterval sets how often Run checks for shutdown.
func WithTickInterval(d time.Duration) Option {
	return func(b *Broker) error {
		if d <= 0 {
			return errors.New("tick interval must be positive")
		}
		b.tickInterval = d
		return nil
	}
}

// WithMaxFanout bounds the number of concurrent deliveries per publish.
func WithMaxFanout(n int) Option {
	return func(b *Broker) error {
		if n <= 0 {
			return errors.New("max fanout must be positive")
		}
		b.maxFanout = n
		return nil
	}
}

// NewBroker creates a broker with an empty registry and subscription table.
func NewBroker(opts ...Option) (*Broker, error) {
	b := &Broker{
		registry:      NewRegistry(),
		subscriptions: NewSubscriptions(),
		logger:        slog.Default(),
		tickInterval:  DefaultTickInterval,
		maxFanout:     DefaultMaxFanout,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "broker")
	return b, nil
}

// Register gives agentID a mailbox. Registering twice is a no-op.
func (b *Broker) Register(agentID string) error {
	if b.stopped.Load() {
		return ErrBrokerStopped
	}
	b.registry.Register(agentID)
	b.logger.Debug("agent registered", "agent", agentID)
	return nil
}

// Subscribe delivers a copy of every message publisher sends to subscriber.
func (b *Broker) Subscribe(subscriber, publisher string) error {
	if b.stopped.Load() {
		return ErrBrokerStopped
	}
	b.subscriptions.Subscribe(subscriber, publisher)
	b.logger.Debug("subscription added", "subscriber", subscriber, "publisher", publisher)
	return nil
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(subscriber, publisher string) {
	b.subscriptions.Unsubscribe(subscriber, publisher)
}

type deliveryResult struct {
	target string
	err    error
}

// Publish delivers msg to its receiver and to every subscriber of its sender.
// Each target gets exactly one copy, and deliveries run concurrently.
//
// The boolean reports whether at least one delivery succeeded; it is also
// true when the message had no targets at all. A non-nil error is a
// *DeliveryError describing the failed targets, and matches
// ErrDeliveryPartialFailure when some targets still received the message.
func (b *Broker) Publish(ctx context.Context, msg core.Message) (bool, error) {
	if b.stopped.Load() {
		return false, ErrBrokerStopped
	}
	if err := core.ValidateMessage(&msg); err != nil {
		return false, err
	}

	targets := b.subscriptions.Resolve(msg.Sender, msg.Receiver)
	if len(targets) == 0 {
		b.logger.Debug("message has no targets", "id", msg.ID, "sender", msg.Sender, "type", msg.MessageType)
		return true, nil
	}

	p := pool.NewWithResults[deliveryResult]().WithMaxGoroutines(b.maxFanout)
	for _, target := range targets {
		p.Go(func() deliveryResult {
			if err := ctx.Err(); err != nil {
				return deliveryResult{target: target, err: err}
			}
			return deliveryResult{target: target, err: b.registry.Deliver(target, msg.Copy())}
		})
	}
	results := p.Wait()

	var derr *DeliveryError
	delivered := 0
	for _, res := range results {
		if res.err == nil {
			delivered++
			continue
		}
		b.logger.Error("delivery failed",
			"id", msg.ID, "sender", msg.Sender, "target", res.target, "error", res.err)
		if derr == nil {
			derr = &DeliveryError{MessageID: msg.ID, Failed: make(map[string]error)}
		}
		derr.Failed[res.target] = res.err
	}

	if derr == nil {
		b.logger.Debug("message published",
			"id", msg.ID, "sender", msg.Sender, "type", msg.MessageType, "targets", len(targets))
		return true, nil
	}
	derr.Delivered = delivered
	return delivered > 0, derr
}

// Next waits up to timeout for agentID's oldest message. See Registry.Next.
func (b *Broker) Next(ctx context.Context, agentID string, timeout time.Duration) (core.Message, bool, error) {
	return b.registry.Next(ctx, agentID, timeout)
}

// DrainAll returns every queued message for agentID without waiting.
func (b *Broker) DrainAll(agentID string) ([]core.Message, error) {
	return b.registry.DrainAll(agentID)
}

// Pending returns the number of messages queued for agentID.
func (b *Broker) Pending(agentID string) (int, error) {
	return b.registry.Pending(agentID)
}

// Agents lists registered agents.
func (b *Broker) Agents() []string {
	return b.registry.Agents()
}

// Subscribers lists the subscribers of publisher.
func (b *Broker) Subscribers(publisher string) []string {
	return b.subscriptions.Subscribers(publisher)
}

// Run keeps the broker alive until Stop is called or ctx ends.
// Delivery happens inside Publish, so the loop only yields.
func (b *Broker) Run(ctx context.Context) error {
	b.logger.Info("broker started")
	ticker := time.NewTicker(b.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			b.logger.Info("broker stopped")
			return nil
		case <-ctx.Done():
			b.logger.Info("broker context done", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stop signals Run to return and rejects further publishes. Safe to call more than once.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		b.stopped.Store(true)
		close(b.stopCh)
	})
}

// Stopped reports whether Stop has been called.
func (b *Broker) Stopped() bool {
	return b.stopped.Load()
}
