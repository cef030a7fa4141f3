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

package agents

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/messaging"
	"github.com/poiesic/retrievio/offload"
)

// DefaultPollInterval bounds how long Serve blocks on an empty mailbox
// before rechecking for shutdown.
const DefaultPollInterval = 250 * time.Millisecond

// Handler processes one message taken from an agent's mailbox.
type Handler interface {
	HandleMessage(ctx context.Context, msg core.Message)
}

// Runner is an agent with a receive loop.
type Runner interface {
	Name() string
	Run(ctx context.Context) error
}

// Agent is the messaging core shared by all agents.
type Agent struct {
	name   string
	role   string
	broker *messaging.Broker
	pool   *offload.Pool
	logger *slog.Logger
	poll   time.Duration
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger for the agent.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPollInterval sets how long Serve waits on an empty mailbox.
func WithPollInterval(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.poll = d
		}
	}
}

func newAgent(name, role string, broker *messaging.Broker, pool *offload.Pool, opts []Option) (*Agent, error) {
	if broker == nil {
		return nil, ErrBrokerRequired
	}
	a := &Agent{
		name:   name,
		role:   role,
		broker: broker,
		pool:   pool,
		logger: slog.Default(),
		poll:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("agent", name)

	if err := broker.Register(name); err != nil {
		return nil, err
	}
	return a, nil
}

// Name returns the agent's mailbox name.
func (a *Agent) Name() string { return a.name }

// Role returns the model role the agent runs under.
func (a *Agent) Role() string { return a.role }

// Send publishes a message from this agent and reports whether at least one
// target received it. Delivery failures are logged.
func (a *Agent) Send(ctx context.Context, receiver string, content any, messageType string, metadata map[string]string) bool {
	msg := core.NewMessage(uuid.NewString(), a.name, receiver, content, messageType, metadata)
	ok, err := a.broker.Publish(ctx, msg)
	if err != nil {
		a.logger.Warn("message not fully delivered",
			"receiver", receiver, "type", messageType, "delivered", ok, "err", err)
	}
	return ok
}

// Notify publishes to this agent's subscribers only.
func (a *Agent) Notify(ctx context.Context, content any, messageType string, metadata map[string]string) bool {
	return a.Send(ctx, "", content, messageType, metadata)
}

// Reply answers req, tagging the response with the request id and any flow id.
func (a *Agent) Reply(ctx context.Context, req core.Message, content any, messageType string) bool {
	md := map[string]string{core.MetaRequestID: req.ID}
	if id := req.Metadata[core.MetaFlowID]; id != "" {
		md[core.MetaFlowID] = id
	}
	return a.Send(ctx, req.Sender, content, messageType, md)
}

// ReplyError answers req with an error message.
func (a *Agent) ReplyError(ctx context.Context, req core.Message, err error) bool {
	a.logger.Error("request failed", "request", req.ID, "type", req.MessageType, "from", req.Sender, "err", err)
	md := map[string]string{
		core.MetaRequestID: req.ID,
		core.MetaError:     err.Error(),
	}
	return a.Send(ctx, req.Sender, Notice{Error: err.Error()}, core.MessageTypeError, md)
}

// WaitForMessage waits up to timeout for the next message.
func (a *Agent) WaitForMessage(ctx context.Context, timeout time.Duration) (core.Message, bool, error) {
	return a.broker.Next(ctx, a.name, timeout)
}

// Messages drains every pending message without waiting.
func (a *Agent) Messages() []core.Message {
	msgs, err := a.broker.DrainAll(a.name)
	if err != nil {
		a.logger.Error("draining mailbox", "err", err)
		return []core.Message{}
	}
	return msgs
}

// HandleMessage is the default handler: it only logs the message.
func (a *Agent) HandleMessage(ctx context.Context, msg core.Message) {
	a.logger.Debug("message received", "from", msg.Sender, "type", msg.MessageType, "id", msg.ID)
}

// Serve feeds mailbox messages to h until ctx ends or the broker stops.
func (a *Agent) Serve(ctx context.Context, h Handler) error {
	a.logger.Debug("agent serving")
	defer a.logger.Debug("agent stopped")

	for !a.broker.Stopped() {
		msg, ok, err := a.broker.Next(ctx, a.name, a.poll)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if ok {
			a.dispatch(ctx, h, msg)
		}
	}
	return nil
}

func (a *Agent) dispatch(ctx context.Context, h Handler, msg core.Message) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("handler panicked", "type", msg.MessageType, "id", msg.ID, "panic", r)
		}
	}()
	h.HandleMessage(ctx, msg)
}

func (a *Agent) requirePool() error {
	if a.pool == nil {
		return ErrPoolRequired
	}
	return nil
}
