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
	"log/slog"

	"github.com/poiesic/retrievio/core"
)

// Communicator is a synchronous point-to-point channel between agents.
// Send never blocks, and Receive drains whatever is queued.
// Unlike the Broker it reports unknown agents by logging and returning false
// instead of an error.
type Communicator struct {
	registry *Registry
	logger   *slog.Logger
}

// NewCommunicator creates a communicator. A nil logger uses slog.Default().
func NewCommunicator(logger *slog.Logger) *Communicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Communicator{
		registry: NewRegistry(),
		logger:   logger.With("component", "communicator"),
	}
}

// Register creates a queue for name if it does not exist.
func (c *Communicator) Register(name string) {
	c.registry.Register(name)
}

// Send enqueues msg for its receiver. It returns false when the receiver
// is not registered.
func (c *Communicator) Send(msg core.Message) bool {
	if err := c.registry.Deliver(msg.Receiver, msg.Copy()); err != nil {
		c.logger.Error("send failed", "id", msg.ID, "receiver", msg.Receiver, "error", err)
		return false
	}
	return true
}

// Receive returns every queued message for name in arrival order.
func (c *Communicator) Receive(name string) []core.Message {
	msgs, err := c.registry.DrainAll(name)
	if err != nil {
		c.logger.Error("receive failed", "agent", name, "error", err)
		return []core.Message{}
	}
	return msgs
}
