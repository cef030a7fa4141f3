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

// Package flow tracks the progress of multi-stage operations, one flow per
// document. It is independent of message delivery: agents update flows
// directly as they finish pipeline stages.
package flow

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/poiesic/retrievio/core"
)

// Recorder persists flow snapshots. Recording is best effort.
type Recorder interface {
	SaveFlow(ctx context.Context, f core.Flow) error
}

// Coordinator holds the status of every flow started in this process.
type Coordinator struct {
	mu    sync.RWMutex
	flows map[string]*core.Flow
	// recordMu is taken before mu is released so snapshots reach the
	// recorder in the order the changes were made.
	recordMu sync.Mutex
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithLogger sets the coordinator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithRecorder writes every flow change through to r.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) error {
		c.recorder = r
		return nil
	}
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator(opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		flows:  make(map[string]*core.Flow),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "flow")
	return c, nil
}

// StartFlow begins tracking flowID with status "started" and current step
// "parsing". Starting a flow id that already exists replaces it.
func (c *Coordinator) StartFlow(flowID, subject string) {
	now := c.now()
	f := &core.Flow{
		ID:             flowID,
		Subject:        subject,
		Status:         core.FlowStatusStarted,
		StepsCompleted: []string{},
		CurrentStep:    core.StepParsing,
		StartedAt:      now,
		UpdatedAt:      now,
	}

	c.mu.Lock()
	if _, exists := c.flows[flowID]; exists {
		c.logger.Warn("flow restarted, previous state discarded", "flow", flowID)
	}
	c.flows[flowID] = f
	snapshot := cloneFlow(f)
	c.recordMu.Lock()
	c.mu.Unlock()
	defer c.recordMu.Unlock()

	c.logger.Info("flow started", "flow", flowID, "subject", subject)
	c.record(snapshot)
}

// UpdateFlow sets the status of flowID and appends step to its completed
// steps. Updates to unknown flows are ignored.
func (c *Coordinator) UpdateFlow(flowID, status, step string) {
	c.mu.Lock()
	f, ok := c.flows[flowID]
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("update for unknown flow ignored", "flow", flowID, "status", status)
		return
	}
	f.Status = status
	f.StepsCompleted = append(f.StepsCompleted, step)
	f.UpdatedAt = c.now()
	snapshot := cloneFlow(f)
	c.recordMu.Lock()
	c.mu.Unlock()
	defer c.recordMu.Unlock()

	c.logger.Debug("flow updated", "flow", flowID, "status", status, "step", step)
	c.record(snapshot)
}

// Status returns a snapshot of flowID, or the zero Flow if it is unknown.
func (c *Coordinator) Status(flowID string) core.Flow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.flows[flowID]
	if !ok {
		return core.Flow{}
	}
	return cloneFlow(f)
}

// Flows returns snapshots of every flow ordered by start time.
func (c *Coordinator) Flows() []core.Flow {
	c.mu.RLock()
	out := make([]core.Flow, 0, len(c.flows))
	for _, f := range c.flows {
		out = append(out, cloneFlow(f))
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func (c *Coordinator) record(f core.Flow) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.SaveFlow(context.Background(), f); err != nil {
		c.logger.Error("failed to record flow", "flow", f.ID, "error", err)
	}
}

func cloneFlow(f *core.Flow) core.Flow {
	out := *f
	out.StepsCompleted = slices.Clone(f.StepsCompleted)
	if out.StepsCompleted == nil {
		out.StepsCompleted = []string{}
	}
	return out
}
