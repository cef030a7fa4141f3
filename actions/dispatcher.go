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

package actions

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Action names.
const (
	SetWorkspace    = "set_workspace"
	ProcessDocument = "process_document"
	Search          = "search"
	Ask             = "ask"
)

// Action is a named request with its input.
type Action struct {
	Name     string
	Input    any
	Metadata map[string]string
}

// Result is the outcome of handling an Action.
type Result struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler performs an action.
type Handler func(ctx context.Context, input any, metadata map[string]string) (any, error)

// Dispatcher maps action names to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDispatcher creates a dispatcher with the built-in actions registered.
func NewDispatcher(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With("component", "actions")

	if err := d.Register(SetWorkspace, setWorkspace); err != nil {
		return nil, err
	}
	return d, nil
}

// Register binds name to h, replacing any previous handler.
func (d *Dispatcher) Register(name string, h Handler) error {
	if h == nil {
		return fmt.Errorf("%w: %s", ErrHandlerRequired, name)
	}
	d.mu.Lock()
	d.handlers[name] = h
	d.mu.Unlock()
	d.logger.Debug("registered action handler", "action", name)
	return nil
}

// Names lists registered actions in sorted order.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Handle runs the handler registered for a.Name. Failures, including
// unknown actions, are reported in the Result.
func (d *Dispatcher) Handle(ctx context.Context, a Action) Result {
	d.mu.RLock()
	h, ok := d.handlers[a.Name]
	d.mu.RUnlock()

	var (
		out any
		err error
	)
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownAction, a.Name)
	} else {
		out, err = h(ctx, a.Input, a.Metadata)
	}
	if err != nil {
		d.logger.Error("action handling error", "action", a.Name, "err", err)
		return Result{Success: false, Action: a.Name, Error: err.Error()}
	}
	return Result{Success: true, Action: a.Name, Result: out}
}

// Input asserts that input is a T, failing with ErrValidation otherwise.
func Input[T any](action string, input any) (T, error) {
	v, ok := input.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s expects %T, got %T", ErrValidation, action, zero, input)
	}
	return v, nil
}

// Workspace is the result of set_workspace.
type Workspace struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

func setWorkspace(_ context.Context, input any, _ map[string]string) (any, error) {
	path, err := Input[string](SetWorkspace, input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: %s expects a path", ErrValidation, SetWorkspace)
	}
	path, err = ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return Workspace{Path: path, Exists: true}, nil
}

// ExpandPath replaces a leading ~ with the home directory and makes the
// result absolute.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
