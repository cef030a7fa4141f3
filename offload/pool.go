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

// Package offload runs blocking calls on a bounded worker pool so that the
// goroutines serving agent mailboxes never wait on network or disk I/O
// directly.
//
//	pool, err := offload.NewPool(offload.WithPoolSize(4))
//	defer pool.Release()
//
//	text, err := offload.Do(ctx, pool, func(ctx context.Context) (string, error) {
//	    return extractor.Extract(ctx, path)
//	})
package offload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
)

var (
	// ErrPoolClosed is returned when work is submitted after Release.
	ErrPoolClosed = errors.New("offload pool closed")

	// ErrPanic wraps a panic raised by offloaded work.
	ErrPanic = errors.New("offloaded call panicked")
)

// Pool is a bounded set of goroutines for blocking calls.
type Pool struct {
	pool   *ants.Pool
	size   int
	logger *slog.Logger
}

// Option configures a Pool.
type Option func(*Pool) error

// WithPoolSize sets the number of workers.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pool) error {
		if size < 1 {
			size = 1
		}
		p.size = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPool creates a worker pool.
func NewPool(opts ...Option) (*Pool, error) {
	p := &Pool{
		size:   max(runtime.NumCPU()/2, 1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "offload")

	pool, err := ants.NewPool(p.size)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// Size returns the configured number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Running returns the number of workers currently executing calls.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release stops accepting work. Calls already running finish normally.
func (p *Pool) Release() {
	p.pool.Release()
}

type result[T any] struct {
	value T
	err   error
}

// Do runs fn on the pool and waits for its result or for ctx to end.
// When ctx ends first Do returns ctx.Err() immediately; fn keeps running
// with the same ctx and its result is discarded. A panic inside fn is
// returned as an error wrapping ErrPanic.
func Do[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	done := make(chan result[T], 1)
	err := p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("offloaded call panicked", "panic", r)
				done <- result[T]{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		v, err := fn(ctx)
		done <- result[T]{value: v, err: err}
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return zero, ErrPoolClosed
		}
		return zero, fmt.Errorf("submit: %w", err)
	}

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Go runs fn on the pool without waiting. Errors are logged.
func (p *Pool) Go(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	err := p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("background task panicked", "task", name, "panic", r)
			}
		}()
		if err := fn(ctx); err != nil {
			p.logger.Error("background task failed", "task", name, "error", err)
		}
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}
