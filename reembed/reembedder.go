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

package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/retrievio/ai"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/storage"
)

// Config holds configuration for a reembedding run.
type Config struct {
	// BatchSize is the number of records embedded per request.
	BatchSize int

	// ReportInterval is how many records pass between progress lines.
	ReportInterval int

	Backoff Backoff
}

func DefaultConfig() *Config {
	return &Config{
		BatchSize:      64,
		ReportInterval: 64,
		Backoff:        DefaultBackoff,
	}
}

// Reembedder re-embeds every record in a vector repository.
type Reembedder struct {
	repo      storage.VectorRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
}

// NewReembedder creates a reembedder. progress receives human-readable
// status lines and may be nil.
func NewReembedder(repo storage.VectorRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.Backoff),
	}
}

// Run re-embeds all records and returns how many were updated.
// A failing batch aborts the run; batches already written stay updated.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	total, err := r.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks stored, nothing to reembed\n")
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Reembedding %d chunks (batch size: %d)\n", total, r.config.BatchSize)
	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = r.repo.ForEach(ctx, r.config.BatchSize, func(batch []*core.VectorRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.processor.Process(ctx, batch); err != nil {
			return err
		}
		tracker.Add(len(batch))
		return nil
	})
	done := tracker.Current()
	if err != nil {
		return done, err
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete: %d chunks in %v\n", done, elapsed.Round(time.Millisecond))
	return done, nil
}
