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

	"github.com/poiesic/retrievio/ai"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/storage"
)

// BatchProcessor re-embeds one batch of stored records.
type BatchProcessor struct {
	repo     storage.VectorRepository
	embedder ai.Embedder
	backoff  Backoff
}

func NewBatchProcessor(repo storage.VectorRepository, embedder ai.Embedder, backoff Backoff) *BatchProcessor {
	return &BatchProcessor{repo: repo, embedder: embedder, backoff: backoff}
}

// EmbedTexts embeds texts with retries and returns unit-length vectors.
func EmbedTexts(ctx context.Context, embedder ai.Embedder, backoff Backoff, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := backoff.Retry(ctx, func(ctx context.Context) error {
		var err error
		vectors, err = embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts after %d attempts: %w", len(texts), backoff.Attempts, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(texts), len(vectors))
	}
	return NormalizeAll(vectors), nil
}

// Process replaces the vectors of records and writes them back.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}

	vectors, err := EmbedTexts(ctx, bp.embedder, bp.backoff, texts)
	if err != nil {
		return err
	}
	for i := range records {
		records[i].Vector = vectors[i]
	}

	if err := bp.repo.Update(ctx, records...); err != nil {
		return fmt.Errorf("updating %d records: %w", len(records), err)
	}
	return nil
}
