package storage

import (
	"context"

	"github.com/poiesic/retrievio/core"
)

// VectorRepository stores chunk embeddings and answers nearest-neighbour queries.
type VectorRepository interface {
	// Store upserts one record per index. All slices must have the same length.
	// Records whose id already exists keep their InsertedAt timestamp.
	Store(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]string) error

	// Query returns up to k records closest to vector, ordered by ascending
	// distance (1 - cosine similarity). When filter is non-empty only records
	// whose metadata contains every key/value pair in filter are considered.
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]*core.QueryHit, error)

	// Get retrieves a single record by id.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id string) (*core.VectorRecord, error)

	// Update rewrites existing records, refreshing UpdatedAt.
	// Returns ErrNotFound if any record doesn't exist.
	Update(ctx context.Context, records ...*core.VectorRecord) error

	// Delete removes records by id. Missing ids are ignored.
	Delete(ctx context.Context, ids ...string) error

	// ForEach calls fn with batches of at most batchSize records in key order.
	// Iteration stops at the first error returned by fn.
	ForEach(ctx context.Context, batchSize int, fn func(batch []*core.VectorRecord) error) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}

// FlowRepository persists flow snapshots.
type FlowRepository interface {
	// SaveFlow upserts the snapshot for f.ID.
	SaveFlow(ctx context.Context, f core.Flow) error

	// GetFlow returns the latest snapshot of flowID.
	// Returns ErrNotFound if the flow was never saved.
	GetFlow(ctx context.Context, flowID string) (*core.Flow, error)

	// ListFlows returns every saved flow ordered by start time.
	ListFlows(ctx context.Context) ([]core.Flow, error)
}
