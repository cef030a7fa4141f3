package badger

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/storage"
)

// VectorRepository stores chunk embeddings in BadgerDB and answers queries
// with an exhaustive cosine scan.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a vector repository on backend.
func NewVectorRepository(backend *Backend) (*VectorRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &VectorRepository{backend: backend}, nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *VectorRepository) Close() error {
	return nil
}

// Store upserts one record per id, keeping the InsertedAt of existing records.
func (r *VectorRepository) Store(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]string) error {
	if len(vectors) != len(ids) || len(texts) != len(ids) || (metadatas != nil && len(metadatas) != len(ids)) {
		return fmt.Errorf("%w: %d ids, %d vectors, %d texts, %d metadatas",
			storage.ErrLengthMismatch, len(ids), len(vectors), len(texts), len(metadatas))
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			record := &core.VectorRecord{
				Id:         id,
				Text:       texts[i],
				Vector:     vectors[i],
				InsertedAt: now,
				UpdatedAt:  now,
			}
			if metadatas != nil {
				record.Metadata = maps.Clone(metadatas[i])
			}
			if err := core.ValidateVectorRecord(record); err != nil {
				return err
			}

			key := makeVectorKey(id)
			old, err := readVectorRecord(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				record.InsertedAt = old.InsertedAt
			}
			if err := setTx(tx, key, storage.MarshalVectorRecord(record)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Query returns up to k records closest to vector that match filter.
func (r *VectorRepository) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]*core.QueryHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", storage.ErrInvalidQuery, k)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	queryNorm := norm(vector)
	var hits []*core.QueryHit
	err := r.backend.scanPrefix([]byte(vectorRecordPrefix), func(_, val []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := storage.UnmarshalVectorRecord(val)
		if err != nil {
			return err
		}
		if !matchesFilter(record.Metadata, filter) || len(record.Vector) == 0 {
			return nil
		}
		hits = append(hits, &core.QueryHit{
			Id:       record.Id,
			Text:     record.Text,
			Metadata: record.Metadata,
			Distance: 1 - cosine(vector, queryNorm, record.Vector),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(hits, func(a, b *core.QueryHit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Get retrieves a record by id.
func (r *VectorRepository) Get(ctx context.Context, id string) (*core.VectorRecord, error) {
	var record *core.VectorRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = readVectorRecord(tx, makeVectorKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, storage.ErrNotFound
	}
	return record, nil
}

// Update rewrites existing records and refreshes their UpdatedAt.
func (r *VectorRepository) Update(ctx context.Context, records ...*core.VectorRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if err := core.ValidateVectorRecord(record); err != nil {
				return err
			}
			key := makeVectorKey(record.Id)
			old, err := readVectorRecord(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: %s", storage.ErrNotFound, record.Id)
			}

			record.InsertedAt = old.InsertedAt
			record.UpdatedAt = time.Now().UTC()
			if err := setTx(tx, key, storage.MarshalVectorRecord(record)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Delete removes records by id. Missing ids are ignored.
func (r *VectorRepository) Delete(ctx context.Context, ids ...string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeVectorKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ForEach walks every record in key order, batchSize records at a time.
func (r *VectorRepository) ForEach(ctx context.Context, batchSize int, fn func(batch []*core.VectorRecord) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", storage.ErrInvalidQuery, batchSize)
	}

	// Collect first so fn may write back to the repository without holding
	// the read transaction open.
	var all []*core.VectorRecord
	err := r.backend.scanPrefix([]byte(vectorRecordPrefix), func(_, val []byte) error {
		record, err := storage.UnmarshalVectorRecord(val)
		if err != nil {
			return err
		}
		all = append(all, record)
		return nil
	})
	if err != nil {
		return err
	}

	for batch := range slices.Chunk(all, batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored records.
func (r *VectorRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

func readVectorRecord(tx *badger.Txn, key []byte) (*core.VectorRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record *core.VectorRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalVectorRecord(val)
		return unmarshalErr
	})
	return record, err
}

// setTx writes key inside tx. Large batches can overflow a single badger
// transaction; those surface as badger.ErrTxnTooBig to the caller.
func setTx(tx *badger.Txn, key, value []byte) error {
	if err := tx.Set(key, value); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns the cosine similarity of a and b; aNorm is |a|.
// Vectors of different length are compared over their common prefix.
func cosine(a []float32, aNorm float64, b []float32) float32 {
	bNorm := norm(b)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (aNorm * bNorm))
}
