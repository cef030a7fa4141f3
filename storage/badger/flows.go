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

package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/storage"
)

// FlowRepository persists flow snapshots so finished flows can be listed
// after the process that ran them exits.
type FlowRepository struct {
	backend *Backend
}

var _ storage.FlowRepository = (*FlowRepository)(nil)

func NewFlowRepository(backend *Backend) *FlowRepository {
	return &FlowRepository{
		backend: backend,
	}
}

func (r *FlowRepository) SaveFlow(ctx context.Context, f core.Flow) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeFlowKey(f.ID), storage.MarshalFlow(&f)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (r *FlowRepository) GetFlow(ctx context.Context, flowID string) (*core.Flow, error) {
	var f *core.Flow
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeFlowKey(flowID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			f, unmarshalErr = storage.UnmarshalFlow(val)
			return unmarshalErr
		})
	}, false)

	return f, err
}

func (r *FlowRepository) ListFlows(ctx context.Context) ([]core.Flow, error) {
	var flows []core.Flow
	err := r.backend.scanPrefix([]byte(flowPrefix), func(_, val []byte) error {
		f, err := storage.UnmarshalFlow(val)
		if err != nil {
			return err
		}
		flows = append(flows, *f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(flows, func(a, b core.Flow) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return flows, nil
}
