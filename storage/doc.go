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

// Package storage provides the storage abstraction layer for retrievio.
//
// Repository interfaces decouple the vector store agent and the flow
// coordinator from BadgerDB. Agents depend on VectorRepository and
// FlowRepository only; the badger subpackage supplies the implementation.
//
// # Architecture
//
//   - VectorRepository: chunk text, embeddings and metadata with
//     nearest-neighbour queries
//   - FlowRepository: persisted snapshots of pipeline flows
//
// Records are encoded with mus-go; see serialization.go.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/vectordb", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vectors, err := badger.NewVectorRepository(backend)
//
// Tests use in-memory storage:
//
//	vectors, flows, backend, err := badger.NewMemoryStores()
//
// # Thread Safety
//
// All repository implementations must be safe for concurrent use.
package storage
