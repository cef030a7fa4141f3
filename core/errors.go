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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrEmptyMessageID indicates the message ID is empty.
	ErrEmptyMessageID = errors.New("message id cannot be empty")

	// ErrEmptySender indicates the message sender is empty.
	ErrEmptySender = errors.New("message sender cannot be empty")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyContent indicates the Text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidOffsets indicates chunk offsets are out of order.
	ErrInvalidOffsets = errors.New("chunk offsets out of order")

	// ErrInvalidVectorRecord indicates a VectorRecord failed validation.
	ErrInvalidVectorRecord = errors.New("invalid vector record")

	// ErrEmptyVector indicates a record has no embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")
)
