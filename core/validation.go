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

import (
	"fmt"
)

// ValidateMessage validates a Message before it is published.
//
// Validation rules:
//   - ID must not be empty
//   - Sender must not be empty
//
// NOT validated:
//   - Receiver (may be empty for subscription-only delivery)
//   - Content (opaque to the broker)
//   - ID uniqueness (the caller's responsibility)
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if msg.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyMessageID)
	}

	if msg.Sender == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptySender)
	}

	return nil
}

// ValidateChunk validates a Chunk produced by the chunker.
//
// Validation rules:
//   - Text must not be empty
//   - StartOffset must not be negative and must precede EndOffset
//
// NOT validated:
//   - Vector (empty until the embedder runs)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.StartOffset < 0 || chunk.EndOffset <= chunk.StartOffset {
		return fmt.Errorf("%w: %w: [%d, %d)", ErrInvalidChunk, ErrInvalidOffsets, chunk.StartOffset, chunk.EndOffset)
	}

	return nil
}

// ValidateVectorRecord validates a record before it is written to storage.
func ValidateVectorRecord(record *VectorRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidVectorRecord)
	}

	if record.Id == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidVectorRecord)
	}

	if record.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidVectorRecord, ErrEmptyContent)
	}

	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidVectorRecord, ErrEmptyVector)
	}

	return nil
}
