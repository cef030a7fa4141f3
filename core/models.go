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
	"encoding/binary"
	"maps"
	"math"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a fixed-width identifier used to key stored records.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DefaultMessageType is used when a message is created without an explicit type.
const DefaultMessageType = "data"

// Message types exchanged between agents.
const (
	MessageTypeDocumentDetected  = "document_detected"
	MessageTypeFlowStatus        = "flow_status"
	MessageTypeChunksCreated     = "chunks_created"
	MessageTypeChunkingFailed    = "chunking_failed"
	MessageTypeChunkRequest      = "chunk_request"
	MessageTypeChunkResponse     = "chunk_response"
	MessageTypeEmbedRequest      = "embed_request"
	MessageTypeEmbedResponse     = "embed_response"
	MessageTypeEmbeddingsCreated = "embeddings_created"
	MessageTypeEmbeddingFailed   = "embedding_failed"
	MessageTypeChunksStored      = "chunks_stored"
	MessageTypeProcessQuery      = "process_query"
	MessageTypeQueryProcessed    = "query_processed"
	MessageTypeQueryFailed       = "query_failed"
	MessageTypeFormatResults     = "format_results"
	MessageTypeResultsFormatted  = "results_formatted"
	MessageTypeAnswerReady       = "answer_ready"
	MessageTypeEngagementReady   = "engagement_ready"
	MessageTypeError             = "error"
)

// Message is the unit passed between agents through the broker.
// A message is treated as immutable once published.
type Message struct {
	ID          string
	Sender      string
	Receiver    string // empty when delivery is driven purely by subscriptions
	Content     any
	MessageType string
	Metadata    map[string]string
}

// NewMessage builds a message, defaulting the type to DefaultMessageType and
// taking a private copy of metadata.
func NewMessage(id, sender, receiver string, content any, messageType string, metadata map[string]string) Message {
	if messageType == "" {
		messageType = DefaultMessageType
	}
	return Message{
		ID:          id,
		Sender:      sender,
		Receiver:    receiver,
		Content:     content,
		MessageType: messageType,
		Metadata:    maps.Clone(metadata),
	}
}

// Copy returns a message whose metadata map is not shared with m.
// Content is shared; callers must not mutate it after publishing.
func (m Message) Copy() Message {
	m.Metadata = maps.Clone(m.Metadata)
	return m
}

// Flow statuses used by the document pipeline. The coordinator does not
// enforce transitions between them.
const (
	FlowStatusStarted   = "started"
	FlowStatusParsed    = "parsed"
	FlowStatusChunked   = "chunked"
	FlowStatusEmbedded  = "embedded"
	FlowStatusStored    = "stored"
	FlowStatusAnalyzing = "analyzing"
	FlowStatusCompleted = "completed"
)

// Flow step labels.
const (
	StepParsing   = "parsing"
	StepChunking  = "chunking"
	StepEmbedding = "embedding"
	StepStoring   = "storing"
	StepAnalyzing = "analyzing"
	StepArchiving = "archiving"
)

// Flow tracks the progress of one document through the pipeline.
type Flow struct {
	ID             string
	Subject        string
	Status         string
	StepsCompleted []string
	CurrentStep    string // set when the flow starts, never advanced
	StartedAt      time.Time
	UpdatedAt      time.Time
}

// IsZero reports whether f is the empty record returned for unknown flows.
func (f Flow) IsZero() bool {
	return f.ID == "" && f.Status == "" && len(f.StepsCompleted) == 0
}

// Chunk metadata keys.
const (
	MetaSourceFile   = "source_file"
	MetaFileName     = "file_name"
	MetaStartIdx     = "start_idx"
	MetaEndIdx       = "end_idx"
	MetaCreationTime = "creation_time"
	MetaFlowID       = "flow_id"
	MetaRequestID    = "request_id"
	MetaError        = "error"
)

// Chunk is a contiguous slice of a document's text.
type Chunk struct {
	Text        string
	StartOffset int
	EndOffset   int
	Metadata    map[string]string
	Vector      []float32 // populated by the embedder
}

// VectorRecord is a chunk as persisted by the vector store.
type VectorRecord struct {
	Id         string
	Text       string
	Vector     []float32
	Metadata   map[string]string
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// QueryHit is a raw nearest-neighbour result. Distance is 1 - cosine similarity.
type QueryHit struct {
	Id       string
	Text     string
	Metadata map[string]string
	Distance float32
}

// SearchResult is a formatted query hit presented to users.
type SearchResult struct {
	Rank      int
	Text      string
	File      string
	Relevance float64 // percentage, two decimals
	Metadata  map[string]string
}

// Relevance converts a distance into a percentage rounded to two decimals.
func Relevance(distance float32) float64 {
	return math.Round((1-float64(distance))*100*100) / 100
}
