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

// Package agents implements the workers that exchange messages over a
// messaging.Broker to ingest documents and answer questions about them.
//
// Every agent embeds Agent, which registers a mailbox under the agent's
// name and provides Send, Reply and a Serve loop that hands each incoming
// message to the agent's HandleMessage. Blocking collaborator calls
// (extraction, embedding, chat completion, storage) are offloaded to a
// shared offload.Pool.
//
// Agents and their mailbox names:
//
//	document_watcher  Watcher         announces new files in the watch directory
//	document_parser   Parser          extracts text from documents
//	text_chunker      Chunker         splits text into overlapping chunks
//	embedder          Embedder        embeds chunk text
//	vector_store      VectorStore     persists and searches chunk vectors
//	query_processor   QueryProcessor  embeds queries and formats hits
//	qa                QA              answers questions from retrieved chunks
//	engagement        Engagement      builds study material for a document
//	frontend          Frontend        collects notifications for the user
//
// Request messages (chunk_request, embed_request, process_query,
// format_results) are answered to the sender with a request_id metadata
// entry. Failed requests are answered with an "error" message.
package agents
