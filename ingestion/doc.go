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

// Package ingestion runs a document through the processing agents.
//
// A Pipeline takes a document path and drives it through parsing, chunking,
// embedding, storage, engagement analysis and archiving. Every run is
// tracked as a flow in a flow.Coordinator: the flow advances after each
// stage and a flow_status notice is published from the agent that did the
// work. A failing stage ends the run with an error and leaves the flow at
// the last completed stage.
//
// # Usage
//
//	p, err := ingestion.NewPipeline(ingestion.Stages{
//	    Parser: parser, Chunker: chunker, Embedder: embedder,
//	    Store: store, Engagement: engagement,
//	}, coordinator, archive)
//	report, err := p.ProcessDocument(ctx, "/watch/paper.pdf")
package ingestion
