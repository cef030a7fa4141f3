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

// Package search answers queries over the stored document chunks.
//
// The Searcher drives the query processor, vector store and QA agents:
//   - the query is embedded and matched against stored chunk vectors
//   - hits are formatted with a relevance percentage
//   - chunks containing every non-stop-word query term are ranked first
//   - results below the minimum relevance are dropped
//
// Ask feeds the surviving passages to the QA agent.
package search
