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

// Package document turns files on disk into text chunks and keeps the
// artifacts of processed documents.
//
// Extraction is format specific: PDFExtractor reads PDF text layers and
// TextExtractor reads plain text and Markdown. MultiExtractor picks one by
// file extension.
//
// Chunker splits text into overlapping windows that end on a word boundary
// when one is available. Archive moves processed documents out of the watch
// directory and stores their chunks and engagement analysis as JSON.
package document
