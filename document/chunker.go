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

package document

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/poiesic/retrievio/core"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits text into overlapping windows measured in characters.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker returns a chunker producing windows of at most size characters,
// each starting overlap characters before the previous one ended.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkConfig, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text into chunks. A window that does not reach the end of the
// text is shortened to end just after its last space; a window without a
// space is cut at the size limit. Offsets count runes, not bytes.
//
// Every chunk carries a copy of metadata plus its start_idx and end_idx.
func (c *Chunker) Split(text string, metadata map[string]string) []core.Chunk {
	runes := []rune(text)
	chunks := make([]core.Chunk, 0, len(runes)/(c.size-c.overlap)+1)

	start := 0
	for start < len(runes) {
		end := min(start+c.size, len(runes))
		if end < len(runes) {
			if space := lastSpace(runes, start, end); space > start {
				end = space + 1
			}
		}

		md := maps.Clone(metadata)
		if md == nil {
			md = make(map[string]string, 2)
		}
		md[core.MetaStartIdx] = strconv.Itoa(start)
		md[core.MetaEndIdx] = strconv.Itoa(end)

		chunks = append(chunks, core.Chunk{
			Text:        string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
			Metadata:    md,
		})

		if end == len(runes) {
			break
		}
		start = max(end-c.overlap, start+1)
	}
	return chunks
}

func lastSpace(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
