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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/retrievio/core"
)

// Archive stores the outputs of processed documents under a root directory:
//
//	<root>/<name>                          the moved source document
//	<root>/<stem>/chunks/chunk_0000.json   one file per chunk
//	<root>/<stem>/engagement.json          the engagement analysis
type Archive struct {
	root   string
	logger *slog.Logger
}

// NewArchive creates root if needed.
func NewArchive(root string, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive %s: %w", root, err)
	}
	return &Archive{root: root, logger: logger.With("component", "archive")}, nil
}

func (a *Archive) Root() string { return a.root }

type chunkFile struct {
	Text     string            `json:"text"`
	StartIdx int               `json:"start_idx"`
	EndIdx   int               `json:"end_idx"`
	Metadata map[string]string `json:"metadata"`
}

// SaveChunks writes chunks for the document at path and returns the directory used.
func (a *Archive) SaveChunks(path string, chunks []core.Chunk) (string, error) {
	dir := filepath.Join(a.root, stem(path), "chunks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	for i, c := range chunks {
		name := filepath.Join(dir, fmt.Sprintf("chunk_%04d.json", i))
		if err := writeJSON(name, chunkFile{
			Text:     c.Text,
			StartIdx: c.StartOffset,
			EndIdx:   c.EndOffset,
			Metadata: c.Metadata,
		}); err != nil {
			return "", err
		}
	}
	a.logger.Debug("saved chunks", "document", path, "count", len(chunks))
	return dir, nil
}

// SaveEngagement writes the engagement analysis for the document at path.
func (a *Archive) SaveEngagement(path string, engagement any) (string, error) {
	name := a.EngagementPath(path)
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(name, engagement); err != nil {
		return "", err
	}
	return name, nil
}

// EngagementPath is where the engagement analysis for the document at path
// is archived.
func (a *Archive) EngagementPath(path string) string {
	return filepath.Join(a.root, stem(path), "engagement.json")
}

// MoveProcessed moves the document at path into the archive root and returns
// its new location.
func (a *Archive) MoveProcessed(path string) (string, error) {
	dest := filepath.Join(a.root, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("moving %s: %w", path, err)
	}
	a.logger.Info("archived document", "from", path, "to", dest)
	return dest, nil
}

func writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(name, data, 0o644)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
