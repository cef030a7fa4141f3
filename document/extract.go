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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor pulls plain text out of a document on disk.
type Extractor interface {
	// Extract returns the text of the document at path.
	Extract(ctx context.Context, path string) (string, error)

	// Extensions lists the lower-case file extensions handled, with the leading dot.
	Extensions() []string
}

// PDFExtractor reads the text layer of PDF documents.
type PDFExtractor struct{}

func (PDFExtractor) Extensions() []string { return []string{".pdf"} }

func (PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExtractionFailed, path, err)
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExtractionFailed, path, err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExtractionFailed, path, err)
	}
	return sb.String(), nil
}

// TextExtractor reads plain text and Markdown files as-is.
type TextExtractor struct{}

func (TextExtractor) Extensions() []string { return []string{".txt", ".md"} }

func (TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExtractionFailed, path, err)
	}
	return string(data), nil
}

// MultiExtractor dispatches to the first extractor registered for a file's
// extension.
type MultiExtractor struct {
	byExt map[string]Extractor
	exts  []string
}

// NewMultiExtractor builds a dispatcher over extractors. Later extractors
// do not override extensions claimed by earlier ones.
func NewMultiExtractor(extractors ...Extractor) *MultiExtractor {
	m := &MultiExtractor{byExt: make(map[string]Extractor)}
	for _, e := range extractors {
		for _, ext := range e.Extensions() {
			if _, ok := m.byExt[ext]; ok {
				continue
			}
			m.byExt[ext] = e
			m.exts = append(m.exts, ext)
		}
	}
	slices.Sort(m.exts)
	return m
}

// DefaultExtractor handles PDF, plain text and Markdown.
func DefaultExtractor() *MultiExtractor {
	return NewMultiExtractor(PDFExtractor{}, TextExtractor{})
}

func (m *MultiExtractor) Extensions() []string {
	return slices.Clone(m.exts)
}

// Supports reports whether path has an extension some extractor handles.
func (m *MultiExtractor) Supports(path string) bool {
	_, ok := m.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (m *MultiExtractor) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := m.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return e.Extract(ctx, path)
}
