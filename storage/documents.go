package storage

import (
	"cmp"
	"context"
	"slices"
	"strconv"

	"github.com/poiesic/retrievio/core"
)

// documentScanBatch is the ForEach batch size used by the document summaries.
const documentScanBatch = 256

// DocumentInfo summarises the stored chunks of one document.
type DocumentInfo struct {
	FileName   string `json:"file_name"`
	Chunks     int    `json:"chunks"`
	FirstStart int    `json:"first_start"`
	LastEnd    int    `json:"last_end"`
}

// Documents returns a summary of every document with stored chunks, ordered
// by file name. Chunks without a file name are skipped.
func Documents(ctx context.Context, repo VectorRepository) ([]DocumentInfo, error) {
	byName := make(map[string]*DocumentInfo)
	err := repo.ForEach(ctx, documentScanBatch, func(batch []*core.VectorRecord) error {
		for _, rec := range batch {
			name := rec.Metadata[core.MetaFileName]
			if name == "" {
				continue
			}
			info, ok := byName[name]
			if !ok {
				info = &DocumentInfo{FileName: name, FirstStart: -1, LastEnd: -1}
				byName[name] = info
			}
			info.add(rec.Metadata)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]DocumentInfo, 0, len(byName))
	for _, info := range byName {
		out = append(out, *info)
	}
	slices.SortFunc(out, func(a, b DocumentInfo) int {
		return cmp.Compare(a.FileName, b.FileName)
	})
	return out, nil
}

// DocumentByName returns the summary for fileName.
// Returns ErrNotFound if no chunk of fileName is stored.
func DocumentByName(ctx context.Context, repo VectorRepository, fileName string) (DocumentInfo, error) {
	docs, err := Documents(ctx, repo)
	if err != nil {
		return DocumentInfo{}, err
	}
	for _, d := range docs {
		if d.FileName == fileName {
			return d, nil
		}
	}
	return DocumentInfo{}, ErrNotFound
}

// add folds one chunk's offsets into the summary. Offsets that are missing
// or not integers leave the range unchanged.
func (d *DocumentInfo) add(metadata map[string]string) {
	d.Chunks++
	if start, err := strconv.Atoi(metadata[core.MetaStartIdx]); err == nil {
		if d.FirstStart < 0 || start < d.FirstStart {
			d.FirstStart = start
		}
	}
	if end, err := strconv.Atoi(metadata[core.MetaEndIdx]); err == nil {
		if end > d.LastEnd {
			d.LastEnd = end
		}
	}
}
