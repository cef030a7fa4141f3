package document

import "errors"

var (
	// ErrUnsupportedFormat is returned when no extractor handles a file extension.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtractionFailed is returned when a document cannot be read.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrInvalidChunkConfig is returned for a non-positive size or an overlap
	// that is not smaller than the size.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")
)
