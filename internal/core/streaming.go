package core

// streaming.go provides the readers a source is decoded through.
//
// Sources are never loaded into memory. A file is read through:
//
//   - CountingReader: tracks compressed bytes read for progress reporting
//   - gzip decompression
//   - NewTextReader: strips a byte-order mark and replaces invalid UTF-8
//     with U+FFFD instead of failing
//
// OpenSource assembles the chain.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader decodes r as UTF-8 text. A leading UTF-8 BOM is removed;
// a UTF-16 BOM switches decoding to UTF-16. Invalid sequences become U+FFFD.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// CountingReader wraps an io.Reader to track bytes read.
// Used for progress reporting while a source streams.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{
		reader: r,
		Total:  total,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	p := int(r.BytesRead * 100 / r.Total)
	if p > 100 {
		p = 100
	}
	return p
}
