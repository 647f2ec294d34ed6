package core

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// DefaultSampleSize is the number of decoded bytes inspected for dialect detection.
const DefaultSampleSize = 8192

// Source is an open gzip-compressed delimited text file positioned after its
// header row.
type Source struct {
	Path    string
	Header  []string
	Dialect Dialect

	file    *os.File
	gz      *gzip.Reader
	counter *CountingReader
	reader  *csv.Reader
	closed  bool
}

// OpenSource opens path, detects its dialect from the first sampleSize
// decoded bytes and reads the header row. A file without a header row is an
// error. The caller must Close the source.
func OpenSource(path string, sampleSize int) (*Source, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	counter := NewCountingReader(f, size)

	gz, err := gzip.NewReader(counter)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open source %s: gzip: %w", path, err)
	}

	src := &Source{Path: path, file: f, gz: gz, counter: counter}

	br := bufio.NewReaderSize(NewTextReader(gz), max(sampleSize, 64*1024))
	sample, err := br.Peek(sampleSize)
	atEOF := errors.Is(err, io.EOF)
	if err != nil && !atEOF {
		src.Close()
		return nil, fmt.Errorf("open source %s: read sample: %w", path, err)
	}
	if !atEOF {
		// Drop the partial trailing line.
		if i := bytes.LastIndexByte(sample, '\n'); i >= 0 {
			sample = sample[:i+1]
		}
	}
	src.Dialect = DetectDialectOrDefault(sample)

	r := csv.NewReader(br)
	r.Comma = src.Dialect.Delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	src.reader = r

	header, err := r.Read()
	if err != nil {
		src.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("open source %s: empty file: missing header row", path)
		}
		return nil, fmt.Errorf("open source %s: read header: %w", path, err)
	}

	src.Header = make([]string, len(header))
	for i, h := range header {
		src.Header[i] = strings.TrimSpace(strings.ReplaceAll(h, "\ufeff", ""))
	}

	return src, nil
}

// Next returns the next record, or io.EOF at the end of the source.
// The returned slice is reused by the following call.
func (s *Source) Next() ([]string, error) {
	rec, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read source %s: %w", s.Path, err)
	}
	return rec, nil
}

// Line returns the input line of the most recently read record.
func (s *Source) Line() int {
	line, _ := s.reader.FieldPos(0)
	return line
}

// BytesRead returns the number of compressed bytes consumed so far.
func (s *Source) BytesRead() int64 {
	return s.counter.BytesRead
}

// Progress returns the share of the compressed file consumed (0-100).
func (s *Source) Progress() int {
	return s.counter.Progress()
}

// Close releases the decompressor and the file. It is safe to call twice.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var gzErr error
	if s.gz != nil {
		gzErr = s.gz.Close()
	}
	fileErr := s.file.Close()
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}
