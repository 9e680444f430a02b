package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// Some slicers emit very long lines (object labels, thumbnails); the scanner
// buffer grows up to this before a line is considered unreadable.
const maxLineBytes = 1 << 20

// LineSource yields input lines in order. Next returns io.EOF when the
// stream is exhausted; any other error aborts the run.
type LineSource interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// ReaderSource adapts any io.Reader into a LineSource.
type ReaderSource struct {
	scanner *bufio.Scanner
}

// NewReaderSource creates a LineSource over r.
func NewReaderSource(r io.Reader) *ReaderSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &ReaderSource{scanner: scanner}
}

// Next returns the next line without its terminator.
func (s *ReaderSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadingInput, err)
	}
	return "", io.EOF
}

// Close is a no-op; the underlying reader is owned by the caller.
func (s *ReaderSource) Close() error { return nil }

// FileSource reads a G-code file line by line.
type FileSource struct {
	*ReaderSource
	file *os.File
}

// NewFileSource opens path for reading.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpeningInput, err)
	}
	return &FileSource{ReaderSource: NewReaderSource(f), file: f}, nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error { return s.file.Close() }
