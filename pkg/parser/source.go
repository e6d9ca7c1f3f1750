package parser

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// MaxLineBytes is the longest line kept intact. Longer lines are reported
// with ErrLineTooLong and skipped.
const MaxLineBytes = 1024 * 1024

var (
	// ErrLineTooLong marks a line longer than MaxLineBytes.
	ErrLineTooLong = errors.New("line exceeds maximum length")

	// ErrInvalidUTF8 marks a line that is not valid UTF-8 text.
	ErrInvalidUTF8 = errors.New("line is not valid UTF-8")
)

// FileAccessError reports an input file that could not be opened or read.
type FileAccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("%s log file %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// LineSource provides an iterator over raw log lines.
// Implementations are for sequential access only.
type LineSource interface {
	// Next returns the next line. Returns io.EOF when no more lines are
	// available. Lines that could not be read intact are returned with
	// LogLine.Err set; any other error is fatal for the source.
	Next(ctx context.Context) (*LogLine, error)

	// Close releases any resources held by the source.
	Close() error
}

// ReaderSource reads lines from an io.Reader.
type ReaderSource struct {
	name    string
	r       *bufio.Reader
	lineNum int
}

// NewReaderSource creates a LineSource over r. name is reported as the
// LogLine source.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{
		name: name,
		r:    bufio.NewReaderSize(r, 64*1024),
	}
}

// Next returns the next line from the reader.
func (s *ReaderSource) Next(ctx context.Context) (*LogLine, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	raw, tooLong, err := readLine(s.r, MaxLineBytes)
	if err != nil {
		return nil, err
	}
	s.lineNum++

	line := &LogLine{Source: s.name, LineNum: s.lineNum}
	switch {
	case tooLong:
		line.Err = ErrLineTooLong
	case !utf8.Valid(raw):
		line.Err = ErrInvalidUTF8
	default:
		line.Content = string(raw)
	}
	return line, nil
}

// Close is a no-op; the caller owns the reader.
func (s *ReaderSource) Close() error {
	return nil
}

// readLine returns the next line without its terminator. A line longer
// than max is drained and reported with tooLong set.
func readLine(r *bufio.Reader, max int) (line []byte, tooLong bool, err error) {
	var buf []byte
	read := false
	for {
		chunk, err := r.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
		}
		if !tooLong && len(buf)+len(chunk) <= max+2 {
			buf = append(buf, chunk...)
		} else {
			tooLong = true
			buf = nil
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if !read {
				return nil, false, io.EOF
			}
			buf = trimEOL(buf)
			if len(buf) > max {
				return nil, true, nil
			}
			return buf, tooLong, nil
		case err != nil:
			return nil, false, err
		}

		buf = trimEOL(buf)
		if len(buf) > max {
			return nil, true, nil
		}
		return buf, tooLong, nil
	}
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}

// FileSource implements LineSource for a list of files read one after
// another.
type FileSource struct {
	files []string

	current   *os.File
	reader    *ReaderSource
	fileIndex int
}

// NewFileSource creates a LineSource that reads the given files in order.
func NewFileSource(files []string) *FileSource {
	return &FileSource{
		files:     files,
		fileIndex: -1,
	}
}

// Next returns the next line across all files. Returns io.EOF when every
// file has been exhausted. Failing to open or read a file returns a
// *FileAccessError.
func (s *FileSource) Next(ctx context.Context) (*LogLine, error) {
	for {
		if s.reader == nil {
			if err := s.openNextFile(); err != nil {
				return nil, err
			}
		}

		line, err := s.reader.Next(ctx)
		if err == nil {
			return line, nil
		}
		if !errors.Is(err, io.EOF) {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, &FileAccessError{Path: s.reader.name, Op: "reading", Err: err}
		}

		// Current file exhausted, try next
		if err := s.closeCurrentFile(); err != nil {
			return nil, err
		}
	}
}

// Current returns the path of the file being read, if any.
func (s *FileSource) Current() string {
	if s.reader == nil {
		return ""
	}
	return s.reader.name
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrentFile()
}

func (s *FileSource) openNextFile() error {
	s.fileIndex++
	if s.fileIndex >= len(s.files) {
		return io.EOF
	}

	path := s.files[s.fileIndex]
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return &FileAccessError{Path: path, Op: "opening", Err: err}
	}

	s.current = f
	s.reader = NewReaderSource(path, f)
	return nil
}

func (s *FileSource) closeCurrentFile() error {
	s.reader = nil
	if s.current != nil {
		err := s.current.Close()
		s.current = nil
		return err
	}
	return nil
}
