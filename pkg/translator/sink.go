package translator

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// Sink receives assembly lines in order. Translate owns its lifecycle and
// calls Close exactly once.
type Sink interface {
	WriteLine(line string) error
	Close() error
}

type writerSink struct {
	w      *bufio.Writer
	closer io.Closer
}

// NewWriterSink writes lines to w. Close flushes but does not close w.
func NewWriterSink(w io.Writer) Sink {
	return &writerSink{w: bufio.NewWriter(w)}
}

// NewFileSink creates (or truncates) path. Close flushes and closes the file.
func NewFileSink(path string) (Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &writerSink{w: bufio.NewWriter(f), closer: f}, nil
}

func (s *writerSink) WriteLine(line string) error {
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *writerSink) Close() error {
	err := s.w.Flush()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}
