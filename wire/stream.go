package wire

import (
	"bufio"
	"io"

	"github.com/wippyai/avro-runtime/errors"
)

// StreamReader is a Source over an io.Reader. Its remaining count is a
// budget set by the caller rather than the true input size, so lengths
// read from the stream can never exceed it.
type StreamReader struct {
	Depth
	r      *bufio.Reader
	budget int
	pos    int64
}

// NewStreamReader creates a StreamReader allowing budget bytes to be read
// before the next SetBudget.
func NewStreamReader(r io.Reader, budget int) *StreamReader {
	return &StreamReader{r: bufio.NewReader(r), budget: budget}
}

// SetBudget sets the number of bytes that may be read next.
func (s *StreamReader) SetBudget(n int) { s.budget = n }

// Position returns the number of bytes consumed so far.
func (s *StreamReader) Position() int64 { return s.pos }

// Remaining returns the unspent budget.
func (s *StreamReader) Remaining() int { return s.budget }

// AtEOF reports whether the underlying reader is exhausted.
func (s *StreamReader) AtEOF() (bool, error) {
	_, err := s.r.Peek(1)
	if err == io.EOF {
		return true, nil
	}
	return false, err
}

func (s *StreamReader) ReadByte() (byte, error) {
	if s.budget < 1 {
		return 0, s.overBudget(1)
	}
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, s.readErr(err, 1)
	}
	s.budget--
	s.pos++
	return b, nil
}

// Next reads exactly n bytes into a fresh slice.
func (s *StreamReader) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.MalformedInput(errors.PhaseDecode, "negative length %d at offset %d", n, s.pos)
	}
	if n > s.budget {
		return nil, s.overBudget(n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, s.readErr(err, n)
	}
	s.budget -= n
	s.pos += int64(n)
	return buf, nil
}

func (s *StreamReader) overBudget(n int) error {
	return errors.MalformedInput(errors.PhaseDecode, "%d bytes at offset %d exceed the %d byte limit", n, s.pos, s.budget)
}

func (s *StreamReader) readErr(err error, n int) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return truncated(int(s.pos), n)
	}
	return errors.Wrap(errors.PhaseDecode, errors.KindMalformedInput, err, "reading input")
}
