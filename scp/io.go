package scp

import (
	"bufio"
	"fmt"
	"io"
)

// session wraps the buffered read/write halves of the exec channel the
// SCP sub-protocol runs over, plus the ACK convention both sink and
// source roles use: a bare 0 byte for success, or a code byte (1
// warning, 2 fatal) followed by text and a newline (spec.md §4.7).
type session struct {
	r *bufio.Reader
	w io.Writer
}

func newSCPSession(ch Channel) *session {
	return &session{r: bufio.NewReader(ch), w: ch}
}

func (s *session) ack() error {
	_, err := s.w.Write([]byte{ackOK})
	return err
}

// readAck reads one ACK byte, returning ErrScpProtocol if the peer
// reported a warning or fatal condition.
func (s *session) readAck() error {
	code, err := s.r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: reading ack: %w", ErrScpProtocol, err)
	}
	if code == ackOK {
		return nil
	}
	text, _ := s.r.ReadString('\n')
	return fmt.Errorf("%w: peer reported: %s", ErrScpProtocol, text)
}

// readLine reads one control line up to and including '\n', returning it
// with the trailing newline stripped. io.EOF propagates unchanged so
// callers can distinguish a clean end of transfer from a protocol error.
func (s *session) readLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return "", io.EOF
		}
		return "", fmt.Errorf("%w: reading control line: %w", ErrScpProtocol, err)
	}
	return line[:len(line)-1], nil
}

func (s *session) writeLine(line string) error {
	_, err := io.WriteString(s.w, line)
	return err
}
