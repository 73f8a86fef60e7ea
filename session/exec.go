package session

import (
	"context"
	"fmt"

	"github.com/riglite/sshcore/channel"
	"github.com/riglite/sshcore/wire"
)

// ExecOptions collects the knobs an ExecOption can set.
type ExecOptions struct{}

// ExecOption is a functional option for OpenExec, following the same
// shape as the teacher's exec.Option. No options are defined yet; the
// type exists so future knobs (e.g. environment variables) don't break
// OpenExec's signature.
type ExecOption func(*ExecOptions)

// ExecChannel is a CHANNEL_OPEN "session" channel that has run the
// "exec" request (spec.md §4.7). Read/Write move stdout/stdin; StderrRead
// reads the extended-data stream; ExitStatus reports the exit status and
// whether the peer has sent one yet. There is no method that blocks until
// the exit status arrives or the channel closes.
type ExecChannel struct {
	ch *channel.Channel
}

func (e *ExecChannel) Read(p []byte) (int, error)       { return e.ch.Read(p) }
func (e *ExecChannel) Write(p []byte) (int, error)      { return e.ch.Write(p) }
func (e *ExecChannel) StderrRead(p []byte) (int, error) { return e.ch.ReadStderr(p) }
func (e *ExecChannel) Close() error                     { return e.ch.Close() }
func (e *ExecChannel) ExitStatus() (int, bool)          { return e.ch.ExitStatus() }

// CloseWrite sends CHANNEL_EOF, signaling the remote command's stdin is
// done without closing the channel (stdout/stderr may still be read).
func (e *ExecChannel) CloseWrite() error { return e.ch.SendEOF() }

// OpenExec opens a session channel and runs CHANNEL_REQUEST "exec" with
// cmd as its payload (spec.md §4.7).
func (s *Session) OpenExec(ctx context.Context, cmd string, opts ...ExecOption) (*ExecChannel, error) {
	var o ExecOptions
	for _, opt := range opts {
		opt(&o)
	}

	ch, err := s.openChannel(ctx, "session")
	if err != nil {
		return nil, err
	}

	w := wire.NewWriter(len(cmd) + 8)
	w.PutString(cmd)
	ok, err := ch.SendRequest("exec", true, w.Bytes())
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	if !ok {
		_ = ch.Close()
		return nil, fmt.Errorf("session: exec request rejected for command %q", cmd)
	}
	return &ExecChannel{ch: ch}, nil
}
