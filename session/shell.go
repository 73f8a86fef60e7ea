package session

import (
	"context"
	"fmt"

	"github.com/riglite/sshcore/channel"
	"github.com/riglite/sshcore/wire"
)

// Terminal mode opcodes used to encode ShellOptions.Modes (spec.md §4.7).
// TTY_OP_ISPEED and TTY_OP_OSPEED are mandatory; every other POSIX opcode
// is optional and supplied via ShellOptions.Modes.
const (
	ttyOpISpeed uint8 = 128
	ttyOpOSpeed uint8 = 129
	ttyOpEnd    uint8 = 0

	defaultBaudRate = 115200
)

// ShellOptions collects the pty-req parameters an interactive shell needs.
type ShellOptions struct {
	Term          string
	Width, Height uint32
	WidthPx       uint32
	HeightPx      uint32
	// Modes carries optional POSIX terminal mode opcodes beyond the two
	// mandatory speed entries (spec.md §4.7 ADD).
	Modes map[uint8]uint32
}

func defaultShellOptions() ShellOptions {
	return ShellOptions{Term: "xterm", Width: 80, Height: 24, WidthPx: 640, HeightPx: 480}
}

// ShellOption is a functional option for OpenShell, in the teacher's
// `type Option func(*Options)` shape.
type ShellOption func(*ShellOptions)

// WithTerm overrides the TERM environment value sent in pty-req.
func WithTerm(term string) ShellOption {
	return func(o *ShellOptions) { o.Term = term }
}

// WithWindowSize overrides the character and pixel dimensions sent in pty-req.
func WithWindowSize(cols, rows, widthPx, heightPx uint32) ShellOption {
	return func(o *ShellOptions) {
		o.Width, o.Height = cols, rows
		o.WidthPx, o.HeightPx = widthPx, heightPx
	}
}

// WithTerminalMode sets one optional POSIX terminal mode opcode.
func WithTerminalMode(opcode uint8, value uint32) ShellOption {
	return func(o *ShellOptions) {
		if o.Modes == nil {
			o.Modes = make(map[uint8]uint32)
		}
		o.Modes[opcode] = value
	}
}

// encodeModes builds the pty-req modes string: opcode/value pairs, always
// including the mandatory ISPEED/OSPEED entries, terminated by opcode 0
// (spec.md §4.7).
func encodeModes(modes map[uint8]uint32) []byte {
	w := wire.NewWriter(8*(len(modes)+2) + 1)
	w.PutU8(ttyOpISpeed).PutU32(defaultBaudRate)
	w.PutU8(ttyOpOSpeed).PutU32(defaultBaudRate)
	for opcode, value := range modes {
		if opcode == ttyOpISpeed || opcode == ttyOpOSpeed {
			continue
		}
		w.PutU8(opcode).PutU32(value)
	}
	w.PutU8(ttyOpEnd)
	return w.Bytes()
}

// ShellChannel is a "session" channel with an active pty and shell
// (spec.md §4.7). Read/Write move the pty's output/input.
type ShellChannel struct {
	ch *channel.Channel
}

func (s *ShellChannel) Read(p []byte) (int, error)  { return s.ch.Read(p) }
func (s *ShellChannel) Write(p []byte) (int, error) { return s.ch.Write(p) }
func (s *ShellChannel) Close() error                { return s.ch.Close() }

// WindowChange sends a "window-change" request reporting new pty dimensions.
func (s *ShellChannel) WindowChange(cols, rows, widthPx, heightPx uint32) error {
	w := wire.NewWriter(16)
	w.PutU32(cols).PutU32(rows).PutU32(widthPx).PutU32(heightPx)
	_, err := s.ch.SendRequest("window-change", false, w.Bytes())
	return err
}

// OpenShell opens a session channel, requests a pseudo-terminal, and
// starts an interactive shell on it (spec.md §4.7).
func (s *Session) OpenShell(ctx context.Context, opts ...ShellOption) (*ShellChannel, error) {
	o := defaultShellOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ch, err := s.openChannel(ctx, "session")
	if err != nil {
		return nil, err
	}

	pw := wire.NewWriter(len(o.Term) + 32 + 8*(len(o.Modes)+2))
	pw.PutString(o.Term).PutU32(o.Width).PutU32(o.Height).PutU32(o.WidthPx).PutU32(o.HeightPx)
	pw.PutBytes(encodeModes(o.Modes))

	ok, err := ch.SendRequest("pty-req", true, pw.Bytes())
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	if !ok {
		_ = ch.Close()
		return nil, fmt.Errorf("session: pty-req rejected")
	}

	ok, err = ch.SendRequest("shell", true, nil)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	if !ok {
		_ = ch.Close()
		return nil, fmt.Errorf("session: shell request rejected")
	}

	return &ShellChannel{ch: ch}, nil
}
