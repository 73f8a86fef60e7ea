package channel

import "github.com/riglite/sshcore/errstring"

var (
	// ErrChannelOpenRejected is returned by Open when the peer replies
	// with CHANNEL_OPEN_FAILURE.
	ErrChannelOpenRejected = errstring.New("channel: open rejected by peer")
	// ErrClosed is returned by any operation attempted on a channel that
	// has completed its close handshake.
	ErrClosed = errstring.New("channel: closed")
	// ErrWindowOverflow is returned when a WINDOW_ADJUST would overflow
	// the peer window counter (RFC 4254 §5.2 treats this as a protocol
	// error).
	ErrWindowOverflow = errstring.New("channel: window adjust overflow")
	// ErrUnknownChannel marks an incoming message whose recipient channel
	// id does not name a live channel in the table.
	ErrUnknownChannel = errstring.New("channel: unknown channel id")
)
