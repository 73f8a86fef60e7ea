// Package channel implements the SSH connection protocol multiplexer
// (RFC 4254): the channel table, the open/close state machine, window-
// based flow control, and request/reply pairing for CHANNEL_REQUEST.
package channel

import (
	"io"
	"sync"

	"github.com/riglite/sshcore/transport"
)

// Defaults per spec.md §4.6: a 2 MiB local receive window and a 32 KiB
// maximum packet size, advertised in every CHANNEL_OPEN this library sends.
const (
	DefaultInitialWindow = 2 * 1024 * 1024
	DefaultMaxPacket     = 32 * 1024
)

// State is the channel's position in the open/close state machine.
// There is no transition back out of Closed.
type State int

const (
	StateOpening State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type openResult struct {
	peerID      uint32
	peerWindow  uint32
	peerMaxPkt  uint32
	failed      bool
	reasonCode  uint32
	description string
}

// requestWaiter is queued for one want_reply CHANNEL_REQUEST; the next
// CHANNEL_SUCCESS/CHANNEL_FAILURE dequeues the head and resolves it.
type requestWaiter chan bool

// Channel is one multiplexed SSH connection-protocol channel.
type Channel struct {
	table *Table
	t     *transport.Transport

	localID uint32
	typ     string

	mu          sync.Mutex
	state       State
	peerID      uint32
	peerMaxPkt  uint32
	eofSent     bool
	eofReceived bool
	closeSent   bool
	closeRecvd  bool

	openCh chan openResult

	localWindow uint32 // decremented by Run's dispatch goroutine only
	peerWindow  *window

	stdout *dataBuffer
	stderr *dataBuffer

	reqMu    sync.Mutex
	reqQueue []requestWaiter

	exitStatus    int
	exitStatusSet bool
}

func newChannel(table *Table, t *transport.Transport, localID uint32, typ string) *Channel {
	return &Channel{
		table:       table,
		t:           t,
		localID:     localID,
		typ:         typ,
		state:       StateOpening,
		localWindow: DefaultInitialWindow,
		peerWindow:  newWindow(0),
		openCh:      make(chan openResult, 1),
		stdout:      newDataBuffer(),
		stderr:      newDataBuffer(),
	}
}

// LocalID returns the id this side chose for the channel.
func (c *Channel) LocalID() uint32 {
	return c.localID
}

// Stdout is the channel's primary data stream.
func (c *Channel) Stdout() io.Reader { return c.stdout }

// Stderr is the channel's extended data (type 1) stream.
func (c *Channel) Stderr() io.Reader { return c.stderr }

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ExitStatus returns the exit-status reported via a CHANNEL_REQUEST
// "exit-status", if one has arrived.
func (c *Channel) ExitStatus() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitStatus, c.exitStatusSet
}

func (c *Channel) setExitStatus(n int) {
	c.mu.Lock()
	c.exitStatus = n
	c.exitStatusSet = true
	c.mu.Unlock()
}
