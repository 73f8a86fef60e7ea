package channel

import (
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

// consumeLocalWindow accounts for n bytes of inbound CHANNEL_DATA or
// CHANNEL_EXTENDED_DATA, replenishing the local window with a
// WINDOW_ADJUST once it has fallen below half of its initial size
// (spec.md §4.6). It runs synchronously on Transport.Run's dispatch
// goroutine, same as the write that delivered the data.
func (c *Channel) consumeLocalWindow(n uint32) {
	c.mu.Lock()
	if n > c.localWindow {
		c.localWindow = 0
	} else {
		c.localWindow -= n
	}
	low := c.localWindow < DefaultInitialWindow/2
	peerID := c.peerID
	c.mu.Unlock()

	if !low {
		return
	}
	add := uint32(DefaultInitialWindow) - c.localWindowSnapshot()
	if add == 0 {
		return
	}
	w := wire.NewWriter(12)
	w.PutU8(transport.MsgChannelWindowAdjust).PutU32(peerID).PutU32(add)
	if err := c.t.SendPacket(w.Bytes()); err == nil {
		c.mu.Lock()
		c.localWindow += add
		c.mu.Unlock()
	}
}

func (c *Channel) localWindowSnapshot() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localWindow
}

// Read reads from the channel's primary (stdout) stream.
func (c *Channel) Read(p []byte) (int, error) {
	return c.stdout.Read(p)
}

// ReadStderr reads from the channel's extended-data (stderr) stream.
func (c *Channel) ReadStderr(p []byte) (int, error) {
	return c.stderr.Read(p)
}

// Write sends p as one or more CHANNEL_DATA messages, fragmented so that
// no single message exceeds the peer's advertised maximum packet size or
// the remaining peer window; it blocks cooperatively when the peer
// window is exhausted, waking once a WINDOW_ADJUST arrives.
func (c *Channel) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		c.mu.Lock()
		closed := c.state == StateClosed
		peerID := c.peerID
		maxPkt := c.peerMaxPkt
		c.mu.Unlock()
		if closed {
			return total, ErrClosed
		}

		chunkLimit := len(p)
		if uint32(chunkLimit) > maxPkt {
			chunkLimit = int(maxPkt)
		}
		reserved, ok := c.peerWindow.reserve(uint32(chunkLimit))
		if !ok {
			return total, ErrClosed
		}
		if reserved == 0 {
			continue
		}
		chunk := p[:reserved]

		w := wire.NewWriter(len(chunk) + 16)
		w.PutU8(transport.MsgChannelData).PutU32(peerID).PutBytes(chunk)
		if err := c.t.SendPacket(w.Bytes()); err != nil {
			return total, err
		}

		total += len(chunk)
		p = p[len(chunk):]
	}
	return total, nil
}
