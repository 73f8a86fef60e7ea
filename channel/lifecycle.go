package channel

import (
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

// PeerID returns the id the peer chose for this channel, valid once Open
// has returned successfully.
func (c *Channel) PeerID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerID
}

// SendEOF sends CHANNEL_EOF if it has not already been sent.
func (c *Channel) SendEOF() error {
	c.mu.Lock()
	if c.eofSent || c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.eofSent = true
	peerID := c.peerID
	c.mu.Unlock()

	w := wire.NewWriter(8)
	w.PutU8(transport.MsgChannelEOF).PutU32(peerID)
	return c.t.SendPacket(w.Bytes())
}

func (c *Channel) markEOFReceived() {
	c.mu.Lock()
	c.eofReceived = true
	c.mu.Unlock()
	c.stdout.setEOF()
	c.stderr.setEOF()
}

// Close runs this side of the close handshake (spec.md §4.6): send EOF,
// then send CLOSE if not already sent. It returns without waiting for the
// peer's CLOSE; the channel becomes Closed and its local id is freed when
// that CLOSE arrives (handlePeerClose). Safe to call more than once.
func (c *Channel) Close() error {
	if err := c.SendEOF(); err != nil {
		return err
	}

	c.mu.Lock()
	alreadyClosed := c.state == StateClosed
	alreadySent := c.closeSent
	peerID := c.peerID
	c.mu.Unlock()
	if alreadyClosed {
		return nil
	}

	if !alreadySent {
		w := wire.NewWriter(8)
		w.PutU8(transport.MsgChannelClose).PutU32(peerID)
		if err := c.t.SendPacket(w.Bytes()); err != nil {
			return err
		}
		c.mu.Lock()
		c.closeSent = true
		c.mu.Unlock()
	}
	return nil
}

// handlePeerClose implements the CLOSE-receipt rule: if we have not sent
// CLOSE yet, send it now; once both directions have exchanged CLOSE, the
// channel is Closed and its local id is freed.
func (c *Channel) handlePeerClose() error {
	c.mu.Lock()
	c.closeRecvd = true
	needSend := !c.closeSent
	peerID := c.peerID
	c.mu.Unlock()

	if needSend {
		w := wire.NewWriter(8)
		w.PutU8(transport.MsgChannelClose).PutU32(peerID)
		if err := c.t.SendPacket(w.Bytes()); err != nil {
			return err
		}
		c.mu.Lock()
		c.closeSent = true
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()

	c.stdout.setEOF()
	c.stderr.setEOF()
	c.peerWindow.close()
	c.failPendingRequests()
	c.table.free(c.localID)
	return nil
}

// forceClose marks the channel Closed without a wire exchange, used when
// the underlying transport has died.
func (c *Channel) forceClose() {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	c.stdout.setEOF()
	c.stderr.setEOF()
	c.peerWindow.close()
	c.failPendingRequests()
}
