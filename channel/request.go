package channel

import (
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

// SendRequest sends a CHANNEL_REQUEST. When wantReply is true it appends
// to the channel's pending-request FIFO and blocks for the matching
// CHANNEL_SUCCESS/CHANNEL_FAILURE, returning whether it succeeded.
// want_reply=false requests are fire-and-forget and always report true.
func (c *Channel) SendRequest(name string, wantReply bool, data []byte) (bool, error) {
	c.mu.Lock()
	peerID := c.peerID
	c.mu.Unlock()

	w := wire.NewWriter(len(data) + 32)
	w.PutU8(transport.MsgChannelRequest).PutU32(peerID).PutString(name).PutBool(wantReply)
	w.PutRaw(data)

	var waiter requestWaiter
	if wantReply {
		waiter = make(requestWaiter, 1)
		c.reqMu.Lock()
		c.reqQueue = append(c.reqQueue, waiter)
		c.reqMu.Unlock()
	}

	if err := c.t.SendPacket(w.Bytes()); err != nil {
		return false, err
	}
	if !wantReply {
		return true, nil
	}
	return <-waiter, nil
}

// resolveNextRequest dequeues the oldest pending want_reply request and
// delivers success/failure to its waiter.
func (c *Channel) resolveNextRequest(success bool) error {
	c.reqMu.Lock()
	if len(c.reqQueue) == 0 {
		c.reqMu.Unlock()
		return nil
	}
	waiter := c.reqQueue[0]
	c.reqQueue = c.reqQueue[1:]
	c.reqMu.Unlock()

	waiter <- success
	return nil
}

func (c *Channel) failPendingRequests() {
	c.reqMu.Lock()
	pending := c.reqQueue
	c.reqQueue = nil
	c.reqMu.Unlock()

	for _, waiter := range pending {
		waiter <- false
	}
}
