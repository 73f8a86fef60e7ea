package channel

import (
	"context"

	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

// Open allocates a channel, sends CHANNEL_OPEN{typ, local_id,
// DefaultInitialWindow, DefaultMaxPacket}, and blocks until the peer
// answers with OPEN_CONFIRMATION or OPEN_FAILURE, or ctx is done.
func Open(ctx context.Context, tbl *Table, typ string) (*Channel, error) {
	ch := tbl.allocate(typ)

	w := wire.NewWriter(32)
	w.PutU8(transport.MsgChannelOpen).
		PutString(typ).
		PutU32(ch.localID).
		PutU32(DefaultInitialWindow).
		PutU32(DefaultMaxPacket)
	if err := ch.t.SendPacket(w.Bytes()); err != nil {
		tbl.free(ch.localID)
		return nil, err
	}

	select {
	case res := <-ch.openCh:
		if res.failed {
			return nil, &OpenFailureError{Reason: res.reasonCode, Description: res.description}
		}
		ch.mu.Lock()
		ch.state = StateOpen
		ch.peerID = res.peerID
		ch.peerMaxPkt = res.peerMaxPkt
		ch.mu.Unlock()
		ch.peerWindow.add(res.peerWindow)
		return ch, nil
	case <-ctx.Done():
		tbl.free(ch.localID)
		return nil, ctx.Err()
	}
}

// OpenFailureError wraps CHANNEL_OPEN_FAILURE's reason code and
// description. It satisfies errors.Is against ErrChannelOpenRejected.
type OpenFailureError struct {
	Reason      uint32
	Description string
}

func (e *OpenFailureError) Error() string {
	return "channel: open rejected: " + e.Description
}

func (e *OpenFailureError) Is(target error) bool {
	return target == ErrChannelOpenRejected
}
