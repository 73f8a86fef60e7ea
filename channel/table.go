package channel

import (
	"sync"

	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

// Table is the set of live channels for one transport, indexed by the
// local id this side chose when opening each one. It uses a mutex
// separate from the transport's own write-path lock (spec.md §5 ADD) so
// that a channel write blocked on peer window back-pressure never holds
// up KEXINIT/rekey traffic or other channels' table lookups.
type Table struct {
	t *transport.Transport

	mu    sync.Mutex
	chans []*Channel
}

// NewTable creates a channel table bound to t: it registers itself as
// the handler for every GLOBAL/CHANNEL message number (80-82, 90-100).
// Only one Table may be bound per Transport.
func NewTable(t *transport.Transport) *Table {
	tbl := &Table{t: t}
	tbl.bind()
	return tbl
}

func (tbl *Table) bind() {
	tbl.t.Handle(transport.MsgGlobalRequest, tbl.handleGlobalRequest)
	tbl.t.Handle(transport.MsgRequestSuccess, tbl.handleIgnoredGlobalReply)
	tbl.t.Handle(transport.MsgRequestFailure, tbl.handleIgnoredGlobalReply)
	tbl.t.Handle(transport.MsgChannelOpen, tbl.handleChannelOpen)
	tbl.t.Handle(transport.MsgChannelOpenConfirm, tbl.handleOpenConfirm)
	tbl.t.Handle(transport.MsgChannelOpenFailure, tbl.handleOpenFailure)
	tbl.t.Handle(transport.MsgChannelWindowAdjust, tbl.handleWindowAdjust)
	tbl.t.Handle(transport.MsgChannelData, tbl.handleData)
	tbl.t.Handle(transport.MsgChannelExtendedData, tbl.handleExtendedData)
	tbl.t.Handle(transport.MsgChannelEOF, tbl.handleEOF)
	tbl.t.Handle(transport.MsgChannelClose, tbl.handleClose)
	tbl.t.Handle(transport.MsgChannelRequest, tbl.handleRequest)
	tbl.t.Handle(transport.MsgChannelSuccess, tbl.handleReply(true))
	tbl.t.Handle(transport.MsgChannelFailure, tbl.handleReply(false))
}

// allocate reserves the next free local id and registers a new channel.
func (tbl *Table) allocate(typ string) *Channel {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	for i := range tbl.chans {
		if tbl.chans[i] == nil {
			ch := newChannel(tbl, tbl.t, uint32(i), typ)
			tbl.chans[i] = ch
			return ch
		}
	}
	id := uint32(len(tbl.chans))
	ch := newChannel(tbl, tbl.t, id, typ)
	tbl.chans = append(tbl.chans, ch)
	return ch
}

func (tbl *Table) get(id uint32) (*Channel, bool) {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	if id >= uint32(len(tbl.chans)) || tbl.chans[id] == nil {
		return nil, false
	}
	return tbl.chans[id], true
}

func (tbl *Table) free(id uint32) {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	if id < uint32(len(tbl.chans)) {
		tbl.chans[id] = nil
	}
}

// CloseAll marks every live channel Closed, used when the transport dies
// so blocked readers/writers observe the failure instead of hanging.
func (tbl *Table) CloseAll() {
	tbl.mu.Lock()
	chans := append([]*Channel(nil), tbl.chans...)
	tbl.mu.Unlock()

	for _, ch := range chans {
		if ch == nil {
			continue
		}
		ch.forceClose()
	}
}

func sendUnimplementedForUnknownChannel(t *transport.Transport) error {
	w := wire.NewWriter(8)
	w.PutU8(transport.MsgUnimplemented).PutU32(t.LastReadSeqNum())
	return t.SendPacket(w.Bytes())
}
