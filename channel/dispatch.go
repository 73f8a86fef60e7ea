package channel

import (
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

// handleGlobalRequest answers any peer-initiated GLOBAL_REQUEST. This
// library offers no forwarding or other server-side capability (spec.md
// §1 Non-goals), so every global request is refused, matching OpenSSH's
// own handling of requests it does not recognize.
func (tbl *Table) handleGlobalRequest(payload []byte) error {
	r := wire.NewReader(payload[1:])
	_, _ = r.GetString() // request name, unused: nothing is supported
	wantReply, err := r.GetBool()
	if err != nil {
		return err
	}
	if !wantReply {
		return nil
	}
	w := wire.NewWriter(8)
	w.PutU8(transport.MsgRequestFailure)
	return tbl.t.SendPacket(w.Bytes())
}

// handleIgnoredGlobalReply discards REQUEST_SUCCESS/REQUEST_FAILURE: this
// library never sends a GLOBAL_REQUEST with want_reply set.
func (tbl *Table) handleIgnoredGlobalReply(payload []byte) error {
	return nil
}

// handleChannelOpen answers a peer-initiated CHANNEL_OPEN. No channel
// type this client offers a peer is one it also accepts from a peer
// (there is no server role), so every request is rejected.
func (tbl *Table) handleChannelOpen(payload []byte) error {
	r := wire.NewReader(payload[1:])
	_, err := r.GetString() // channel type
	if err != nil {
		return err
	}
	peerID, err := r.GetU32()
	if err != nil {
		return err
	}

	w := wire.NewWriter(32)
	w.PutU8(transport.MsgChannelOpenFailure).
		PutU32(peerID).
		PutU32(channelOpenAdministrativelyProhibited).
		PutString("no server-side channel types are supported").
		PutString("")
	return tbl.t.SendPacket(w.Bytes())
}

const channelOpenAdministrativelyProhibited = 1

func (tbl *Table) handleOpenConfirm(payload []byte) error {
	r := wire.NewReader(payload[1:])
	localID, err := r.GetU32()
	if err != nil {
		return err
	}
	ch, ok := tbl.get(localID)
	if !ok {
		return sendUnimplementedForUnknownChannel(tbl.t)
	}
	peerID, err := r.GetU32()
	if err != nil {
		return err
	}
	peerWindow, err := r.GetU32()
	if err != nil {
		return err
	}
	peerMaxPkt, err := r.GetU32()
	if err != nil {
		return err
	}
	ch.openCh <- openResult{peerID: peerID, peerWindow: peerWindow, peerMaxPkt: peerMaxPkt}
	return nil
}

func (tbl *Table) handleOpenFailure(payload []byte) error {
	r := wire.NewReader(payload[1:])
	localID, err := r.GetU32()
	if err != nil {
		return err
	}
	ch, ok := tbl.get(localID)
	if !ok {
		return sendUnimplementedForUnknownChannel(tbl.t)
	}
	reason, err := r.GetU32()
	if err != nil {
		return err
	}
	desc, err := r.GetString()
	if err != nil {
		return err
	}
	tbl.free(localID)
	ch.openCh <- openResult{failed: true, reasonCode: reason, description: desc}
	return nil
}

func (tbl *Table) handleWindowAdjust(payload []byte) error {
	r := wire.NewReader(payload[1:])
	localID, err := r.GetU32()
	if err != nil {
		return err
	}
	ch, ok := tbl.get(localID)
	if !ok {
		return sendUnimplementedForUnknownChannel(tbl.t)
	}
	n, err := r.GetU32()
	if err != nil {
		return err
	}
	if !ch.peerWindow.add(n) {
		return ErrWindowOverflow
	}
	return nil
}

func (tbl *Table) handleData(payload []byte) error {
	r := wire.NewReader(payload[1:])
	localID, err := r.GetU32()
	if err != nil {
		return err
	}
	ch, ok := tbl.get(localID)
	if !ok {
		return sendUnimplementedForUnknownChannel(tbl.t)
	}
	data, err := r.GetBytes()
	if err != nil {
		return err
	}
	ch.stdout.write(data)
	ch.consumeLocalWindow(uint32(len(data)))
	return nil
}

func (tbl *Table) handleExtendedData(payload []byte) error {
	r := wire.NewReader(payload[1:])
	localID, err := r.GetU32()
	if err != nil {
		return err
	}
	ch, ok := tbl.get(localID)
	if !ok {
		return sendUnimplementedForUnknownChannel(tbl.t)
	}
	dataType, err := r.GetU32()
	if err != nil {
		return err
	}
	data, err := r.GetBytes()
	if err != nil {
		return err
	}
	// RFC 4254 §5.2: data_type_code 1 is stderr; other codes are unused by
	// any request this library issues and are silently discarded.
	if dataType == extendedDataStderr {
		ch.stderr.write(data)
	}
	ch.consumeLocalWindow(uint32(len(data)))
	return nil
}

const extendedDataStderr = 1

func (tbl *Table) handleEOF(payload []byte) error {
	r := wire.NewReader(payload[1:])
	localID, err := r.GetU32()
	if err != nil {
		return err
	}
	ch, ok := tbl.get(localID)
	if !ok {
		return sendUnimplementedForUnknownChannel(tbl.t)
	}
	ch.markEOFReceived()
	return nil
}

func (tbl *Table) handleClose(payload []byte) error {
	r := wire.NewReader(payload[1:])
	localID, err := r.GetU32()
	if err != nil {
		return err
	}
	ch, ok := tbl.get(localID)
	if !ok {
		return sendUnimplementedForUnknownChannel(tbl.t)
	}
	return ch.handlePeerClose()
}

func (tbl *Table) handleRequest(payload []byte) error {
	r := wire.NewReader(payload[1:])
	localID, err := r.GetU32()
	if err != nil {
		return err
	}
	ch, ok := tbl.get(localID)
	if !ok {
		return sendUnimplementedForUnknownChannel(tbl.t)
	}
	reqType, err := r.GetString()
	if err != nil {
		return err
	}
	wantReply, err := r.GetBool()
	if err != nil {
		return err
	}

	if reqType == "exit-status" {
		status, err := r.GetU32()
		if err == nil {
			ch.setExitStatus(int(status))
		}
	}

	if !wantReply {
		return nil
	}
	w := wire.NewWriter(8)
	w.PutU8(transport.MsgChannelFailure).PutU32(ch.peerID)
	return tbl.t.SendPacket(w.Bytes())
}

func (tbl *Table) handleReply(success bool) transport.Handler {
	return func(payload []byte) error {
		r := wire.NewReader(payload[1:])
		localID, err := r.GetU32()
		if err != nil {
			return err
		}
		ch, ok := tbl.get(localID)
		if !ok {
			return sendUnimplementedForUnknownChannel(tbl.t)
		}
		return ch.resolveNextRequest(success)
	}
}
