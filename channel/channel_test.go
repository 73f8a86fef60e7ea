package channel_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riglite/sshcore/channel"
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

func pipeTransports(t *testing.T) (*transport.Transport, *transport.Transport) {
	t.Helper()
	c, s := net.Pipe()
	t.Cleanup(func() { c.Close(); s.Close() })
	ct := transport.New(c, transport.Config{})
	st := transport.New(s, transport.Config{})
	return ct, st
}

func runBoth(ct, st *transport.Transport) {
	go ct.Run() //nolint:errcheck
	go st.Run() //nolint:errcheck
}

// fakePeer is a from-scratch stand-in for an SSH server's channel
// handling, driving channel.Open/SendRequest/Read/Close against a real
// net.Pipe without sharing any code with the channel package under test.
type fakePeer struct {
	t *transport.Transport
}

func (p *fakePeer) acceptOneSessionChannel() (localID, peerID uint32, err error) {
	payload, err := p.t.ReceivePacket()
	if err != nil {
		return 0, 0, err
	}
	r := wire.NewReader(payload[1:])
	_, _ = r.GetString() // channel type
	peerID, err = r.GetU32()
	if err != nil {
		return 0, 0, err
	}
	_, _ = r.GetU32() // initial window
	_, _ = r.GetU32() // max packet

	const myLocalID = 0
	w := wire.NewWriter(32)
	w.PutU8(transport.MsgChannelOpenConfirm).PutU32(peerID).PutU32(myLocalID).
		PutU32(channel.DefaultInitialWindow).PutU32(channel.DefaultMaxPacket)
	if err := p.t.SendPacket(w.Bytes()); err != nil {
		return 0, 0, err
	}
	return myLocalID, peerID, nil
}

func TestOpenSucceeds(t *testing.T) {
	ct, st := pipeTransports(t)
	runBoth(ct, st)
	tbl := channel.NewTable(ct)

	peer := &fakePeer{t: st}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = peer.acceptOneSessionChannel()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ch, err := channel.Open(ctx, tbl, "session")
	require.NoError(t, err)
	assert.Equal(t, channel.StateOpen, ch.State())
	<-done
}

func TestOpenRejected(t *testing.T) {
	ct, st := pipeTransports(t)
	runBoth(ct, st)
	tbl := channel.NewTable(ct)

	go func() {
		payload, err := st.ReceivePacket()
		if err != nil {
			return
		}
		r := wire.NewReader(payload[1:])
		_, _ = r.GetString()
		peerID, _ := r.GetU32()
		w := wire.NewWriter(32)
		w.PutU8(transport.MsgChannelOpenFailure).PutU32(peerID).PutU32(2).PutString("nope").PutString("")
		_ = st.SendPacket(w.Bytes())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := channel.Open(ctx, tbl, "session")
	assert.ErrorIs(t, err, channel.ErrChannelOpenRejected)
}

func TestDataAndRequestRoundTrip(t *testing.T) {
	ct, st := pipeTransports(t)
	runBoth(ct, st)
	tbl := channel.NewTable(ct)

	serverDone := make(chan error, 1)
	go func() {
		peer := &fakePeer{t: st}
		localID, peerID, err := peer.acceptOneSessionChannel()
		if err != nil {
			serverDone <- err
			return
		}

		// exec request, want_reply=true
		req, err := st.ReceivePacket()
		if err != nil {
			serverDone <- err
			return
		}
		rr := wire.NewReader(req[1:])
		_, _ = rr.GetU32()
		reqType, _ := rr.GetString()
		_, _ = rr.GetBool()
		if reqType != "exec" {
			serverDone <- assertErr("expected exec request")
			return
		}
		okw := wire.NewWriter(8)
		okw.PutU8(transport.MsgChannelSuccess).PutU32(peerID)
		if err := st.SendPacket(okw.Bytes()); err != nil {
			serverDone <- err
			return
		}

		dw := wire.NewWriter(16)
		dw.PutU8(transport.MsgChannelData).PutU32(peerID).PutBytes([]byte("hello"))
		if err := st.SendPacket(dw.Bytes()); err != nil {
			serverDone <- err
			return
		}

		eofw := wire.NewWriter(8)
		eofw.PutU8(transport.MsgChannelEOF).PutU32(peerID)
		if err := st.SendPacket(eofw.Bytes()); err != nil {
			serverDone <- err
			return
		}
		closew := wire.NewWriter(8)
		closew.PutU8(transport.MsgChannelClose).PutU32(peerID)
		if err := st.SendPacket(closew.Bytes()); err != nil {
			serverDone <- err
			return
		}
		if _, err := st.ReceivePacket(); err != nil { // the client's CLOSE
			serverDone <- err
			return
		}
		_ = localID
		serverDone <- nil
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ch, err := channel.Open(ctx, tbl, "session")
	require.NoError(t, err)

	ok, err := ch.SendRequest("exec", true, []byte{})
	require.NoError(t, err)
	assert.True(t, ok)

	buf := make([]byte, 64)
	n, err := ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	_, err = ch.Read(buf)
	assert.Equal(t, io.EOF, err)

	require.NoError(t, <-serverDone)
	require.NoError(t, ch.Close())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
