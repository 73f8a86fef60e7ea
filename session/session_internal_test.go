package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riglite/sshcore/channel"
	"github.com/riglite/sshcore/sh"
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

// newTestSession builds a Session directly around a live transport pair,
// skipping Dial's version/KEX/userauth steps: those are exercised by the
// kex and userauth packages' own tests, and this package only needs to
// verify the channel-request shapes OpenExec/OpenShell/OpenSCP produce.
func newTestSession(t *testing.T) (*Session, *transport.Transport) {
	t.Helper()
	c, s := net.Pipe()
	t.Cleanup(func() { c.Close(); s.Close() })
	ct := transport.New(c, transport.Config{})
	st := transport.New(s, transport.Config{})
	go ct.Run() //nolint:errcheck
	go st.Run() //nolint:errcheck

	return &Session{t: ct, chans: channel.NewTable(ct), cfg: &Config{}}, st
}

func acceptSessionChannel(t *testing.T, st *transport.Transport) uint32 {
	t.Helper()
	payload, err := st.ReceivePacket()
	require.NoError(t, err)
	r := wire.NewReader(payload[1:])
	_, _ = r.GetString()
	peerID, err := r.GetU32()
	require.NoError(t, err)

	w := wire.NewWriter(32)
	w.PutU8(transport.MsgChannelOpenConfirm).PutU32(peerID).PutU32(0).
		PutU32(channel.DefaultInitialWindow).PutU32(channel.DefaultMaxPacket)
	require.NoError(t, st.SendPacket(w.Bytes()))
	return peerID
}

func readRequest(t *testing.T, st *transport.Transport) (name string, wantReply bool, data []byte) {
	t.Helper()
	payload, err := st.ReceivePacket()
	require.NoError(t, err)
	r := wire.NewReader(payload[1:])
	_, _ = r.GetU32()
	name, err = r.GetString()
	require.NoError(t, err)
	wantReply, _ = r.GetBool()
	data = r.Rest()
	return name, wantReply, data
}

func replySuccess(t *testing.T, st *transport.Transport, peerID uint32) {
	t.Helper()
	w := wire.NewWriter(8)
	w.PutU8(transport.MsgChannelSuccess).PutU32(peerID)
	require.NoError(t, st.SendPacket(w.Bytes()))
}

func TestOpenExecSendsCommandAndWaitsForSuccess(t *testing.T) {
	sess, st := newTestSession(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		peerID := acceptSessionChannel(t, st)
		name, wantReply, data := readRequest(t, st)
		assert.Equal(t, "exec", name)
		assert.True(t, wantReply)
		r := wire.NewReader(data)
		cmd, err := r.GetString()
		require.NoError(t, err)
		assert.Equal(t, "uname -a", cmd)
		replySuccess(t, st, peerID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	exec, err := sess.OpenExec(ctx, "uname -a")
	require.NoError(t, err)
	require.NotNil(t, exec)
	<-done
}

func TestOpenShellSendsPtyThenShell(t *testing.T) {
	sess, st := newTestSession(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		peerID := acceptSessionChannel(t, st)

		name, wantReply, data := readRequest(t, st)
		assert.Equal(t, "pty-req", name)
		assert.True(t, wantReply)
		r := wire.NewReader(data)
		term, _ := r.GetString()
		assert.Equal(t, "xterm", term)
		cols, _ := r.GetU32()
		rows, _ := r.GetU32()
		assert.Equal(t, uint32(80), cols)
		assert.Equal(t, uint32(24), rows)
		_, _ = r.GetU32()
		_, _ = r.GetU32()
		modes, err := r.GetBytes()
		require.NoError(t, err)
		mr := wire.NewReader(modes)
		op1, _ := mr.GetU8()
		speed1, _ := mr.GetU32()
		assert.Equal(t, ttyOpISpeed, op1)
		assert.Equal(t, uint32(defaultBaudRate), speed1)
		replySuccess(t, st, peerID)

		name, wantReply, _ = readRequest(t, st)
		assert.Equal(t, "shell", name)
		assert.True(t, wantReply)
		replySuccess(t, st, peerID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	shell, err := sess.OpenShell(ctx)
	require.NoError(t, err)
	require.NotNil(t, shell)
	<-done
}

// TestOpenExecPreservesShellQuotedCommand builds the exec command with
// sh.CommandBuilder, the same way a local test harness composes a
// verification command to run on the remote, and checks it survives the
// exec request byte-for-byte.
func TestOpenExecPreservesShellQuotedCommand(t *testing.T) {
	sess, st := newTestSession(t)

	cmd := sh.CommandBuilder(sh.Command("grep", "needs quoting")).Pipe("wc", "-l").String()

	done := make(chan struct{})
	go func() {
		defer close(done)
		peerID := acceptSessionChannel(t, st)
		name, wantReply, data := readRequest(t, st)
		assert.Equal(t, "exec", name)
		assert.True(t, wantReply)
		r := wire.NewReader(data)
		got, err := r.GetString()
		require.NoError(t, err)
		assert.Equal(t, cmd, got)
		replySuccess(t, st, peerID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	exec, err := sess.OpenExec(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, exec)
	<-done
}

func TestEncodeModesTerminatesWithOpcodeZero(t *testing.T) {
	b := encodeModes(map[uint8]uint32{53: 1})
	r := wire.NewReader(b)
	op, _ := r.GetU8()
	assert.Equal(t, ttyOpISpeed, op)
	assert.Equal(t, ttyOpEnd, b[len(b)-1])
}
