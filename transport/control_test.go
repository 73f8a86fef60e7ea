package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riglite/sshcore/wire"
)

func TestRunDispatchesRegisteredHandler(t *testing.T) {
	a, b := newPipe()
	ta := New(a, Config{})
	tb := New(b, Config{})

	received := make(chan []byte, 1)
	tb.Handle(MsgChannelData, func(payload []byte) error {
		received <- payload
		return nil
	})

	go func() { _ = tb.Run() }()

	w := wire.NewWriter(8)
	w.PutU8(MsgChannelData).PutU32(7).PutString("hi")
	require.NoError(t, ta.SendPacket(w.Bytes()))

	got := <-received
	assert.Equal(t, byte(MsgChannelData), got[0])
}

func TestRunSendsUnimplementedForUnregisteredMessage(t *testing.T) {
	a, b := newPipe()
	ta := New(a, Config{})
	tb := New(b, Config{})

	go func() { _ = tb.Run() }()

	require.NoError(t, ta.SendPacket([]byte{MsgChannelOpen, 0, 0, 0, 1}))

	reply, err := ta.ReceivePacket()
	require.NoError(t, err)
	assert.Equal(t, byte(MsgUnimplemented), reply[0])
}

func TestRunTerminatesOnPeerDisconnect(t *testing.T) {
	a, b := newPipe()
	ta := New(a, Config{})
	tb := New(b, Config{})

	done := make(chan error, 1)
	go func() { done <- tb.Run() }()

	localCause := &testCause{}
	assert.ErrorIs(t, ta.Disconnect(DisconnectByApplication, "bye", localCause), localCause)
	assert.ErrorIs(t, ta.Broken(), localCause)

	err := <-done
	require.Error(t, err)
	assert.Same(t, err, tb.Broken())
}

type testCause struct{}

func (*testCause) Error() string { return "local disconnect" }
