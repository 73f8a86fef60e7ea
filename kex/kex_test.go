package kex_test

import (
	"crypto/ed25519"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riglite/sshcore/cipher"
	"github.com/riglite/sshcore/hostkey"
	"github.com/riglite/sshcore/kex"
	"github.com/riglite/sshcore/pubkey"
	"github.com/riglite/sshcore/transport"
)

func TestNegotiateTieBreakPrefersClientOrder(t *testing.T) {
	local := kex.NewClientInit(
		[]string{"curve25519-sha256", "diffie-hellman-group14-sha256"},
		cipher.SupportedHostKey, cipher.SupportedCiphers, cipher.SupportedMACs, cipher.SupportedCompression)
	peer := kex.NewClientInit(
		[]string{"diffie-hellman-group14-sha256", "curve25519-sha256"},
		cipher.SupportedHostKey, cipher.SupportedCiphers, cipher.SupportedMACs, cipher.SupportedCompression)

	n, err := kex.Negotiate(local, peer)
	require.NoError(t, err)
	assert.Equal(t, "curve25519-sha256", n.Kex)
}

func TestNegotiateFailsOnDisjointKexLists(t *testing.T) {
	local := kex.NewClientInit([]string{"curve25519-sha256"}, cipher.SupportedHostKey, cipher.SupportedCiphers, cipher.SupportedMACs, cipher.SupportedCompression)
	peer := kex.NewClientInit([]string{"diffie-hellman-group14-sha256"}, cipher.SupportedHostKey, cipher.SupportedCiphers, cipher.SupportedMACs, cipher.SupportedCompression)

	_, err := kex.Negotiate(local, peer)
	assert.ErrorIs(t, err, kex.ErrNoCommonAlgorithm)
}

func TestKexInitRoundTrip(t *testing.T) {
	m := kex.NewClientInit(cipher.SupportedKex, cipher.SupportedHostKey, cipher.SupportedCiphers, cipher.SupportedMACs, cipher.SupportedCompression)
	m.FirstKexPacketFollows = true

	parsed, err := kex.ParseInitMsg(m.Marshal())
	require.NoError(t, err)
	assert.Equal(t, m.KexAlgos, parsed.KexAlgos)
	assert.Equal(t, m.ServerHostKeyAlgos, parsed.ServerHostKeyAlgos)
	assert.True(t, parsed.FirstKexPacketFollows)
	assert.Equal(t, m.Cookie, parsed.Cookie)
}

// TestHandshakeCompletesOverCurve25519 runs serveCurve25519, a minimal
// curve25519-sha256 server peer, over one half of a net.Pipe, enough to
// drive Handshake's client side to completion: it mirrors the
// KEXINIT/KEX_ECDH_INIT/KEX_ECDH_REPLY/NEWKEYS sequence a real OpenSSH
// server would send for this method.
func TestHandshakeCompletesOverCurve25519(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	ct := transport.New(clientConn, transport.Config{})
	st := transport.New(serverConn, transport.Config{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, ct.ExchangeVersions(testContext(t), 0))
	}()
	require.NoError(t, st.ExchangeVersions(testContext(t), 0))
	<-done

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer := pubkey.NewEd25519Signer(priv)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- serveCurve25519(st, signer)
	}()

	verifier := hostkey.StaticVerifier{Expected: signer.PublicKey().Marshal()}
	result, err := kex.Handshake(ct, verifier, "example.com:22", kex.DefaultAlgorithms(), nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "curve25519-sha256", result.Negotiated.Kex)
	require.NoError(t, <-serverErr)

	// Both sides installed live cipher state; a post-handshake packet must
	// round-trip under the negotiated algorithm.
	require.NoError(t, ct.SendPacket([]byte{42, 1, 2, 3}))
	payload, err := st.ReceivePacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{42, 1, 2, 3}, payload)
}
