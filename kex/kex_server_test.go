package kex_test

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
	"testing"
	"time"

	"golang.org/x/crypto/curve25519"

	"github.com/riglite/sshcore/cipher"
	sshkex "github.com/riglite/sshcore/kex"
	"github.com/riglite/sshcore/pubkey"
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

var errNotNewKeys = errors.New("kex_server_test: expected NEWKEYS")

func bigFromUnsigned(raw []byte) *big.Int {
	return new(big.Int).SetBytes(raw)
}

func mpintWire(n *big.Int) []byte {
	w := wire.NewWriter(64)
	w.PutMpint(n)
	return w.Bytes()
}

// buildSpec derives one direction's AEAD key, mirroring handshake.go's
// deriveCipherSpec for the chacha20-poly1305@openssh.com case, which is
// always what two identical catalogs negotiate in this test. sessionID
// doubles as the raw exchange hash H, correct for an initial handshake.
func buildSpec(forRead bool, kEncoded, sessionID []byte) (transport.CipherSpec, error) {
	letter := byte(cipher.LetterEncKeyServerToClient)
	if forRead {
		letter = cipher.LetterEncKeyClientToServer
	}
	key := cipher.DeriveKey(sha256.New, kEncoded, sessionID, letter, sessionID, cipher.ChaCha20Poly1305KeySize)
	return transport.CipherSpec{CipherName: cipher.CipherChaCha20Poly, Key: key}, nil
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// serveCurve25519 is a deliberately independent, from-scratch
// implementation of the server side of one curve25519-sha256 handshake,
// used only to exercise kex.Handshake's client side end to end over a
// real net.Pipe transport. It duplicates rather than imports the client's
// exchange-hash math, since a test standing in for a genuine remote peer
// should not share code paths with the thing it is testing.
func serveCurve25519(st *transport.Transport, signer pubkey.Signer) error {
	serverInit := sshkex.NewClientInit(cipher.SupportedKex, cipher.SupportedHostKey, cipher.SupportedCiphers, cipher.SupportedMACs, cipher.SupportedCompression)
	serverPayload := serverInit.Marshal()

	clientPayload, err := st.ReceivePacket()
	if err != nil {
		return err
	}
	if err := st.SendPacket(serverPayload); err != nil {
		return err
	}

	initPayload, err := st.ReceivePacket()
	if err != nil {
		return err
	}
	r := wire.NewReader(initPayload[1:])
	qc, err := r.GetBytes()
	if err != nil {
		return err
	}

	var scalar [32]byte
	if _, err := rand.Read(scalar[:]); err != nil {
		return err
	}
	qs, err := curve25519.X25519(scalar[:], curve25519.Basepoint)
	if err != nil {
		return err
	}
	secret, err := curve25519.X25519(scalar[:], qc)
	if err != nil {
		return err
	}

	hostKeyBlob := signer.PublicKey().Marshal()

	hw := wire.NewWriter(512)
	hw.PutBytes(st.ClientVersion)
	hw.PutBytes(st.ServerVersion)
	hw.PutBytes(clientPayload)
	hw.PutBytes(serverPayload)
	hw.PutBytes(hostKeyBlob)
	hw.PutBytes(qc)
	hw.PutBytes(qs)
	hw.PutMpint(bigFromUnsigned(secret))
	sum := sha256.Sum256(hw.Bytes())

	sig, err := signer.Sign(signer.Algorithms()[0], sum[:])
	if err != nil {
		return err
	}

	replyW := wire.NewWriter(512)
	replyW.PutU8(31).PutBytes(hostKeyBlob).PutBytes(qs).PutBytes(sig)
	if err := st.SendPacket(replyW.Bytes()); err != nil {
		return err
	}

	newKeys, err := st.ReceivePacket()
	if err != nil {
		return err
	}
	if len(newKeys) == 0 || newKeys[0] != 21 {
		return errNotNewKeys
	}

	kEncoded := mpintWire(bigFromUnsigned(secret))
	hEncoded := sum[:]

	readSpec, err := buildSpec(true, kEncoded, hEncoded)
	if err != nil {
		return err
	}
	if err := st.SetReadKeys(readSpec); err != nil {
		return err
	}

	if err := st.SendPacket([]byte{21}); err != nil {
		return err
	}
	writeSpec, err := buildSpec(false, kEncoded, hEncoded)
	if err != nil {
		return err
	}
	return st.SetWriteKeys(writeSpec)
}
