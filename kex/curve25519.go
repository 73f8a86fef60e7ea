package kex

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	"github.com/riglite/sshcore/errstring"
	"github.com/riglite/sshcore/wire"
)

// ErrInvalidECPoint is returned when a peer's ECDH public value reduces to
// the all-zero shared secret, the degenerate case curve25519 must reject
// (RFC 7748 §6.1).
var ErrInvalidECPoint = errstring.New("kex: invalid curve25519 public value")

func kexCurve25519InitPayload(qc []byte) []byte {
	w := wire.NewWriter(5 + len(qc))
	w.PutU8(msgKexDHInit)
	w.PutBytes(qc)
	return w.Bytes()
}

func parseCurve25519Reply(payload []byte) (hostKey, serverPub, sig []byte, err error) {
	r := wire.NewReader(payload[1:])
	if hostKey, err = r.GetBytes(); err != nil {
		return
	}
	if serverPub, err = r.GetBytes(); err != nil {
		return
	}
	sig, err = r.GetBytes()
	return
}

// runCurve25519 drives the curve25519-sha256 client side: generate an
// ephemeral scalar, send Q_C, read the server's reply, compute the shared
// secret and exchange hash. send/receive are the transport's raw packet
// primitives, already holding the connection's sequence-number state.
func runCurve25519(send func([]byte) error, receive func() ([]byte, error), vc, vs, ic, is []byte) (*result, error) {
	var scalar [32]byte
	if _, err := rand.Read(scalar[:]); err != nil {
		return nil, err
	}
	qc, err := curve25519.X25519(scalar[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}

	if err := send(kexCurve25519InitPayload(qc)); err != nil {
		return nil, err
	}
	payload, err := receive()
	if err != nil {
		return nil, err
	}
	hostKey, qs, sig, err := parseCurve25519Reply(payload)
	if err != nil {
		return nil, err
	}

	secret, err := curve25519.X25519(scalar[:], qs)
	if err != nil {
		return nil, ErrInvalidECPoint
	}
	allZero := true
	for _, b := range secret {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, ErrInvalidECPoint
	}

	kEncoded := mpintBytesFromUnsigned(secret)
	h := buildExchangeHash(sha256Hash, vc, vs, ic, is, hostKey, stringBytes(qc), stringBytes(qs), kEncoded)

	return &result{H: h, K: kEncoded, HostKey: hostKey, Signature: sig, NewHash: sha256Hash}, nil
}
