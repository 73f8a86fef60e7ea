package kex

import (
	"crypto/sha256"
	"hash"
	"math/big"

	"github.com/riglite/sshcore/wire"
)

// result captures one key-exchange method's outcome: the exchange hash H,
// the shared secret K already in its mpint wire form (length prefix
// included, ready to feed cipher.DeriveKey), and the host key/signature
// blobs the caller must still verify.
type result struct {
	H         []byte
	K         []byte
	HostKey   []byte
	Signature []byte
	NewHash   func() hash.Hash
}

// buildExchangeHash computes HASH(V_C||V_S||I_C||I_S||K_S||A||B||K) per
// RFC 4253 §8, where A and B are the two sides' per-method public values
// already encoded exactly as the wire format requires (length-prefixed
// raw octets for ECDH's Q_C/Q_S, mpint form for classical DH's e/f), and K
// is always in mpint form. vc/vs/ic/is/hostKeyBlob are raw (unframed)
// byte slices; this function adds their string length prefixes.
func buildExchangeHash(newHash func() hash.Hash, vc, vs, ic, is, hostKeyBlob, aEncoded, bEncoded, kEncoded []byte) []byte {
	w := wire.NewWriter(len(vc) + len(vs) + len(ic) + len(is) + len(hostKeyBlob) + len(aEncoded) + len(bEncoded) + len(kEncoded) + 32)
	w.PutBytes(vc)
	w.PutBytes(vs)
	w.PutBytes(ic)
	w.PutBytes(is)
	w.PutBytes(hostKeyBlob)
	w.PutRaw(aEncoded)
	w.PutRaw(bEncoded)
	w.PutRaw(kEncoded)

	h := newHash()
	h.Write(w.Bytes())
	return h.Sum(nil)
}

func sha256Hash() hash.Hash { return sha256.New() }

// mpintBytes renders n in full wire mpint form, length prefix included.
func mpintBytes(n *big.Int) []byte {
	w := wire.NewWriter(64)
	w.PutMpint(n)
	return w.Bytes()
}

// stringBytes renders b in full wire string form, length prefix included.
func stringBytes(b []byte) []byte {
	w := wire.NewWriter(4 + len(b))
	w.PutBytes(b)
	return w.Bytes()
}

// mpintBytesFromUnsigned treats raw (big-endian, unsigned) as a
// non-negative integer and renders it in full wire mpint form. Used for
// the curve25519 shared secret, which curve25519.X25519 returns as a
// fixed-width byte string rather than a big.Int.
func mpintBytesFromUnsigned(raw []byte) []byte {
	return mpintBytes(new(big.Int).SetBytes(raw))
}
