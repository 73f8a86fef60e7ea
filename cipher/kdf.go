package cipher

import "hash"

// DeriveKey implements RFC 4253 §7.2 key derivation: X = HASH(K || H ||
// letter || session_id), extended by X = X || HASH(K || H || X) until at
// least length bytes are available, then truncated to exactly length. k
// and h are the mpint-encoded shared secret and the exchange hash exactly
// as they appear on the wire (k already carries its length prefix, h does
// not since it is hashed raw); newHash must return a fresh, unkeyed hash
// matching the negotiated KEX's hash algorithm.
func DeriveKey(newHash func() hash.Hash, k, h []byte, letter byte, sessionID []byte, length int) []byte {
	hasher := newHash()
	hasher.Write(k)
	hasher.Write(h)
	hasher.Write([]byte{letter})
	hasher.Write(sessionID)
	out := hasher.Sum(nil)

	for len(out) < length {
		hasher := newHash()
		hasher.Write(k)
		hasher.Write(h)
		hasher.Write(out)
		out = append(out, hasher.Sum(nil)...)
	}
	return out[:length]
}

// Key derivation letters per RFC 4253 §7.2.
const (
	LetterIVClientToServer           = 'A'
	LetterIVServerToClient           = 'B'
	LetterEncKeyClientToServer       = 'C'
	LetterEncKeyServerToClient       = 'D'
	LetterIntegrityKeyClientToServer = 'E'
	LetterIntegrityKeyServerToClient = 'F'
)
