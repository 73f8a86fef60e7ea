package cipher

import (
	"crypto/subtle"
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/poly1305"

	"github.com/riglite/sshcore/errstring"
)

const chachaKeySize = 32

// ErrTagMismatch is returned by ChaCha20Poly1305.Open when the computed
// Poly1305 tag does not match the one attached to the packet.
var ErrTagMismatch = errstring.New("cipher: poly1305 tag mismatch")

// ChaCha20Poly1305 implements the chacha20-poly1305@openssh.com AEAD
// construction: two independent ChaCha20 keys. The first (the "payload
// key") encrypts the packet body and, via the first 32 bytes of its own
// keystream, derives the per-packet Poly1305 key. The second (the "length
// key") encrypts only the 4-byte packet length field with a raw keystream,
// letting the receiver learn how many more bytes to read before it can
// verify anything. Both keys are rekeyed by sequence number, never by an
// explicit IV: the nonce is the 8-byte big-endian sequence number in the
// low 8 bytes of a 12-byte ChaCha20 nonce, the top 4 bytes always zero.
type ChaCha20Poly1305 struct {
	payloadKey [chachaKeySize]byte
	lengthKey  [chachaKeySize]byte
}

// NewChaCha20Poly1305 splits a 64-byte derived key into the payload and
// length sub-keys. Per this library's key-derivation ordering the payload
// key occupies the first 32 bytes and the length key the second 32.
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305, error) {
	if len(key) != ChaCha20Poly1305KeySize {
		return nil, ErrUnknownAlgorithm
	}
	c := &ChaCha20Poly1305{}
	copy(c.payloadKey[:], key[:chachaKeySize])
	copy(c.lengthKey[:], key[chachaKeySize:])
	return c, nil
}

// Overhead is the Poly1305 tag size appended after every sealed packet.
func (c *ChaCha20Poly1305) Overhead() int { return poly1305.TagSize }

func nonceFor(seqNum uint32) []byte {
	nonce := make([]byte, chacha20.NonceSize)
	binary.BigEndian.PutUint64(nonce[4:], uint64(seqNum))
	return nonce
}

// CryptLength encrypts or decrypts (the operation is its own inverse) the
// 4-byte packet length field using the length key's keystream for seqNum.
func (c *ChaCha20Poly1305) CryptLength(seqNum uint32, length [4]byte) ([4]byte, error) {
	s, err := chacha20.NewUnauthenticatedCipher(c.lengthKey[:], nonceFor(seqNum))
	if err != nil {
		return [4]byte{}, err
	}
	var out [4]byte
	s.XORKeyStream(out[:], length[:])
	return out, nil
}

func (c *ChaCha20Poly1305) polyKey(seqNum uint32) (*chacha20.Cipher, [32]byte, error) {
	s, err := chacha20.NewUnauthenticatedCipher(c.payloadKey[:], nonceFor(seqNum))
	if err != nil {
		return nil, [32]byte{}, err
	}
	var key [32]byte
	s.XORKeyStream(key[:], key[:])
	// Advance past the 32-byte Poly1305 key block so the next XORKeyStream
	// call starts at the payload's actual ChaCha20 block 1, per the
	// construction in the openssh PROTOCOL.chacha20poly1305 draft.
	var discard [32]byte
	s.XORKeyStream(discard[:], discard[:])
	return s, key, nil
}

// Seal encrypts plaintext under seqNum and returns ciphertext with a
// trailing 16-byte Poly1305 tag computed over encryptedLength||ciphertext.
func (c *ChaCha20Poly1305) Seal(seqNum uint32, encryptedLength [4]byte, plaintext []byte) ([]byte, error) {
	stream, polyKey, err := c.polyKey(seqNum)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext)+poly1305.TagSize)
	stream.XORKeyStream(out[:len(plaintext)], plaintext)

	tagInput := make([]byte, 4+len(plaintext))
	copy(tagInput, encryptedLength[:])
	copy(tagInput[4:], out[:len(plaintext)])

	var tag [16]byte
	poly1305.Sum(&tag, tagInput, &polyKey)
	copy(out[len(plaintext):], tag[:])
	return out, nil
}

// Open verifies the Poly1305 tag over encryptedLength||ciphertext and, only
// if it matches, decrypts ciphertext (without its trailing tag).
func (c *ChaCha20Poly1305) Open(seqNum uint32, encryptedLength [4]byte, sealed []byte) ([]byte, error) {
	if len(sealed) < poly1305.TagSize {
		return nil, ErrTagMismatch
	}
	ciphertext := sealed[:len(sealed)-poly1305.TagSize]
	tag := sealed[len(sealed)-poly1305.TagSize:]

	stream, polyKey, err := c.polyKey(seqNum)
	if err != nil {
		return nil, err
	}

	tagInput := make([]byte, 4+len(ciphertext))
	copy(tagInput, encryptedLength[:])
	copy(tagInput[4:], ciphertext)

	var computed [16]byte
	poly1305.Sum(&computed, tagInput, &polyKey)
	if subtle.ConstantTimeCompare(computed[:], tag) != 1 {
		return nil, ErrTagMismatch
	}

	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}
