// Package cipher is the algorithm catalog for the transport engine: cipher,
// MAC, KEX and host-key algorithm metadata plus the RFC 4253 §7.2 key
// derivation function. Nothing in this package touches the network; it is
// pure algorithm lookup and cryptographic construction.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // hmac-sha1 is a negotiable legacy algorithm, never used outside MAC.
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/riglite/sshcore/errstring"
)

// ErrUnknownAlgorithm is returned when a negotiated algorithm name has no
// entry in the catalog; negotiation guarantees this never happens for
// names taken from Supported*, but a server that lies about what it
// offered can still trigger it.
var ErrUnknownAlgorithm = errstring.New("cipher: unknown algorithm")

// StreamCipher is the capability the transport engine needs from a
// negotiated CTR-mode encryption algorithm.
type StreamCipher interface {
	XORKeyStream(dst, src []byte)
}

// CipherInfo describes one negotiable CTR/stream encryption algorithm.
type CipherInfo struct {
	Name      string
	KeySize   int
	IVSize    int
	BlockSize int // granularity packets must be padded to; 8 for stream-like ciphers
	New       func(key, iv []byte) (StreamCipher, error)
}

// MACInfo describes one negotiable MAC algorithm.
type MACInfo struct {
	Name    string
	KeySize int
	Size    int
	New     func(key []byte) hash.Hash
}

const (
	KexCurve25519SHA256       = "curve25519-sha256"
	KexCurve25519SHA256LibSSH = "curve25519-sha256@libssh.org"
	KexDHGroup14SHA256        = "diffie-hellman-group14-sha256"

	HostKeyEd25519   = "ssh-ed25519"
	HostKeyRSASHA256 = "rsa-sha2-256"
	HostKeyRSASHA512 = "rsa-sha2-512"
	HostKeyRSA       = "ssh-rsa"

	CipherAES128CTR    = "aes128-ctr"
	CipherAES192CTR    = "aes192-ctr"
	CipherAES256CTR    = "aes256-ctr"
	CipherChaCha20Poly = "chacha20-poly1305@openssh.com"

	MACHMACSHA1   = "hmac-sha1"
	MACHMACSHA256 = "hmac-sha2-256"
	MACHMACSHA512 = "hmac-sha2-512"

	CompressionNone = "none"

	// ChaCha20Poly1305KeySize is the total derived key material the AEAD
	// suite consumes from one key-derivation letter: two independent
	// 32-byte ChaCha20 keys, payload then length.
	ChaCha20Poly1305KeySize = 64
)

// SupportedKex is the catalog of key-exchange algorithm names this library
// offers, in the client's preferred order.
var SupportedKex = []string{KexCurve25519SHA256, KexCurve25519SHA256LibSSH, KexDHGroup14SHA256}

// SupportedHostKey is the catalog of host-key algorithm names this library
// accepts, in preferred order.
var SupportedHostKey = []string{HostKeyEd25519, HostKeyRSASHA256, HostKeyRSASHA512, HostKeyRSA}

// SupportedCiphers is the catalog of symmetric encryption algorithm names,
// in preferred order. The AEAD suite is preferred first, following current
// OpenSSH practice of avoiding CTR+HMAC entirely when both sides offer it.
var SupportedCiphers = []string{CipherChaCha20Poly, CipherAES256CTR, CipherAES192CTR, CipherAES128CTR}

// SupportedMACs is the catalog of MAC algorithm names, in preferred order.
// Unused when the negotiated cipher is the AEAD suite, which authenticates
// via Poly1305 instead.
var SupportedMACs = []string{MACHMACSHA512, MACHMACSHA256, MACHMACSHA1}

// SupportedCompression is the catalog of compression algorithm names; only
// "none" is implemented.
var SupportedCompression = []string{CompressionNone}

var ciphers = map[string]CipherInfo{
	CipherAES128CTR: {Name: CipherAES128CTR, KeySize: 16, IVSize: aes.BlockSize, BlockSize: aes.BlockSize, New: newAESCTR},
	CipherAES192CTR: {Name: CipherAES192CTR, KeySize: 24, IVSize: aes.BlockSize, BlockSize: aes.BlockSize, New: newAESCTR},
	CipherAES256CTR: {Name: CipherAES256CTR, KeySize: 32, IVSize: aes.BlockSize, BlockSize: aes.BlockSize, New: newAESCTR},
}

var macs = map[string]MACInfo{
	MACHMACSHA1:   {Name: MACHMACSHA1, KeySize: 20, Size: 20, New: func(key []byte) hash.Hash { return hmac.New(sha1.New, key) }},
	MACHMACSHA256: {Name: MACHMACSHA256, KeySize: 32, Size: 32, New: func(key []byte) hash.Hash { return hmac.New(sha256.New, key) }},
	MACHMACSHA512: {Name: MACHMACSHA512, KeySize: 64, Size: 64, New: func(key []byte) hash.Hash { return hmac.New(sha512.New, key) }},
}

// IsAEAD reports whether name identifies the ChaCha20-Poly1305 AEAD suite,
// which the transport engine handles through ChaCha20Poly1305 rather than
// through LookupCipher/LookupMAC.
func IsAEAD(name string) bool {
	return name == CipherChaCha20Poly
}

// LookupCipher returns the stream-cipher catalog entry for name.
func LookupCipher(name string) (CipherInfo, bool) {
	c, ok := ciphers[name]
	return c, ok
}

// LookupMAC returns the MAC catalog entry for name.
func LookupMAC(name string) (MACInfo, bool) {
	m, ok := macs[name]
	return m, ok
}

func newAESCTR(key, iv []byte) (StreamCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return stdcipher.NewCTR(block, iv), nil
}
