// Package pubkey implements the SSH public-key wire format (RFC 4253 §6.6)
// for the key types this library negotiates: ssh-ed25519 and ssh-rsa (the
// latter also usable with the rsa-sha2-256/512 signature algorithms per
// RFC 8332). It is shared by host-key verification and publickey
// authentication, which sign and verify the same blob shapes.
package pubkey

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // ssh-rsa signatures are negotiable legacy; SHA-256/512 are preferred.
	"crypto/sha256"
	"crypto/sha512"
	"math/big"

	"github.com/riglite/sshcore/errstring"
	"github.com/riglite/sshcore/wire"
)

// Algorithm name constants, mirrored from the cipher package's host-key
// catalog so callers need not import both for the common case.
const (
	AlgoEd25519   = "ssh-ed25519"
	AlgoRSA       = "ssh-rsa"
	AlgoRSASHA256 = "rsa-sha2-256"
	AlgoRSASHA512 = "rsa-sha2-512"
)

// ErrUnsupportedKeyType is returned by Parse for any algorithm name other
// than the ones this package implements.
var ErrUnsupportedKeyType = errstring.New("pubkey: unsupported key type")

// ErrSignatureInvalid is returned by Verify when the signature does not
// validate against the key and message.
var ErrSignatureInvalid = errstring.New("pubkey: signature invalid")

// PublicKey is a parsed SSH public key, capable of verifying a signature
// blob against its own wire-format signature algorithm(s).
type PublicKey interface {
	// Type returns the key's wire algorithm name, e.g. "ssh-ed25519".
	Type() string
	// Marshal returns the RFC 4253 §6.6 wire-format public key blob.
	Marshal() []byte
	// Verify checks sig (in the RFC 4253 §6.6 signature blob format, i.e.
	// string(format) || string(blob)) against data.
	Verify(data, sig []byte) error
}

// Signer produces signatures for publickey authentication. algo selects
// the signature algorithm when a key supports more than one (RSA keys may
// sign with ssh-rsa, rsa-sha2-256 or rsa-sha2-512).
type Signer interface {
	PublicKey() PublicKey
	// Algorithms returns every signature algorithm name this signer supports.
	Algorithms() []string
	// Sign produces an RFC 4253 §6.6 signature blob using algo.
	Sign(algo string, data []byte) ([]byte, error)
}

// Parse decodes an RFC 4253 §6.6 public key blob (string algo || type-
// specific fields) into a PublicKey.
func Parse(blob []byte) (PublicKey, error) {
	r := wire.NewReader(blob)
	algo, err := r.GetString()
	if err != nil {
		return nil, err
	}
	switch algo {
	case AlgoEd25519:
		raw, err := r.GetBytes()
		if err != nil {
			return nil, err
		}
		if len(raw) != ed25519.PublicKeySize {
			return nil, ErrUnsupportedKeyType
		}
		return &ed25519Key{pub: ed25519.PublicKey(append([]byte{}, raw...))}, nil
	case AlgoRSA:
		e, err := r.GetMpint()
		if err != nil {
			return nil, err
		}
		n, err := r.GetMpint()
		if err != nil {
			return nil, err
		}
		return &rsaKey{pub: &rsa.PublicKey{E: int(e.Int64()), N: n}}, nil
	default:
		return nil, ErrUnsupportedKeyType
	}
}

// --- ed25519 ---

type ed25519Key struct {
	pub ed25519.PublicKey
}

func (k *ed25519Key) Type() string { return AlgoEd25519 }

func (k *ed25519Key) Marshal() []byte {
	w := wire.NewWriter(4 + len(AlgoEd25519) + 4 + ed25519.PublicKeySize)
	w.PutString(AlgoEd25519).PutBytes(k.pub)
	return w.Bytes()
}

func (k *ed25519Key) Verify(data, sig []byte) error {
	r := wire.NewReader(sig)
	format, err := r.GetString()
	if err != nil {
		return err
	}
	if format != AlgoEd25519 {
		return ErrUnsupportedKeyType
	}
	blob, err := r.GetBytes()
	if err != nil {
		return err
	}
	if !ed25519.Verify(k.pub, data, blob) {
		return ErrSignatureInvalid
	}
	return nil
}

// NewEd25519Signer wraps an ed25519 private key for publickey auth.
func NewEd25519Signer(priv ed25519.PrivateKey) Signer {
	return &ed25519Signer{priv: priv, pub: &ed25519Key{pub: priv.Public().(ed25519.PublicKey)}}
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  *ed25519Key
}

func (s *ed25519Signer) PublicKey() PublicKey   { return s.pub }
func (s *ed25519Signer) Algorithms() []string   { return []string{AlgoEd25519} }
func (s *ed25519Signer) Sign(algo string, data []byte) ([]byte, error) {
	if algo != AlgoEd25519 {
		return nil, ErrUnsupportedKeyType
	}
	sig := ed25519.Sign(s.priv, data)
	w := wire.NewWriter(4 + len(AlgoEd25519) + 4 + len(sig))
	w.PutString(AlgoEd25519).PutBytes(sig)
	return w.Bytes(), nil
}

// --- RSA ---

type rsaKey struct {
	pub *rsa.PublicKey
}

func (k *rsaKey) Type() string { return AlgoRSA }

func (k *rsaKey) Marshal() []byte {
	w := wire.NewWriter(256)
	w.PutString(AlgoRSA).PutMpint(big.NewInt(int64(k.pub.E))).PutMpint(k.pub.N)
	return w.Bytes()
}

func (k *rsaKey) Verify(data, sig []byte) error {
	r := wire.NewReader(sig)
	format, err := r.GetString()
	if err != nil {
		return err
	}
	blob, err := r.GetBytes()
	if err != nil {
		return err
	}
	h, ok := rsaHashFor(format)
	if !ok {
		return ErrUnsupportedKeyType
	}
	digest := h.New()
	digest.Write(data)
	if err := rsa.VerifyPKCS1v15(k.pub, h, digest.Sum(nil), blob); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}

func rsaHashFor(algo string) (crypto.Hash, bool) {
	switch algo {
	case AlgoRSA:
		return crypto.SHA1, true
	case AlgoRSASHA256:
		return crypto.SHA256, true
	case AlgoRSASHA512:
		return crypto.SHA512, true
	default:
		return 0, false
	}
}

// NewRSASigner wraps an RSA private key, offering all three signature
// algorithms this library negotiates; the server picks which one applies
// via the algorithm name passed to Sign.
func NewRSASigner(priv *rsa.PrivateKey) Signer {
	return &rsaSigner{priv: priv, pub: &rsaKey{pub: &priv.PublicKey}}
}

type rsaSigner struct {
	priv *rsa.PrivateKey
	pub  *rsaKey
}

func (s *rsaSigner) PublicKey() PublicKey { return s.pub }
func (s *rsaSigner) Algorithms() []string {
	return []string{AlgoRSASHA512, AlgoRSASHA256, AlgoRSA}
}

func (s *rsaSigner) Sign(algo string, data []byte) ([]byte, error) {
	h, ok := rsaHashFor(algo)
	if !ok {
		return nil, ErrUnsupportedKeyType
	}
	var digest []byte
	switch h {
	case crypto.SHA1:
		sum := sha1.Sum(data)
		digest = sum[:]
	case crypto.SHA256:
		sum := sha256.Sum256(data)
		digest = sum[:]
	case crypto.SHA512:
		sum := sha512.Sum512(data)
		digest = sum[:]
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.priv, h, digest)
	if err != nil {
		return nil, err
	}
	w := wire.NewWriter(4 + len(algo) + 4 + len(sig))
	w.PutString(algo).PutBytes(sig)
	return w.Bytes(), nil
}
