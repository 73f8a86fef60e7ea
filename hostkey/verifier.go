// Package hostkey implements host-key trust decisions and the OpenSSH
// known_hosts persistence format (spec.md §6): plain "hostpattern keytype
// base64-key" lines and SHA1-HMAC-hashed "|1|salt|hash keytype base64-key"
// lines.
package hostkey

import (
	"github.com/riglite/sshcore/errstring"
	"github.com/riglite/sshcore/pubkey"
)

// ErrHostKeyMismatch is returned when a verifier rejects the presented key.
var ErrHostKeyMismatch = errstring.New("hostkey: host key mismatch")

// Verifier decides whether to trust a host key presented during key
// exchange. It is the pluggable trust boundary spec.md §4.4 describes:
// the KEX engine calls it once per handshake/rekey with the freshly
// parsed server host key and never makes the trust decision itself.
type Verifier interface {
	Verify(host string, key pubkey.PublicKey) error
}

// StaticVerifier trusts exactly one expected key, matched by its marshaled
// wire blob. Useful for tests and for pinning a single well-known host.
type StaticVerifier struct {
	Expected []byte
}

// Verify implements Verifier.
func (v StaticVerifier) Verify(_ string, key pubkey.PublicKey) error {
	if !bytesEqual(v.Expected, key.Marshal()) {
		return ErrHostKeyMismatch
	}
	return nil
}

// InsecureIgnoreVerifier accepts any host key. Exported for test harnesses
// and explicit opt-in use only; never the default.
type InsecureIgnoreVerifier struct{}

// Verify implements Verifier by always succeeding.
func (InsecureIgnoreVerifier) Verify(string, pubkey.PublicKey) error { return nil }

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
