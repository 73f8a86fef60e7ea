package kex

import (
	"github.com/riglite/sshcore/cipher"
	"github.com/riglite/sshcore/errstring"
)

// ErrNoCommonAlgorithm is returned when a client and server name-list share
// no entry. For the KEX and host-key lists this always aborts the
// handshake (spec.md §3's stated exception); the cipher, MAC and
// compression lists in practice always agree on "none" compression and at
// least one cipher/MAC, but are checked with the same rule for
// consistency. The language lists are not negotiated.
var ErrNoCommonAlgorithm = errstring.New("kex: no common algorithm")

// ErrKexFailure is the umbrella sentinel for a key exchange that could
// not complete: host-key verification, signature verification, or the
// negotiated method's own math rejected the peer's reply. Callers use
// errors.Is(err, ErrKexFailure) to distinguish "the handshake failed" from
// transport-level I/O errors without needing every specific cause.
var ErrKexFailure = errstring.New("kex: key exchange failed")

// Negotiated holds the one algorithm chosen from each of KEXINIT's eight
// non-language name-lists. The MAC fields stay empty for a direction
// whose cipher is the AEAD suite.
type Negotiated struct {
	Kex                  string
	HostKey              string
	CipherClientToServer string
	CipherServerToClient string
	MACClientToServer    string
	MACServerToClient    string
	CompressClientServer string
	CompressServerClient string
}

// Negotiate applies the first-client-match-wins rule (spec.md §3) to the
// KEX, host-key, cipher, MAC and compression lists in local and peer; the
// MAC list of a direction is skipped when its cipher is the AEAD suite,
// and the two language lists are not negotiated. local is always this client's
// SSH_MSG_KEXINIT; which side is fed as peer depends only on who the
// remote end is, since the rule itself is symmetric in the sense that the
// client's preference order always wins ties.
func Negotiate(local, peer *InitMsg) (*Negotiated, error) {
	n := &Negotiated{}
	var ok bool

	if n.Kex, ok = findCommon(local.KexAlgos, peer.KexAlgos); !ok {
		return nil, ErrNoCommonAlgorithm
	}
	if n.HostKey, ok = findCommon(local.ServerHostKeyAlgos, peer.ServerHostKeyAlgos); !ok {
		return nil, ErrNoCommonAlgorithm
	}
	if n.CipherClientToServer, ok = findCommon(local.CiphersClientServer, peer.CiphersClientServer); !ok {
		return nil, ErrNoCommonAlgorithm
	}
	if n.CipherServerToClient, ok = findCommon(local.CiphersServerClient, peer.CiphersServerClient); !ok {
		return nil, ErrNoCommonAlgorithm
	}
	if !cipher.IsAEAD(n.CipherClientToServer) {
		if n.MACClientToServer, ok = findCommon(local.MACsClientServer, peer.MACsClientServer); !ok {
			return nil, ErrNoCommonAlgorithm
		}
	}
	if !cipher.IsAEAD(n.CipherServerToClient) {
		if n.MACServerToClient, ok = findCommon(local.MACsServerClient, peer.MACsServerClient); !ok {
			return nil, ErrNoCommonAlgorithm
		}
	}
	if n.CompressClientServer, ok = findCommon(local.CompressionClientServer, peer.CompressionClientServer); !ok {
		return nil, ErrNoCommonAlgorithm
	}
	if n.CompressServerClient, ok = findCommon(local.CompressionServerClient, peer.CompressionServerClient); !ok {
		return nil, ErrNoCommonAlgorithm
	}
	return n, nil
}

// findCommon returns the first name in preferred that also appears
// anywhere in offered.
func findCommon(preferred, offered []string) (string, bool) {
	for _, want := range preferred {
		for _, have := range offered {
			if want == have {
				return want, true
			}
		}
	}
	return "", false
}
