// Package session ties the protocol layers together behind the small API
// applications actually use: Dial, OpenExec, OpenShell, OpenSCP, Close.
package session

import (
	"time"

	"github.com/riglite/sshcore/hostkey"
	"github.com/riglite/sshcore/userauth"
)

// AuthMethod is one configured authentication method, tried in order
// until one succeeds (spec.md §4.5).
type AuthMethod = userauth.Method

// Config carries everything Dial needs: who to authenticate as and how,
// which host key to trust, and the timeout/rekey/algorithm knobs spec.md
// §5-6 expose. Zero-value durations are filled in by defaults.Set (see
// Dial), matching the teacher's own `creasty/defaults`-tagged config
// structs.
type Config struct {
	User            string
	Auth            []AuthMethod
	HostKeyVerifier hostkey.Verifier

	ConnectTimeout time.Duration `default:"30s"`
	ReadTimeout    time.Duration `default:"30s"`
	RekeyBytes     uint64        `default:"1073741824"`
	RekeyInterval  time.Duration `default:"1h"`

	KexAlgorithms    []string
	CipherAlgorithms []string
	MACAlgorithms    []string

	// ClientID overrides the SSH-2.0 version banner product string.
	ClientID string
}
