// Package transport implements the SSH-2 Binary Packet Protocol: version
// exchange, packet framing, encryption/MAC, sequence numbers and the
// transport-level control messages (DISCONNECT, IGNORE, UNIMPLEMENTED,
// DEBUG, KEXINIT/NEWKEYS dispatch). It knows nothing about key exchange
// mathematics, authentication or channels; those live in sibling packages
// and install their cipher pairs and message handlers through this
// package's narrow surface.
package transport

import (
	"bufio"
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/riglite/sshcore/byteslice"
	"github.com/riglite/sshcore/cipher"
	"github.com/riglite/sshcore/errstring"
	"github.com/riglite/sshcore/log"
	"github.com/riglite/sshcore/redact"
)

// Stream is the narrow capability the transport engine needs from its
// underlying byte pipe: blocking reads/writes plus a deadline, so TCP,
// TLS-wrapped TCP and in-memory test pipes all satisfy it identically.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetDeadline(t time.Time) error
	Close() error
}

var (
	// ErrIoBroken marks the session Broken; the underlying stream failed.
	ErrIoBroken = errstring.New("transport: stream broken")
	// ErrBannerInvalid is returned when the peer's version banner is malformed.
	ErrBannerInvalid = errstring.New("transport: invalid version banner")
	// ErrMacError is returned when MAC or AEAD tag verification fails on receive.
	ErrMacError = errstring.New("transport: mac verification failed")
	// ErrMalformedField surfaces wire.ErrMalformedField-class failures at the framing layer.
	ErrMalformedField = errstring.New("transport: malformed packet")
	// ErrTimeout names the timeout kind. This package does not return it: an
	// elapsed read/write deadline surfaces as a stream error wrapped in ErrIoBroken.
	ErrTimeout = errstring.New("transport: timeout")
	// ErrUnimplemented names the peer-sent UNIMPLEMENTED kind. This package
	// does not return it: Run logs an UNIMPLEMENTED message and carries on.
	ErrUnimplemented = errstring.New("transport: peer sent UNIMPLEMENTED")
)

// directionState holds everything needed to frame packets in one direction
// (send or receive). The two instances on a Transport are independent:
// NEWKEYS installs a new cipher pair per-direction, and a rekey in
// progress for one direction never blocks framing in the other.
type directionState struct {
	seqNum     uint32
	cipherName string
	macName    string
	stream     cipher.StreamCipher
	mac        *macState
	aead       *cipher.ChaCha20Poly1305
	blockSize  int
	bytes      uint64 // bytes processed since last rekey, drives the 1 GiB trigger
}

type macState struct {
	info cipher.MACInfo
	key  []byte
}

// Transport is one SSH-2 connection's packet engine.
type Transport struct {
	log.LoggerInjectable

	conn   Stream
	reader *bufio.Reader

	writeMu sync.Mutex
	write   directionState

	readMu sync.Mutex
	read   directionState

	ClientVersion []byte
	ServerVersion []byte

	rekeyStart    time.Time
	rekeyPending  bool
	rekeyBytes    uint64
	rekeyInterval time.Duration
	clientID      string

	handlers   [256]Handler
	dispatchMu sync.RWMutex

	mu     sync.Mutex
	broken error

	secretsMu sync.Mutex
	secrets   []string
}

// RegisterSecret marks s (e.g. a password handed to the "password"
// userauth method) so later log lines run through Redact have it
// scrubbed. Registering the empty string is a no-op.
func (t *Transport) RegisterSecret(s string) {
	if s == "" {
		return
	}
	t.secretsMu.Lock()
	defer t.secretsMu.Unlock()
	t.secrets = append(t.secrets, s)
}

// Redact scrubs every registered secret out of s, for use just before
// logging text that originated from the peer (e.g. a DEBUG message) and
// so could echo back something sensitive.
func (t *Transport) Redact(s string) string {
	t.secretsMu.Lock()
	secrets := append([]string(nil), t.secrets...)
	t.secretsMu.Unlock()
	if len(secrets) == 0 {
		return s
	}
	return redact.StringRedacter("[REDACTED]", secrets...).Redact(s)
}

// redactedPreview scrubs every registered secret out of buf at the byte
// level, for trace logging of raw DEBUG/IGNORE payloads, which may carry
// arbitrary peer-chosen bytes rather than a well-formed string.
func (t *Transport) redactedPreview(buf []byte) []byte {
	t.secretsMu.Lock()
	secrets := append([]string(nil), t.secrets...)
	t.secretsMu.Unlock()

	out := buf
	for _, s := range secrets {
		out = byteslice.Redact(out, []byte(s))
	}
	return out
}

// LastReadSeqNum returns the sequence number of the most recently
// delivered packet, for handlers that need to name it in an UNIMPLEMENTED
// reply to a message they recognize but cannot route (e.g. an unknown
// channel id).
func (t *Transport) LastReadSeqNum() uint32 {
	t.readMu.Lock()
	defer t.readMu.Unlock()
	return t.read.seqNum - 1
}

// Handler processes one transport payload whose first byte is the message
// number it was registered under. Handlers must not block on application
// logic; long-running work is handed off to a queue.
type Handler func(payload []byte) error

// Config carries the client-identification string used in the version
// banner and the rekey thresholds; defaults match spec.md §6.
type Config struct {
	ClientID      string // e.g. "SSH-2.0-sshcore_1.0"
	RekeyBytes    uint64
	RekeyInterval time.Duration
}

// New wraps conn in a Transport. ExchangeVersions must be called before any
// other method.
func New(conn Stream, cfg Config) *Transport {
	if cfg.RekeyBytes == 0 {
		cfg.RekeyBytes = 1 << 30
	}
	if cfg.RekeyInterval == 0 {
		cfg.RekeyInterval = time.Hour
	}
	t := &Transport{
		conn:       conn,
		reader:     bufio.NewReader(conn),
		rekeyStart: time.Now(),
	}
	t.write.blockSize = 8
	t.read.blockSize = 8
	t.rekeyBytes = cfg.RekeyBytes
	t.rekeyInterval = cfg.RekeyInterval
	t.clientID = cfg.ClientID
	return t
}

// Close closes the underlying stream.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// Broken returns the error that put the session into a terminal state, or
// nil if the session is still usable.
func (t *Transport) Broken() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.broken
}

// fail records err as the terminal error if none is set yet, and returns
// the terminal error (which may be an earlier one).
func (t *Transport) fail(err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken == nil {
		t.broken = err
	}
	return t.broken
}

// randomBytes fills b from a CSPRNG, matching spec.md §5's "random source
// is process-global and must be a CSPRNG" requirement.
func randomBytes(b []byte) {
	if _, err := rand.Read(b); err != nil {
		panic("transport: system CSPRNG unavailable: " + err.Error())
	}
}

func withDeadline(ctx context.Context, conn Stream, timeout time.Duration) error {
	if timeout <= 0 {
		return conn.SetDeadline(time.Time{})
	}
	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	return conn.SetDeadline(deadline)
}
