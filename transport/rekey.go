package transport

import (
	"time"

	"github.com/riglite/sshcore/cipher"
)

// CipherSpec carries one direction's freshly derived key material, ready
// to install. The kex package builds these from the exchange hash and
// hands them to SetWriteKeys/SetReadKeys on NEWKEYS.
type CipherSpec struct {
	CipherName string
	MACName    string // ignored when CipherName is the AEAD suite
	Key        []byte
	IV         []byte
	MACKey     []byte
}

// buildDirectionState builds a directionState from spec, replacing whatever cipher
// pair was previously active for that direction. Sequence numbers are
// untouched: rekey never resets them.
func buildDirectionState(spec CipherSpec) (directionState, error) {
	var d directionState
	d.cipherName = spec.CipherName
	d.macName = spec.MACName

	if cipher.IsAEAD(spec.CipherName) {
		aead, err := cipher.NewChaCha20Poly1305(spec.Key)
		if err != nil {
			return d, err
		}
		d.aead = aead
		d.blockSize = 8
		return d, nil
	}

	info, ok := cipher.LookupCipher(spec.CipherName)
	if !ok {
		return d, cipher.ErrUnknownAlgorithm
	}
	stream, err := info.New(spec.Key, spec.IV)
	if err != nil {
		return d, err
	}
	d.stream = stream
	d.blockSize = info.BlockSize

	if spec.MACName != "" {
		macInfo, ok := cipher.LookupMAC(spec.MACName)
		if !ok {
			return d, cipher.ErrUnknownAlgorithm
		}
		d.mac = &macState{info: macInfo, key: spec.MACKey}
	}
	return d, nil
}

// SetWriteKeys installs spec as the active send-direction cipher/MAC pair.
// Called once per NEWKEYS, after this side has sent its own NEWKEYS.
func (t *Transport) SetWriteKeys(spec CipherSpec) error {
	d, err := buildDirectionState(spec)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	d.seqNum = t.write.seqNum
	t.write = d
	t.rekeyStart = time.Now()
	return nil
}

// SetReadKeys installs spec as the active receive-direction cipher/MAC
// pair. Called once per NEWKEYS, after this side has received the peer's
// NEWKEYS.
func (t *Transport) SetReadKeys(spec CipherSpec) error {
	d, err := buildDirectionState(spec)
	if err != nil {
		return err
	}
	t.readMu.Lock()
	defer t.readMu.Unlock()
	d.seqNum = t.read.seqNum
	t.read = d
	return nil
}

// NeedRekey reports whether either direction has crossed the configured
// byte threshold, or enough wall-clock time has passed since the last
// rekey, per spec.md §4.3: 1 GiB in either direction or 1 hour, whichever
// comes first.
func (t *Transport) NeedRekey() bool {
	t.writeMu.Lock()
	writeBytes := t.write.bytes
	t.writeMu.Unlock()

	t.readMu.Lock()
	readBytes := t.read.bytes
	t.readMu.Unlock()

	if writeBytes >= t.rekeyBytes || readBytes >= t.rekeyBytes {
		return true
	}
	return time.Since(t.rekeyStart) >= t.rekeyInterval
}
