package hostkey

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // HMAC-SHA1 is the OpenSSH known_hosts hashing scheme, not a security-sensitive choice here.
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/riglite/sshcore/errstring"
	"github.com/riglite/sshcore/log"
	"github.com/riglite/sshcore/pubkey"
)

// ErrCheckHostKey wraps I/O and parse failures while loading or updating a
// known_hosts file.
var ErrCheckHostKey = errstring.New("hostkey: known_hosts")

type entry struct {
	hashed bool
	host   string // plaintext host pattern, empty when hashed
	salt   []byte // present only when hashed
	hash   []byte // present only when hashed
	keys   map[string][]byte
}

// Store is a known_hosts file loaded into memory, per spec.md §6: one
// entry per line, "hostpattern keytype base64-key [comment]", or a hashed
// host "|1|salt_b64|hash_b64 keytype base64-key". New entries are
// appended to the file on TrustAndSave.
type Store struct {
	log.LoggerInjectable

	path string
	mu   sync.Mutex
	// TOFU controls whether an unknown host is trusted and appended on
	// first contact (Verify succeeds and calls TrustAndSave itself) or
	// rejected (the caller must explicitly call TrustAndSave).
	TOFU bool

	entries []entry
}

// NewStore loads path if it exists; a missing file is not an error, it
// simply starts empty (mirroring the teacher's ensureFile-on-demand
// behavior, generalized: the file is created lazily on first write rather
// than eagerly on open).
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: open %s: %w", ErrCheckHostKey, path, err)
	}
	defer f.Close()

	if err := s.load(f); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			s.Log().Warn("skipping malformed known_hosts line", "line", line, "error", err)
			continue
		}
		s.entries = append(s.entries, e)
	}
	return scanner.Err()
}

func parseLine(line string) (entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return entry{}, ErrCheckHostKey
	}
	host, keyType, keyB64 := fields[0], fields[1], fields[2]
	keyBlob, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return entry{}, fmt.Errorf("%w: %w", ErrCheckHostKey, err)
	}

	e := entry{keys: map[string][]byte{keyType: keyBlob}}
	if strings.HasPrefix(host, "|1|") {
		parts := strings.Split(host, "|")
		if len(parts) != 4 {
			return entry{}, ErrCheckHostKey
		}
		salt, err := base64.StdEncoding.DecodeString(parts[2])
		if err != nil {
			return entry{}, fmt.Errorf("%w: %w", ErrCheckHostKey, err)
		}
		hash, err := base64.StdEncoding.DecodeString(parts[3])
		if err != nil {
			return entry{}, fmt.Errorf("%w: %w", ErrCheckHostKey, err)
		}
		e.hashed = true
		e.salt = salt
		e.hash = hash
		return e, nil
	}
	e.host = host
	return e, nil
}

func hashHost(host string, salt []byte) []byte {
	mac := hmac.New(sha1.New, salt)
	mac.Write([]byte(host))
	return mac.Sum(nil)
}

func (e entry) matches(host string) bool {
	if e.hashed {
		return hmac.Equal(e.hash, hashHost(host, e.salt))
	}
	for _, pattern := range strings.Split(e.host, ",") {
		if pattern == host {
			return true
		}
	}
	return false
}

// Verify implements Verifier. It looks up host, comparing the presented
// key's marshaled blob against any stored key of the same type; a known
// host with a different key is always a mismatch (never silently
// upgraded). An unknown host is trusted and persisted when TOFU is set,
// otherwise rejected.
func (s *Store) Verify(host string, key pubkey.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob := key.Marshal()
	found := false
	for _, e := range s.entries {
		if !e.matches(host) {
			continue
		}
		if stored, ok := e.keys[key.Type()]; ok {
			found = true
			if bytesEqual(stored, blob) {
				return nil
			}
			return ErrHostKeyMismatch
		}
	}
	if found {
		return ErrHostKeyMismatch
	}
	if !s.TOFU {
		return ErrHostKeyMismatch
	}
	return s.trustAndSaveLocked(host, key, true)
}

// TrustAndSave appends host's key to the store and the backing file,
// hashing the hostname when hash is true. Safe to call even when Verify
// rejected the host (explicit non-TOFU trust-on-first-use flow).
func (s *Store) TrustAndSave(host string, key pubkey.PublicKey, hash bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trustAndSaveLocked(host, key, hash)
}

func (s *Store) trustAndSaveLocked(host string, key pubkey.PublicKey, hash bool) error {
	var line string
	if hash {
		salt := make([]byte, 20)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("%w: %w", ErrCheckHostKey, err)
		}
		digest := hashHost(host, salt)
		hostField := fmt.Sprintf("|1|%s|%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(digest))
		line = fmt.Sprintf("%s %s %s\n", hostField, key.Type(), base64.StdEncoding.EncodeToString(key.Marshal()))
		s.entries = append(s.entries, entry{hashed: true, salt: salt, hash: digest, keys: map[string][]byte{key.Type(): key.Marshal()}})
	} else {
		line = fmt.Sprintf("%s %s %s\n", host, key.Type(), base64.StdEncoding.EncodeToString(key.Marshal()))
		s.entries = append(s.entries, entry{host: host, keys: map[string][]byte{key.Type(): key.Marshal()}})
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("%w: open %s for append: %w", ErrCheckHostKey, s.path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrCheckHostKey, s.path, err)
	}
	return nil
}
