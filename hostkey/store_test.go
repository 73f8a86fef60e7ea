package hostkey_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riglite/sshcore/hostkey"
	"github.com/riglite/sshcore/pubkey"
)

func genKey(t *testing.T) pubkey.PublicKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_ = pub
	return pubkey.NewEd25519Signer(priv).PublicKey()
}

func TestStoreRejectsUnknownHostWithoutTOFU(t *testing.T) {
	dir := t.TempDir()
	store, err := hostkey.NewStore(filepath.Join(dir, "known_hosts"))
	require.NoError(t, err)

	err = store.Verify("example.com:22", genKey(t))
	assert.ErrorIs(t, err, hostkey.ErrHostKeyMismatch)
}

func TestStoreTrustsAndPersistsOnFirstContactWithTOFU(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	store, err := hostkey.NewStore(path)
	require.NoError(t, err)
	store.TOFU = true

	key := genKey(t)
	require.NoError(t, store.Verify("example.com:22", key))

	reloaded, err := hostkey.NewStore(path)
	require.NoError(t, err)
	assert.NoError(t, reloaded.Verify("example.com:22", key))
}

func TestStoreDetectsKeyChange(t *testing.T) {
	dir := t.TempDir()
	store, err := hostkey.NewStore(filepath.Join(dir, "known_hosts"))
	require.NoError(t, err)
	store.TOFU = true

	first := genKey(t)
	require.NoError(t, store.Verify("example.com:22", first))

	second := genKey(t)
	err = store.Verify("example.com:22", second)
	assert.ErrorIs(t, err, hostkey.ErrHostKeyMismatch)
}

func TestTrustAndSaveHashedEntryRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	store, err := hostkey.NewStore(path)
	require.NoError(t, err)

	key := genKey(t)
	require.NoError(t, store.TrustAndSave("example.com:22", key, true))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "|1|")

	reloaded, err := hostkey.NewStore(path)
	require.NoError(t, err)
	assert.NoError(t, reloaded.Verify("example.com:22", key))
}
