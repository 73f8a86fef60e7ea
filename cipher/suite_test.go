package cipher_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riglite/sshcore/cipher"
)

func TestLookupCipherKnownAlgorithms(t *testing.T) {
	for _, name := range []string{cipher.CipherAES128CTR, cipher.CipherAES192CTR, cipher.CipherAES256CTR} {
		info, ok := cipher.LookupCipher(name)
		require.True(t, ok, name)
		assert.Equal(t, name, info.Name)
		assert.NotNil(t, info.New)
	}
}

func TestLookupMACKnownAlgorithms(t *testing.T) {
	for _, name := range []string{cipher.MACHMACSHA1, cipher.MACHMACSHA256, cipher.MACHMACSHA512} {
		info, ok := cipher.LookupMAC(name)
		require.True(t, ok, name)
		assert.Equal(t, info.Size, info.New(make([]byte, info.KeySize)).Size())
	}
}

func TestIsAEAD(t *testing.T) {
	assert.True(t, cipher.IsAEAD(cipher.CipherChaCha20Poly))
	assert.False(t, cipher.IsAEAD(cipher.CipherAES256CTR))
}

func TestAESCTRRoundTrip(t *testing.T) {
	info, ok := cipher.LookupCipher(cipher.CipherAES256CTR)
	require.True(t, ok)

	key := make([]byte, info.KeySize)
	iv := make([]byte, info.IVSize)
	_, _ = rand.Read(key)
	_, _ = rand.Read(iv)

	enc, err := info.New(key, iv)
	require.NoError(t, err)
	dec, err := info.New(key, iv)
	require.NoError(t, err)

	plaintext := []byte("the quick brown fox jumps over the lazy dog, 16-multiple pad")
	ciphertext := make([]byte, len(plaintext))
	enc.XORKeyStream(ciphertext, plaintext)

	got := make([]byte, len(ciphertext))
	dec.XORKeyStream(got, ciphertext)
	assert.Equal(t, plaintext, got)
}

func TestChaCha20Poly1305SealOpenRoundTrip(t *testing.T) {
	key := make([]byte, cipher.ChaCha20Poly1305KeySize)
	_, _ = rand.Read(key)

	c, err := cipher.NewChaCha20Poly1305(key)
	require.NoError(t, err)

	var length [4]byte
	length[0], length[1], length[2], length[3] = 0, 0, 0, 42

	plaintext := []byte("channel data payload, arbitrary length")
	sealed, err := c.Seal(7, length, plaintext)
	require.NoError(t, err)
	assert.Len(t, sealed, len(plaintext)+c.Overhead())

	got, err := c.Open(7, length, sealed)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plaintext, got))
}

func TestChaCha20Poly1305RejectsTamperedTag(t *testing.T) {
	key := make([]byte, cipher.ChaCha20Poly1305KeySize)
	_, _ = rand.Read(key)
	c, err := cipher.NewChaCha20Poly1305(key)
	require.NoError(t, err)

	var length [4]byte
	sealed, err := c.Seal(1, length, []byte("hello"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff

	_, err = c.Open(1, length, sealed)
	assert.ErrorIs(t, err, cipher.ErrTagMismatch)
}

func TestChaCha20Poly1305LengthFieldIsItsOwnInverse(t *testing.T) {
	key := make([]byte, cipher.ChaCha20Poly1305KeySize)
	_, _ = rand.Read(key)
	c, err := cipher.NewChaCha20Poly1305(key)
	require.NoError(t, err)

	var length [4]byte
	length[3] = 200

	encrypted, err := c.CryptLength(3, length)
	require.NoError(t, err)
	assert.NotEqual(t, length, encrypted)

	decrypted, err := c.CryptLength(3, encrypted)
	require.NoError(t, err)
	assert.Equal(t, length, decrypted)
}
