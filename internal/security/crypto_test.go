package security_test

import (
	"bytes"
	"testing"

	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncryptor_KeyLength(t *testing.T) {
	for _, n := range []int{16, 24, 32} {
		_, err := security.NewEncryptor(make([]byte, n))
		assert.NoError(t, err, "key length %d", n)
	}

	for _, n := range []int{0, 15, 31, 33} {
		_, err := security.NewEncryptor(make([]byte, n))
		assert.Error(t, err, "key length %d", n)
	}
}

func TestEncryptor_RoundTrip(t *testing.T) {
	key, err := security.GenerateKey()
	require.NoError(t, err)
	enc, err := security.NewEncryptor(key)
	require.NoError(t, err)

	cases := []string{
		"",
		"a",
		"EAABsbCS1iHgBO7token",
		"token with spaces and unicode ✓ ü",
		string(make([]byte, 4096)),
	}

	for _, plaintext := range cases {
		ct, err := enc.Encrypt([]byte(plaintext))
		require.NoError(t, err)

		if plaintext != "" {
			assert.False(t, bytes.Contains(ct, []byte(plaintext)),
				"ciphertext must not contain plaintext")
		}
		assert.NotEqual(t, []byte(plaintext), ct)

		pt, err := enc.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plaintext, string(pt))
	}
}

func TestEncryptor_NonceUniqueness(t *testing.T) {
	key, _ := security.GenerateKey()
	enc, _ := security.NewEncryptor(key)

	a, err := enc.Encrypt([]byte("same input"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two encryptions of the same input must differ")
}

func TestEncryptor_DecryptWithWrongKey(t *testing.T) {
	key1, _ := security.GenerateKey()
	key2, _ := security.GenerateKey()
	enc1, _ := security.NewEncryptor(key1)
	enc2, _ := security.NewEncryptor(key2)

	ct, err := enc1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = enc2.Decrypt(ct)
	assert.Error(t, err)
}

func TestEncryptor_DecryptCorrupted(t *testing.T) {
	key, _ := security.GenerateKey()
	enc, _ := security.NewEncryptor(key)

	_, err := enc.Decrypt([]byte("short"))
	assert.Error(t, err)

	ct, _ := enc.Encrypt([]byte("secret"))
	ct[len(ct)-1] ^= 0xff
	_, err = enc.Decrypt(ct)
	assert.Error(t, err)
}

func TestTokenCipher_SealOpen(t *testing.T) {
	key, _ := security.GenerateKey()
	enc, _ := security.NewEncryptor(key)
	cipher := security.NewTokenCipher(enc)

	set, err := cipher.Seal("access-token-value", "refresh-token-value")
	require.NoError(t, err)
	assert.NotEmpty(t, set.Access)
	assert.NotEmpty(t, set.Refresh)
	assert.NotEqual(t, []byte("access-token-value"), set.Access)

	access, refresh, err := cipher.Open(set)
	require.NoError(t, err)
	assert.Equal(t, "access-token-value", access)
	assert.Equal(t, "refresh-token-value", refresh)
}

func TestTokenCipher_NoRefreshToken(t *testing.T) {
	key, _ := security.GenerateKey()
	enc, _ := security.NewEncryptor(key)
	cipher := security.NewTokenCipher(enc)

	set, err := cipher.Seal("access-only", "")
	require.NoError(t, err)
	assert.Nil(t, set.Refresh)

	access, refresh, err := cipher.Open(set)
	require.NoError(t, err)
	assert.Equal(t, "access-only", access)
	assert.Empty(t, refresh)
}

func TestTokenCipher_ForeignCiphertext(t *testing.T) {
	key1, _ := security.GenerateKey()
	key2, _ := security.GenerateKey()
	enc1, _ := security.NewEncryptor(key1)
	enc2, _ := security.NewEncryptor(key2)

	set, err := security.NewTokenCipher(enc1).Seal("access", "refresh")
	require.NoError(t, err)

	_, _, err = security.NewTokenCipher(enc2).Open(set)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenUnavailable)
}
