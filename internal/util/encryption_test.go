package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestEncryptDecrypt(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		sealed, err := Encrypt(testKey, "GEZDGNBVGY3TQOJQ")
		require.NoError(t, err)
		assert.NotContains(t, sealed, "GEZDGNBVGY3TQOJQ")

		opened, err := Decrypt(testKey, sealed)
		require.NoError(t, err)
		assert.Equal(t, "GEZDGNBVGY3TQOJQ", opened)
	})

	t.Run("nonce makes ciphertexts differ", func(t *testing.T) {
		a, err := Encrypt(testKey, "secret")
		require.NoError(t, err)
		b, err := Encrypt(testKey, "secret")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("rejects short keys", func(t *testing.T) {
		_, err := Encrypt("deadbeef", "secret")
		assert.Error(t, err)
	})

	t.Run("rejects tampered ciphertext", func(t *testing.T) {
		sealed, err := Encrypt(testKey, "secret")
		require.NoError(t, err)

		tampered := strings.ToUpper(sealed)
		if tampered == sealed {
			t.Skip("ciphertext has no lowercase characters to flip")
		}
		_, err = Decrypt(testKey, tampered)
		assert.Error(t, err)
	})
}

func TestIsValidUserID(t *testing.T) {
	assert.True(t, IsValidUserID("AB1234"))
	assert.True(t, IsValidUserID("XYZ"))
	assert.False(t, IsValidUserID(""))
	assert.False(t, IsValidUserID("ab1234"))
	assert.False(t, IsValidUserID("AB 1234"))
	assert.False(t, IsValidUserID("TOOLONGUSERID1"))
}

func TestIsValidEnum(t *testing.T) {
	exchanges := []string{"NSE", "BSE"}
	assert.True(t, IsValidEnum("", exchanges))
	assert.True(t, IsValidEnum("NSE", exchanges))
	assert.False(t, IsValidEnum("NASDAQ", exchanges))
}
