package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncryptor(t *testing.T) {
	t.Run("generates identity when key is empty", func(t *testing.T) {
		enc, err := NewEncryptor("")
		require.NoError(t, err)
		assert.NotNil(t, enc.identity)
		assert.NotNil(t, enc.recipient)
	})

	t.Run("accepts a generated key", func(t *testing.T) {
		key, err := GenerateKey()
		require.NoError(t, err)

		_, err = NewEncryptor(key)
		require.NoError(t, err)
	})

	t.Run("rejects malformed key", func(t *testing.T) {
		_, err := NewEncryptor("invalid-key-format")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "parsing identity")
	})
}

func TestSeal_Open(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	sealed, err := enc.Seal("4821")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "4821")

	opened, err := enc.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "4821", opened)

	again, err := enc.Seal("4821")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)
}

func TestSeal_Empty(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	_, err = enc.Seal("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestOpen_WrongKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	enc1, err := NewEncryptor(key)
	require.NoError(t, err)
	enc2, err := NewEncryptor("")
	require.NoError(t, err)

	sealed, err := enc1.Seal("1234")
	require.NoError(t, err)

	_, err = enc2.Open(sealed)
	assert.Error(t, err)

	reopened, err := NewEncryptor(key)
	require.NoError(t, err)
	opened, err := reopened.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "1234", opened)
}

func TestOpen_InvalidBase64(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	_, err = enc.Open("not base64!!!")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "decoding base64")
}

func TestMatches(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	sealed, err := enc.Seal("9876")
	require.NoError(t, err)

	ok, err := enc.Matches(sealed, "9876")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = enc.Matches(sealed, "98760")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = enc.Matches("", "9876")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRandomString(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	s, err := RandomString(5, alphabet)
	require.NoError(t, err)
	assert.Len(t, s, 5)
	for _, c := range s {
		assert.True(t, strings.ContainsRune(alphabet, c), "unexpected char %q", c)
	}

	empty, err := RandomString(0, alphabet)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
