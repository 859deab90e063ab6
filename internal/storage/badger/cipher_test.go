package badger

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestSealer_RoundTrip(t *testing.T) {
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)

	plaintext := []byte(`[{"name":"session_id","value":"abc123"}]`)

	sealed, err := sealer.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSealer_TamperDetected(t *testing.T) {
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = sealer.Open(sealed)
	assert.Error(t, err)
}

func TestSealer_WrongKey(t *testing.T) {
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("secret"))
	require.NoError(t, err)

	other, err := NewSealer(testKey(t))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.Error(t, err)
}

func TestSealer_ShortPayload(t *testing.T) {
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)

	_, err = sealer.Open([]byte("too short"))
	assert.Error(t, err)
}

func TestSealer_NilKeyPassthrough(t *testing.T) {
	sealer, err := NewSealer(nil)
	require.NoError(t, err)

	plaintext := []byte("not a secret in dev")

	sealed, err := sealer.Seal(plaintext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, sealed)

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestNewSealer_RejectsBadKeyLength(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	assert.Error(t, err)
}
