package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCryptoRegistry(t *testing.T) *Registry {
	reg := NewRegistry()
	for _, a := range CryptoActions() {
		require.NoError(t, reg.Register(a))
	}
	return reg
}

func TestCryptoHash_DefaultsToSHA256(t *testing.T) {
	reg := newCryptoRegistry(t)
	resp, err := runNamed(t, reg, "crypto.hash", map[string]any{"data": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", resp["hash"])
	assert.Equal(t, "sha256", resp["algorithm"])
}

func TestCryptoHash_UnsupportedAlgorithmFails(t *testing.T) {
	reg := newCryptoRegistry(t)
	_, err := runNamed(t, reg, "crypto.hash", map[string]any{"data": "hello", "algorithm": "crc32"})
	assert.Error(t, err)
}

func TestCryptoHMAC_IsDeterministicForSameKeyAndData(t *testing.T) {
	reg := newCryptoRegistry(t)
	r1, err := runNamed(t, reg, "crypto.hmac", map[string]any{"data": "msg", "key": "secret"})
	require.NoError(t, err)
	r2, err := runNamed(t, reg, "crypto.hmac", map[string]any{"data": "msg", "key": "secret"})
	require.NoError(t, err)
	assert.Equal(t, r1["hmac"], r2["hmac"])

	r3, err := runNamed(t, reg, "crypto.hmac", map[string]any{"data": "msg", "key": "other"})
	require.NoError(t, err)
	assert.NotEqual(t, r1["hmac"], r3["hmac"])
}

func TestCryptoUUID_ReturnsDistinctValues(t *testing.T) {
	reg := newCryptoRegistry(t)
	r1, err := runNamed(t, reg, "crypto.uuid", nil)
	require.NoError(t, err)
	r2, err := runNamed(t, reg, "crypto.uuid", nil)
	require.NoError(t, err)
	assert.NotEqual(t, r1["uuid"], r2["uuid"])
	assert.Len(t, r1["uuid"], 36)
}
