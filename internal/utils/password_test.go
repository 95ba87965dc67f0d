package utils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	require.True(t, VerifyPassword(hash, "hunter2"))
	require.False(t, VerifyPassword(hash, "hunter3"))
	require.False(t, VerifyPassword("not-a-bcrypt-hash", "hunter2"))
}

func TestHashRefreshRawIsStableAndOpaque(t *testing.T) {
	raw := "a1b2c3"
	require.Equal(t, HashRefreshRaw(raw), HashRefreshRaw(raw))
	require.NotEqual(t, raw, HashRefreshRaw(raw))
	require.Len(t, HashRefreshRaw(raw), 64)
}
