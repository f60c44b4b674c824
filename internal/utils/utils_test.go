package utils

import (
	"encoding/base64"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewResetToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, hash, err := NewResetToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		require.Len(t, raw, ResetTokenBytes)

		require.NotEqual(t, tok, hash)
		require.Equal(t, hash, HashResetToken(tok))

		_, dup := seen[tok]
		require.False(t, dup, "токены не должны повторяться")
		seen[tok] = struct{}{}
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPasswordWithCost("NewPass123", bcrypt.MinCost)
	require.NoError(t, err)
	require.True(t, CheckPasswordHash("NewPass123", hash))
	require.False(t, CheckPasswordHash("Another1", hash))
}

func TestGenerateAndParseToken(t *testing.T) {
	tok, err := GenerateToken("secret", 7, "student", time.Minute)
	require.NoError(t, err)

	id, role, err := ParseToken("secret", tok)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.Equal(t, "student", role)

	_, _, err = ParseToken("other", tok)
	require.Error(t, err)

	expired, err := GenerateToken("secret", 7, "student", -time.Minute)
	require.NoError(t, err)
	_, _, err = ParseToken("secret", expired)
	require.Error(t, err)
}

func TestMaskEmail(t *testing.T) {
	require.Equal(t, "s***@academy.test", MaskEmail("student@academy.test"))
	require.Equal(t, "***", MaskEmail("broken"))
	require.Equal(t, "ю***@academy.test", MaskEmail("юлия@academy.test"))
	require.True(t, utf8.ValidString(MaskEmail("юлия@academy.test")))
}
