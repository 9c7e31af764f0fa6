package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	token, claims, err := JwtGenerate(42, "HQ", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.Id)

	got, err := JwtValidate(token)
	require.NoError(t, err)
	assert.Equal(t, 42, got.AccountId)
	assert.Equal(t, "HQ", got.Role)
	assert.Equal(t, claims.Id, got.Id)

	t.Setenv("API_SECRET", "other-secret")
	_, err = JwtValidate(token)
	assert.Error(t, err)

	_, _, err = JwtGenerate(42, "HQ", 0)
	assert.Error(t, err)
}

func TestJwtRejectsExpiredToken(t *testing.T) {
	token, _, err := JwtGenerate(1, "STORE", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = JwtValidate(token)
	assert.Error(t, err)
}

func TestIsValidObjectKey(t *testing.T) {
	assert.True(t, IsValidObjectKey("reports/3/2026-01-A/abc.jpg"))
	for _, key := range []string{"", "/etc/passwd", "https://example.com/a.jpg", "reports/../secret", strings.Repeat("a", 256)} {
		assert.False(t, IsValidObjectKey(key), key)
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(16)
	require.NoError(t, err)
	b, err := GenerateSecret(16)
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
	for _, r := range a {
		assert.True(t, strings.ContainsRune(secretAlphabet, r))
	}

	hashed, err := HashPassword(a)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(string(hashed), a))
	assert.Error(t, ComparePassword(string(hashed), b))
}
