package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "ops@corp.in", 8)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	id, email, err := ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "ops@corp.in", email)
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "ops@corp.in", 8)
	require.NoError(t, err)

	_, _, err = ParseAccessToken("not-the-secret", tok.Token)
	assert.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "ops@corp.in", -1)
	require.NoError(t, err)

	_, _, err = ParseAccessToken("secret", tok.Token)
	assert.Error(t, err)
}

func TestParseAccessTokenGarbage(t *testing.T) {
	_, _, err := ParseAccessToken("secret", "definitely.not.a.jwt")
	assert.Error(t, err)
}

func TestNewOTPCode(t *testing.T) {
	six := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 20; i++ {
		code, err := NewOTPCode()
		require.NoError(t, err)
		assert.Regexp(t, six, code)
	}
}

func TestHashAndVerifyOTP(t *testing.T) {
	hash, err := HashOTP("482913")
	require.NoError(t, err)
	assert.NotEqual(t, "482913", hash)
	assert.True(t, VerifyOTP(hash, "482913"))
	assert.False(t, VerifyOTP(hash, "482914"))
}
