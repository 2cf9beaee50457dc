package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestIssueNewTokens_RoundTrip(t *testing.T) {
	key := testKey(t)

	access, refresh, jti, err := IssueNewTokens("user-1", "alice", "member", key)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotEmpty(t, jti)

	claims, err := ParseAndVerifySign(access, &key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Sub)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "member", claims.Role)
	assert.Nil(t, claims.Jti, "access token carries no jti")

	refreshClaims, err := ParseAndVerifySign(refresh, &key.PublicKey)
	require.NoError(t, err)
	require.NotNil(t, refreshClaims.Jti)
	assert.Equal(t, jti, *refreshClaims.Jti)
	assert.Greater(t, refreshClaims.Exp, claims.Exp, "refresh outlives access")
}

func TestParseAndVerifySign_WrongKey(t *testing.T) {
	key := testKey(t)
	otherKey := testKey(t)

	access, _, _, err := IssueNewTokens("user-1", "alice", "member", key)
	require.NoError(t, err)

	claims, err := ParseAndVerifySign(access, &otherKey.PublicKey)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestParseAndVerifySign_Garbage(t *testing.T) {
	key := testKey(t)

	claims, err := ParseAndVerifySign("not.a.token", &key.PublicKey)
	assert.Error(t, err)
	assert.Nil(t, claims)
}
