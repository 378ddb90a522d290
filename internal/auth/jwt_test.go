package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	manager := NewManager("secret", time.Hour)

	token, err := manager.Generate("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := manager.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "alice", username)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).Generate("alice")
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).Validate(token)
	require.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	manager := NewManager("secret", time.Nanosecond)
	token, err := manager.Generate("alice")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = manager.Validate(token)
	require.Error(t, err)
}

func TestValidateRejectsWrongAlgorithm(t *testing.T) {
	// unsigned token, alg "none"
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Username: "alice"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewManager("secret", time.Hour).Validate(raw)
	require.Error(t, err)
}

func TestDefaultTTL(t *testing.T) {
	require.Equal(t, time.Hour, NewManager("secret", 0).TTL())
}
