package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neosocial/internal/config"
)

type staticRevocations map[string]bool

func (s staticRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	return s[jti], nil
}

var testAuth = config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: time.Hour}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("u1", "ada", testAuth)
	require.NoError(t, err)

	claims, err := ValidateToken(context.Background(), token, testAuth.JWTSecretKey, nil)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Rejects(t *testing.T) {
	token, err := GenerateToken("u1", "", testAuth)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, "other-secret", nil)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateToken("u1", "", config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: -time.Minute})
	require.NoError(t, err)
	_, err = ValidateToken(context.Background(), expired, testAuth.JWTSecretKey, nil)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := ValidateToken(context.Background(), token, testAuth.JWTSecretKey, nil)
	require.NoError(t, err)
	_, err = ValidateToken(context.Background(), token, testAuth.JWTSecretKey, staticRevocations{claims.ID: true})
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
