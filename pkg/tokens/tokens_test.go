package tokens

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("test-jwt-secret")
	subject := uuid.NewString()
	exp := time.Now().Add(15 * time.Minute).UTC()

	token, err := NewAccessToken(subject, "Admin", secret, exp)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := AccessClaimsFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, "Admin", claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestAccessClaimsFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewAccessToken(uuid.NewString(), "User", []byte("secret-a"), time.Now().Add(time.Minute))
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(token, []byte("secret-b"))
	require.Error(t, err)
	assert.Nil(t, claims)
}

func TestAccessClaimsFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("test-jwt-secret")
	token, err := NewAccessToken(uuid.NewString(), "User", secret, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(token, secret)
	require.Error(t, err)
	assert.Nil(t, claims)
}

func TestAccessClaimsFromToken_Malformed(t *testing.T) {
	t.Parallel()

	claims, err := AccessClaimsFromToken("not-a-jwt", []byte("test-jwt-secret"))
	require.Error(t, err)
	assert.Nil(t, claims)
}
