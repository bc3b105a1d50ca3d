package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hashed, err := HashPassword("Secret123")
	require.NoError(t, err)
	require.NotEmpty(t, hashed)
	assert.NotEqual(t, "Secret123", hashed)

	assert.True(t, CheckPassword(hashed, "Secret123"))
	assert.False(t, CheckPassword(hashed, "secret123"))
	assert.False(t, CheckPassword(hashed, ""))
	assert.False(t, CheckPassword("not-a-bcrypt-hash", "Secret123"))
}
