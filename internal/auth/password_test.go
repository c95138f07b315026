package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/redmonkez12/account-api/internal/apperr"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	for _, p := range []string{"secret1", "", "pässwörd", strings.Repeat("a", 64)} {
		hash, err := hasher.Hash(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, hash)
		assert.True(t, hasher.Verify(hash, p), "password %q should verify", p)
		assert.False(t, hasher.Verify(hash, p+"x"), "password %q+x should not verify", p)
	}
}

func TestPasswordHasher_SaltsEveryHash(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	a, err := hasher.Hash("secret1")
	require.NoError(t, err)
	b, err := hasher.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_DefaultCost(t *testing.T) {
	hasher := NewPasswordHasher(0)

	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultPasswordCost, cost)
}

func TestPasswordHasher_Failures(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	_, err := hasher.Hash(strings.Repeat("a", 73))
	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))

	assert.False(t, hasher.Verify("not-a-bcrypt-hash", "secret1"))
	assert.False(t, hasher.Verify("", ""))
}
