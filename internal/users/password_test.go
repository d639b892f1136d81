package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyRoundtrip(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	require.NotEmpty(t, salt)

	hash := HashPassword("Old1pass", salt)
	assert.True(t, VerifyPassword("Old1pass", hash, salt))
	assert.False(t, VerifyPassword("old1pass", hash, salt))
	assert.False(t, VerifyPassword("Old1pass", hash, "othersalt"))
}

func TestSaltsAreUnique(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordPolicy(t *testing.T) {
	assert.NoError(t, ValidatePasswordPolicy("New2Pass"))
	assert.ErrorIs(t, ValidatePasswordPolicy("Sh0rt"), ErrPasswordPolicy)
	assert.ErrorIs(t, ValidatePasswordPolicy("alllowercase1"), ErrPasswordPolicy)
	assert.ErrorIs(t, ValidatePasswordPolicy("NoDigitsHere"), ErrPasswordPolicy)
}
