package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPasswordStrengthAccepts(t *testing.T) {
	// Four of five criteria suffice.
	assert.NoError(t, CheckPasswordStrength("Str0ngPass!", 8)) // all five
	assert.NoError(t, CheckPasswordStrength("Str0ngPass", 8))  // no special char
	assert.NoError(t, CheckPasswordStrength("str0ngpass!", 8)) // no upper
}

func TestCheckPasswordStrengthRejectsWeak(t *testing.T) {
	var ve *ValidationError

	err := CheckPasswordStrength("alllower", 8) // only length + lower
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)

	err = CheckPasswordStrength("Ab1!", 8) // strong classes but too short
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "at least 8 characters")
}

func TestCheckPasswordStrengthMinLengthIsHard(t *testing.T) {
	// All four character classes never compensate for missing length.
	var ve *ValidationError
	err := CheckPasswordStrength("Str0ngPass!", 12)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "at least 12 characters")

	assert.NoError(t, CheckPasswordStrength("Str0ngPass!!", 12))
}

func TestCheckPasswordStrengthRejectsCommon(t *testing.T) {
	var ve *ValidationError
	err := CheckPasswordStrength("Password123!", 8)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)
}
