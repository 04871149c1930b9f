package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+98 912 345-6789": "989123456789",
		"(44) 7911 123456": "447911123456",
		"989123456789":     "989123456789",
		"  14155552671 ":   "14155552671",
		"98+123":           "", // plus after the first character is garbage
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), "input %q", in)
	}
}

func TestNewIdentifierPhone(t *testing.T) {
	id, err := NewIdentifier("", "+98 912-345-6789")
	require.NoError(t, err)
	assert.Equal(t, KindPhone, id.Kind)
	assert.Equal(t, "989123456789", id.Value)
}

func TestNewIdentifierEmail(t *testing.T) {
	id, err := NewIdentifier("  User@Example.COM ", "")
	require.NoError(t, err)
	assert.Equal(t, KindEmail, id.Kind)
	assert.Equal(t, "user@example.com", id.Value)
}

func TestNewIdentifierPhoneWinsOverEmail(t *testing.T) {
	id, err := NewIdentifier("user@example.com", "989123456789")
	require.NoError(t, err)
	assert.Equal(t, KindPhone, id.Kind)
}

func TestNewIdentifierRejectsBadInput(t *testing.T) {
	var ve *ValidationError

	_, err := NewIdentifier("", "")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "identifier", ve.Field)

	_, err = NewIdentifier("", "0123") // leading zero and too short
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "phone", ve.Field)

	_, err = NewIdentifier("not-an-email", "")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
}

func TestPhonePlaceholder(t *testing.T) {
	assert.Equal(t, "email_user_at_example_com", PhonePlaceholder("User@example.com"))
}
