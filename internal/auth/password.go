package auth

import (
	"fmt"
	"strings"
	"unicode"
)

var commonPasswords = map[string]struct{}{
	"password": {}, "123456": {}, "qwerty": {}, "admin": {}, "welcome": {},
	"password1": {}, "password123": {}, "password123!": {}, "qwerty123": {},
	"admin123": {}, "welcome123": {}, "letmein123": {}, "p@ssw0rd": {},
}

// CheckPasswordStrength enforces the registration password policy. The
// minimum length is a hard requirement; beyond it the password must score at
// least four of five criteria (length, upper, lower, digit, special) and not
// be a known common password. The returned error is a field-scoped
// ValidationError listing what is missing.
func CheckPasswordStrength(password string, minLength int) error {
	if minLength <= 0 {
		minLength = 8
	}
	if len(password) < minLength {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("use at least %d characters", minLength)}
	}
	if _, bad := commonPasswords[strings.ToLower(password)]; bad {
		return &ValidationError{Field: "password", Reason: "password is too common"}
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	score := 1 // length already passed the hard gate
	var feedback []string
	checks := []struct {
		ok   bool
		hint string
	}{
		{hasUpper, "add uppercase letters"},
		{hasLower, "add lowercase letters"},
		{hasDigit, "add numbers"},
		{hasSpecial, "add special characters"},
	}
	for _, c := range checks {
		if c.ok {
			score++
		} else {
			feedback = append(feedback, c.hint)
		}
	}
	if score < 4 {
		return &ValidationError{Field: "password", Reason: strings.Join(feedback, "; ")}
	}
	return nil
}
