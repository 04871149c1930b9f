package auth

import (
	"regexp"
	"strings"
)

// Identifier kinds.
const (
	KindPhone = "phone"
	KindEmail = "email"
)

// Identifier is a normalized login identifier: a digits-only phone number
// or a lowercased email address.
type Identifier struct {
	Kind  string
	Value string
}

var (
	phoneRe = regexp.MustCompile(`^[1-9][0-9]{6,14}$`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// NormalizePhone strips spaces, dashes, parentheses and a leading plus,
// leaving the digits-only form stored in the users table.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch r {
		case ' ', '-', '(', ')':
		case '+':
			if b.Len() == 0 {
				continue
			}
			return "" // plus anywhere else is garbage
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NewIdentifier validates exactly one of email/phone and returns its
// normalized form. Phone wins when both are supplied, matching the primary
// identifier of the platform.
func NewIdentifier(email, phone string) (Identifier, error) {
	if phone != "" {
		p := NormalizePhone(phone)
		if !phoneRe.MatchString(p) {
			return Identifier{}, &ValidationError{Field: "phone", Reason: "must be digits with country code, 7-15 characters"}
		}
		return Identifier{Kind: KindPhone, Value: p}, nil
	}
	if email != "" {
		e := NormalizeEmail(email)
		if !emailRe.MatchString(e) {
			return Identifier{}, &ValidationError{Field: "email", Reason: "must be a valid email address"}
		}
		return Identifier{Kind: KindEmail, Value: e}, nil
	}
	return Identifier{}, &ValidationError{Field: "identifier", Reason: "email or phone is required"}
}

// PhonePlaceholder synthesizes the phone-column value for email-registered
// accounts. Exactly one of phone/email may ever be synthetic.
func PhonePlaceholder(email string) string {
	return "email_" + strings.NewReplacer("@", "_at_", ".", "_").Replace(NormalizeEmail(email))
}
