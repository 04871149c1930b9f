// Package repository implements persistence over database/sql. Sentinel
// errors let handlers and managers map failures to HTTP statuses without
// inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrDuplicateIdentifier is returned when an insert collides with the
// unique phone/email index.
var ErrDuplicateIdentifier = errors.New("identifier already exists")

// ErrConflict is returned when an insert collides with a non-identifier
// unique key, such as a product slug.
var ErrConflict = errors.New("conflict")

// isDuplicateKey detects MySQL error 1062 without importing driver
// internals.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
