package component

import (
	"github.com/c360/bee/errors"
)

// MaxNameLength bounds registered component names.
const MaxNameLength = 64

// ValidateComponentName accepts ASCII letters, digits, dash, underscore
// and dot.
func ValidateComponentName(name string) error {
	if name == "" {
		return errors.New(errors.InvalidParam, "ValidateComponentName: empty name")
	}
	if len(name) > MaxNameLength {
		return errors.Newf(errors.InvalidParam, "ValidateComponentName: name too long: %d > %d", len(name), MaxNameLength)
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return errors.Newf(errors.InvalidParam, "ValidateComponentName: invalid character %q in %q", r, name)
		}
	}
	return nil
}
