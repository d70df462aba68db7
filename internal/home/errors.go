package home

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrFamilyRequired is returned when no family name was supplied.
	ErrFamilyRequired = errors.New("family name is required")

	// ErrInvalidFamily is returned for names that are too long or contain control characters.
	ErrInvalidFamily = errors.New("invalid family name")

	// ErrInvalidInput is returned when a request body fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when an item or note does not exist for the family.
	ErrNotFound = errors.New("not found")
)

// NormalizeFamily trims name and checks it is usable as a family key.
func NormalizeFamily(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrFamilyRequired
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidFamily)
	}
	if n := utf8.RuneCountInString(name); n > MaxFamilyNameLength {
		return "", fmt.Errorf("%w: %d characters exceeds limit of %d", ErrInvalidFamily, n, MaxFamilyNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: contains control characters", ErrInvalidFamily)
		}
	}
	return name, nil
}

// IsFamilyError reports whether err rejects the family name itself.
func IsFamilyError(err error) bool {
	return errors.Is(err, ErrFamilyRequired) || errors.Is(err, ErrInvalidFamily)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
