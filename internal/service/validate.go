package service

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 30
	nameMaxLength     = 100
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9._-]+$`)

var (
	errUsernameEmpty    = errors.New("username is empty")
	errUsernameTooShort = errors.New("username too short")
	errUsernameTooLong  = errors.New("username too long")
	errUsernameInvalid  = errors.New("username contains invalid characters")
	errNameEmpty        = errors.New("name is empty")
	errNameTooLong      = errors.New("name too long")
	errNameInvalid      = errors.New("name contains invalid characters")
)

// validateUsername returns the stored form: trimmed, lowercased, 3-30 chars
// of [a-z0-9._-].
func validateUsername(username string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(username))
	if normalized == "" {
		return "", errUsernameEmpty
	}
	if len(normalized) < usernameMinLength {
		return "", errUsernameTooShort
	}
	if len(normalized) > usernameMaxLength {
		return "", errUsernameTooLong
	}
	if !usernamePattern.MatchString(normalized) {
		return "", errUsernameInvalid
	}
	return normalized, nil
}

// sanitizeName trims, strips markup-dangerous characters, collapses runs of
// whitespace and allows only letters, spaces, hyphens and apostrophes.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errNameEmpty
	}
	if len([]rune(name)) > nameMaxLength {
		return "", errNameTooLong
	}

	for _, c := range `<>"'` {
		name = strings.ReplaceAll(name, string(c), "")
	}
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", errNameInvalid
	}

	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) && r != '-' && r != '\'' {
			return "", errNameInvalid
		}
	}
	return name, nil
}
