// Package password validates password strength against a minimum length,
// a local common-password list and the Pwned Passwords range API
// (k-anonymity: only the first five hex characters of the SHA-1 leave the
// process).
package password

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pps-segura/pesotrack/internal/logging"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrTooShort        = errors.New("password too short")
	ErrCommonPassword  = errors.New("password appears in a common password list")
	ErrBreached        = errors.New("password appears in known breach data")
)

// FailMode decides what happens when neither the remote breach check nor
// the local fallback list can be consulted. Availability versus security is
// a deployment decision, so it is configuration, not code.
type FailMode int

const (
	FailClosed FailMode = iota
	FailOpen
)

type Policy struct {
	MinLength        int
	CommonListPath   string
	FallbackListPath string
	Breach           *BreachClient
	FailMode         FailMode
}

func (p *Policy) Validate(ctx context.Context, password string) error {
	if password == "" {
		return ErrInvalidPassword
	}
	if utf8.RuneCountInString(password) < p.MinLength {
		return ErrTooShort
	}

	// Best effort: a missing or unreadable list skips this check only.
	if found, err := scanList(p.CommonListPath, password); err == nil && found {
		return ErrCommonPassword
	}

	if p.Breach == nil {
		return nil
	}
	pwned, err := p.Breach.IsPwned(ctx, password)
	if err == nil {
		if pwned {
			return ErrBreached
		}
		return nil
	}

	l := logging.FromContext(ctx).With("component", "password_policy")
	l.Warn("breach check unavailable, using local fallback", "error", err)

	if found, ferr := scanList(p.FallbackListPath, password); ferr == nil && found {
		return ErrBreached
	}

	if p.FailMode == FailClosed {
		l.Warn("breach check failed closed, rejecting password")
		return ErrBreached
	}
	return nil
}

// scanList reports whether candidate matches a line of the file at path.
// A missing file is not an error: the check is skipped, not the validation.
func scanList(path, candidate string) (bool, error) {
	if path == "" {
		return false, os.ErrNotExist
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	want := strings.TrimSpace(candidate)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == want {
			return true, nil
		}
	}
	return false, sc.Err()
}
