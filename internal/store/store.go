// Package store persists accounts, the token revocation list and the
// weight-tracking data behind one interface with three interchangeable
// backends: volatile in-memory, sqlite, and sqlite with the sensitive
// columns encrypted at rest.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/pps-segura/pesotrack/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUsernameTaken = errors.New("username already taken")
)

type CredentialStore interface {
	// CreateAccount inserts a new account. The role decision (first account
	// in the store's lifetime becomes admin, everyone after becomes user)
	// happens inside the same atomic unit as the insert.
	CreateAccount(ctx context.Context, username, passwordHash string) (*models.Account, error)
	AccountByUsername(ctx context.Context, username string) (*models.Account, error)
	AccountByID(ctx context.Context, id uint) (*models.Account, error)
	CountAccounts(ctx context.Context) (int64, error)
	UpdatePasswordHash(ctx context.Context, id uint, passwordHash string) error
	UpdateRole(ctx context.Context, id uint, role string) error

	// RevokeToken is idempotent; revoking the same jti twice is a no-op.
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	// IsTokenRevoked treats entries whose expiry has passed as absent, so
	// correctness does not depend on the sweeper.
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	SweepRevoked(ctx context.Context, now time.Time) (int64, error)
}

type ProfileStore interface {
	Profile(ctx context.Context, accountID uint) (*models.Profile, error)
	SaveProfile(ctx context.Context, p *models.Profile) error

	// SaveWeight replaces any existing entry recorded on the same calendar day.
	SaveWeight(ctx context.Context, e *models.WeightEntry) error
	LatestWeight(ctx context.Context, accountID uint) (*models.WeightEntry, error)
	// LatestWeightOtherDay returns the most recent entry recorded on a
	// calendar day different from day.
	LatestWeightOtherDay(ctx context.Context, accountID uint, day time.Time) (*models.WeightEntry, error)
	WeightHistory(ctx context.Context, accountID uint) ([]models.WeightEntry, error)
	WeightStats(ctx context.Context, accountID uint) (*WeightStats, error)
}

type WeightStats struct {
	Count int64
	MinKg float64
	MaxKg float64
}

type Store interface {
	CredentialStore
	ProfileStore
	Close() error
}

// dayBounds returns the [start, end) window of the calendar day containing t,
// in t's location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.Add(24 * time.Hour)
}
