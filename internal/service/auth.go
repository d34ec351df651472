package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pps-segura/pesotrack/internal/hash"
	"github.com/pps-segura/pesotrack/internal/logging"
	"github.com/pps-segura/pesotrack/internal/models"
	"github.com/pps-segura/pesotrack/internal/password"
	"github.com/pps-segura/pesotrack/internal/store"
	"github.com/pps-segura/pesotrack/internal/tokens"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrNotFound           = errors.New("not found")
)

type AuthService struct {
	Store  store.CredentialStore
	Hasher *hash.Hasher
	Policy *password.Policy
	Tokens *tokens.Engine
}

type Session struct {
	Account          models.Account
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

func (s *AuthService) Register(ctx context.Context, username, pass string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	normalized, err := validateUsername(username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.Policy.Validate(ctx, pass); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	digest, err := s.Hasher.Hash(pass)
	if err != nil {
		l.Error("hash failed", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.Store.CreateAccount(ctx, normalized, digest)
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, ErrConflict
		}
		l.Error("create account failed", "error", err)
		return nil, fmt.Errorf("create account: %w", err)
	}

	l.Info("account created", "user_id", account.ID, "role", account.Role)
	return s.issueSession(account)
}

func (s *AuthService) Login(ctx context.Context, username, pass string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	normalized, err := validateUsername(username)
	if err != nil || pass == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.Store.AccountByUsername(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if !s.Hasher.Verify(pass, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// Self-healing cost migration: a login under old cost parameters
	// upgrades that one account to the current ones.
	if s.Hasher.NeedsRehash(account.PasswordHash) {
		if digest, herr := s.Hasher.Hash(pass); herr == nil {
			if uerr := s.Store.UpdatePasswordHash(ctx, account.ID, digest); uerr != nil {
				l.Warn("hash migration failed", "user_id", account.ID, "error", uerr)
			} else {
				account.PasswordHash = digest
				l.Info("hash migrated to current parameters", "user_id", account.ID)
			}
		}
	}

	return s.issueSession(account)
}

func (s *AuthService) issueSession(account *models.Account) (*Session, error) {
	access, _, err := s.Tokens.IssueAccess(account)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshClaims, err := s.Tokens.IssueRefresh(account.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &Session{
		Account:          *account,
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// Refresh mints a new access token from a valid refresh token. Refresh
// tokens are deliberately not rotated here: the same cookie stays valid
// until expiry or explicit revocation.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (string, error) {
	claims, err := s.Tokens.Verify(ctx, rawRefresh, tokens.TypeRefresh)
	if err != nil {
		return "", err
	}
	id, err := claims.AccountID()
	if err != nil {
		return "", tokens.ErrInvalidToken
	}

	// Role and username are re-read so a role change since issuance is
	// reflected in the new access token.
	account, err := s.Store.AccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", tokens.ErrInvalidToken
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}

	access, _, err := s.Tokens.IssueAccess(account)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// Logout revokes the access token's jti, and the refresh token's jti too
// when a still-valid refresh cookie accompanies the request.
func (s *AuthService) Logout(ctx context.Context, accessClaims *tokens.Claims, rawRefresh string) error {
	if err := s.Tokens.Revoke(ctx, accessClaims); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	if rawRefresh == "" {
		return nil
	}
	refreshClaims, err := s.Tokens.Verify(ctx, rawRefresh, tokens.TypeRefresh)
	if err != nil {
		// Already invalid, expired or revoked; nothing left to revoke.
		return nil
	}
	if err := s.Tokens.Revoke(ctx, refreshClaims); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, accountID uint) (*models.Account, error) {
	account, err := s.Store.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

// ChangeRole lets an admin promote or demote another account. Admins can
// never change their own role through this path.
func (s *AuthService) ChangeRole(ctx context.Context, actorID, targetID uint, newRole string) (*models.Account, error) {
	if newRole != models.RoleAdmin && newRole != models.RoleUser {
		return nil, fmt.Errorf("%w: unknown role", ErrValidation)
	}

	actor, err := s.Store.AccountByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("lookup actor: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if actorID == targetID {
		return nil, ErrInvalidOperation
	}

	if err := s.Store.UpdateRole(ctx, targetID, newRole); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	logging.FromContext(ctx).Info("role changed",
		"svc", "auth.change_role", "actor_id", actorID, "target_id", targetID, "role", newRole)
	return s.Store.AccountByID(ctx, targetID)
}

// SweepLoop periodically deletes expired revocation entries. Purely a
// cleanup optimization: reads already treat expired entries as absent.
func (s *AuthService) SweepLoop(ctx context.Context, every time.Duration) {
	l := logging.FromContext(ctx).With("svc", "auth.sweeper")
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := s.Store.SweepRevoked(ctx, now)
			if err != nil {
				l.Warn("sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				l.Info("swept expired revocations", "removed", removed)
			}
		}
	}
}
