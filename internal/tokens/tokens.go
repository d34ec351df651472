// Package tokens issues and verifies the two bearer-token kinds: short-lived
// access tokens carrying username and role, and long-lived refresh tokens.
// Every token carries a unique jti so it can be revoked individually.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pps-segura/pesotrack/internal/models"
	"github.com/pps-segura/pesotrack/internal/store"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWrongType    = errors.New("unexpected token type")
	ErrRevokedToken = errors.New("token revoked")
)

type Claims struct {
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim back into a store id.
func (c *Claims) AccountID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse subject: %w", err)
	}
	return uint(id), nil
}

// Engine signs with a single process-wide HS256 secret. The secret comes in
// via configuration; when the deployment leaves it unset, config generates a
// random one that lives for the process, which invalidates all outstanding
// tokens across a restart.
type Engine struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	revocation store.CredentialStore
}

func NewEngine(secret []byte, accessTTL, refreshTTL time.Duration, revocation store.CredentialStore) *Engine {
	return &Engine{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		revocation: revocation,
	}
}

func NewJTI() string { return uuid.NewString() }

func (e *Engine) IssueAccess(account *models.Account) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		Username:  account.Username,
		Role:      account.Role,
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(account.ID), 10),
			ID:        NewJTI(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(e.accessTTL)),
		},
	}
	return e.sign(claims)
}

func (e *Engine) IssueRefresh(accountID uint) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		TokenType: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			ID:        NewJTI(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(e.refreshTTL)),
		},
	}
	return e.sign(claims)
}

func (e *Engine) sign(claims *Claims) (string, *Claims, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(e.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify fails closed: bad signature, malformed structure, expiry, a type
// mismatch or a revoked jti all reject the token.
func (e *Engine) Verify(ctx context.Context, raw, expectedType string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return e.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != expectedType {
		return nil, ErrWrongType
	}

	revoked, err := e.revocation.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}
	return &claims, nil
}

// Revoke blacklists the token's jti until its own expiry. Idempotent.
func (e *Engine) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	return e.revocation.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time)
}
