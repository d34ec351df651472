package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pps-segura/pesotrack/internal/models"
	"github.com/pps-segura/pesotrack/internal/store"
)

func testAccount() *models.Account {
	return &models.Account{ID: 7, Username: "alice", Role: models.RoleAdmin}
}

func newTestEngine(accessTTL time.Duration) (*Engine, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewEngine([]byte("test-signing-secret"), accessTTL, 7*24*time.Hour, st), st
}

func TestIssueAccess_VerifiesWithClaims(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(15 * time.Minute)
	ctx := context.Background()

	raw, issued, err := engine.IssueAccess(testAccount())
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.NotEmpty(t, issued.ID)

	claims, err := engine.Verify(ctx, raw, TypeAccess)
	require.NoError(t, err)

	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, TypeAccess, claims.TokenType)
	assert.Equal(t, issued.ID, claims.ID)

	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestIssueRefresh_CarriesNoRoleOrUsername(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(15 * time.Minute)

	raw, _, err := engine.IssueRefresh(7)
	require.NoError(t, err)

	claims, err := engine.Verify(context.Background(), raw, TypeRefresh)
	require.NoError(t, err)
	assert.Empty(t, claims.Username)
	assert.Empty(t, claims.Role)
	assert.Equal(t, TypeRefresh, claims.TokenType)
}

func TestVerify_WrongType(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(15 * time.Minute)
	ctx := context.Background()

	access, _, err := engine.IssueAccess(testAccount())
	require.NoError(t, err)
	refresh, _, err := engine.IssueRefresh(7)
	require.NoError(t, err)

	_, err = engine.Verify(ctx, access, TypeRefresh)
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = engine.Verify(ctx, refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(-time.Minute)

	raw, _, err := engine.IssueAccess(testAccount())
	require.NoError(t, err)

	_, err = engine.Verify(context.Background(), raw, TypeAccess)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_TamperedAndMalformed(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(15 * time.Minute)
	ctx := context.Background()

	raw, _, err := engine.IssueAccess(testAccount())
	require.NoError(t, err)

	_, err = engine.Verify(ctx, raw+"x", TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = engine.Verify(ctx, "not-a-jwt", TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewEngine([]byte("different-secret"), 15*time.Minute, time.Hour, store.NewMemoryStore())
	_, err = other.Verify(ctx, raw, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevoke_RejectsBeforeExpiry(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(15 * time.Minute)
	ctx := context.Background()

	raw, claims, err := engine.IssueAccess(testAccount())
	require.NoError(t, err)

	_, err = engine.Verify(ctx, raw, TypeAccess)
	require.NoError(t, err)

	require.NoError(t, engine.Revoke(ctx, claims))
	_, err = engine.Verify(ctx, raw, TypeAccess)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestRevoke_Idempotent(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(15 * time.Minute)
	ctx := context.Background()

	raw, claims, err := engine.IssueAccess(testAccount())
	require.NoError(t, err)

	require.NoError(t, engine.Revoke(ctx, claims))
	require.NoError(t, engine.Revoke(ctx, claims))

	_, err = engine.Verify(ctx, raw, TypeAccess)
	assert.ErrorIs(t, err, ErrRevokedToken)
}
