package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pps-segura/pesotrack/internal/models"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := Open("sqlite", filepath.Join(t.TempDir(), "app.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	encryptedStore, err := Open("sqlite+encryption", filepath.Join(t.TempDir(), "secure.db"), "test-storage-key")
	require.NoError(t, err)
	t.Cleanup(func() { encryptedStore.Close() })

	return map[string]Store{
		"memory":            NewMemoryStore(),
		"sqlite":            sqliteStore,
		"sqlite+encryption": encryptedStore,
	}
}

func TestCreateAccount_FirstBecomesAdmin(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := st.CreateAccount(ctx, "alice", "digest-a")
			require.NoError(t, err)
			assert.Equal(t, models.RoleAdmin, first.Role)
			assert.NotZero(t, first.ID)
			assert.False(t, first.CreatedAt.IsZero())

			second, err := st.CreateAccount(ctx, "bob", "digest-b")
			require.NoError(t, err)
			assert.Equal(t, models.RoleUser, second.Role)
			assert.NotEqual(t, first.ID, second.ID)

			count, err := st.CountAccounts(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 2, count)
		})
	}
}

func TestCreateAccount_DuplicateUsername(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := st.CreateAccount(ctx, "alice", "digest")
			require.NoError(t, err)

			_, err = st.CreateAccount(ctx, "alice", "other-digest")
			assert.ErrorIs(t, err, ErrUsernameTaken)
		})
	}
}

func TestCreateAccount_ConcurrentBootstrap(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const workers = 8

			var wg sync.WaitGroup
			roles := make([]string, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					acc, err := st.CreateAccount(ctx, fmt.Sprintf("user%d", i), "digest")
					if err == nil {
						roles[i] = acc.Role
					}
				}(i)
			}
			wg.Wait()

			var admins int
			for _, role := range roles {
				if role == models.RoleAdmin {
					admins++
				}
			}
			assert.Equal(t, 1, admins, "exactly one concurrent registration may win the first slot")
		})
	}
}

func TestAccountLookupAndUpdates(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := st.CreateAccount(ctx, "alice", "digest-1")
			require.NoError(t, err)

			byName, err := st.AccountByUsername(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, created.ID, byName.ID)
			assert.Equal(t, "alice", byName.Username)
			assert.Equal(t, "digest-1", byName.PasswordHash)

			byID, err := st.AccountByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "alice", byID.Username)

			_, err = st.AccountByUsername(ctx, "nobody")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = st.AccountByID(ctx, 9999)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, st.UpdatePasswordHash(ctx, created.ID, "digest-2"))
			updated, err := st.AccountByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "digest-2", updated.PasswordHash)

			require.NoError(t, st.UpdateRole(ctx, created.ID, models.RoleUser))
			updated, err = st.AccountByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, models.RoleUser, updated.Role)

			assert.ErrorIs(t, st.UpdatePasswordHash(ctx, 9999, "x"), ErrNotFound)
			assert.ErrorIs(t, st.UpdateRole(ctx, 9999, models.RoleUser), ErrNotFound)
		})
	}
}

func TestRevocation(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			revoked, err := st.IsTokenRevoked(ctx, "jti-1")
			require.NoError(t, err)
			assert.False(t, revoked)

			exp := time.Now().Add(time.Hour)
			require.NoError(t, st.RevokeToken(ctx, "jti-1", exp))
			// Idempotent: same jti again is a no-op.
			require.NoError(t, st.RevokeToken(ctx, "jti-1", exp))

			revoked, err = st.IsTokenRevoked(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, revoked)

			// Already-expired entries read as absent even before a sweep.
			require.NoError(t, st.RevokeToken(ctx, "jti-stale", time.Now().Add(-time.Minute)))
			revoked, err = st.IsTokenRevoked(ctx, "jti-stale")
			require.NoError(t, err)
			assert.False(t, revoked)

			removed, err := st.SweepRevoked(ctx, time.Now())
			require.NoError(t, err)
			assert.EqualValues(t, 1, removed)

			// Live entries survive the sweep.
			revoked, err = st.IsTokenRevoked(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, revoked)
		})
	}
}

func TestWeights_SameDayReplacement(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			noon := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

			require.NoError(t, st.SaveWeight(ctx, &models.WeightEntry{AccountID: 1, WeightKg: 80, RecordedAt: noon}))
			require.NoError(t, st.SaveWeight(ctx, &models.WeightEntry{AccountID: 1, WeightKg: 81, RecordedAt: noon.Add(3 * time.Hour)}))

			history, err := st.WeightHistory(ctx, 1)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, 81.0, history[0].WeightKg)

			// A different account's same-day entry is untouched.
			require.NoError(t, st.SaveWeight(ctx, &models.WeightEntry{AccountID: 2, WeightKg: 70, RecordedAt: noon}))
			other, err := st.WeightHistory(ctx, 2)
			require.NoError(t, err)
			assert.Len(t, other, 1)
		})
	}
}

func TestWeights_LatestAndStats(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			day := func(d int) time.Time { return time.Date(2026, 8, d, 9, 0, 0, 0, time.UTC) }

			_, err := st.LatestWeight(ctx, 1)
			assert.ErrorIs(t, err, ErrNotFound)

			for i, kg := range []float64{82, 80, 79} {
				require.NoError(t, st.SaveWeight(ctx, &models.WeightEntry{AccountID: 1, WeightKg: kg, RecordedAt: day(10 + i)}))
			}

			latest, err := st.LatestWeight(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, 79.0, latest.WeightKg)

			prev, err := st.LatestWeightOtherDay(ctx, 1, day(12))
			require.NoError(t, err)
			assert.Equal(t, 80.0, prev.WeightKg)

			history, err := st.WeightHistory(ctx, 1)
			require.NoError(t, err)
			require.Len(t, history, 3)
			assert.Equal(t, 79.0, history[0].WeightKg)
			assert.Equal(t, 82.0, history[2].WeightKg)

			stats, err := st.WeightStats(ctx, 1)
			require.NoError(t, err)
			assert.EqualValues(t, 3, stats.Count)
			assert.Equal(t, 79.0, stats.MinKg)
			assert.Equal(t, 82.0, stats.MaxKg)
		})
	}
}

func TestProfileRoundTrip(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := st.Profile(ctx, 1)
			assert.ErrorIs(t, err, ErrNotFound)

			p := &models.Profile{
				AccountID: 1,
				FirstName: "Alice",
				LastName:  "García",
				BirthDate: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
				HeightM:   1.68,
			}
			require.NoError(t, st.SaveProfile(ctx, p))

			got, err := st.Profile(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, "Alice", got.FirstName)
			assert.Equal(t, 1.68, got.HeightM)

			p.HeightM = 1.69
			require.NoError(t, st.SaveProfile(ctx, p))
			got, err = st.Profile(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, 1.69, got.HeightM)
		})
	}
}
