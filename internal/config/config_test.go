package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "ACCESS_TTL_MIN", "REFRESH_TTL_DAYS",
		"PASSWORD_MIN_LENGTH", "ARGON2_TIME_COST", "ARGON2_MEMORY_KIB",
		"HIBP_TIMEOUT_SECONDS", "HIBP_FAIL_CLOSED", "STORAGE_BACKEND",
		"REVOKED_SWEEP_MINUTES",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 5001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 10, cfg.PasswordMinLength)
	assert.Equal(t, uint32(3), cfg.Argon2TimeCost)
	assert.Equal(t, uint32(64*1024), cfg.Argon2MemoryKiB)
	assert.Equal(t, 2500*time.Millisecond, cfg.HIBPTimeout)
	assert.True(t, cfg.HIBPFailClosed)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, 30*time.Minute, cfg.SweepEvery)
}

func TestLoad_GeneratedSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg := Load()
	assert.True(t, cfg.GeneratedSecret)
	require.NotEmpty(t, cfg.JWTSecret)

	// Two loads never share a generated secret.
	assert.NotEqual(t, string(cfg.JWTSecret), string(Load().JWTSecret))

	t.Setenv("JWT_SECRET", "configured-secret")
	cfg = Load()
	assert.False(t, cfg.GeneratedSecret)
	assert.Equal(t, []byte("configured-secret"), cfg.JWTSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ACCESS_TTL_MIN", "5")
	t.Setenv("HIBP_TIMEOUT_SECONDS", "0.5")
	t.Setenv("HIBP_FAIL_CLOSED", "false")
	t.Setenv("STORAGE_BACKEND", "memory")

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.HIBPTimeout)
	assert.False(t, cfg.HIBPFailClosed)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
}

func TestLoad_BackendFallbacks(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	cfg := Load()
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)

	// The encrypted backend reuses the pepper when no key is set.
	t.Setenv("STORAGE_BACKEND", "sqlite+encryption")
	t.Setenv("STORAGE_KEY", "")
	t.Setenv("PASSWORD_PEPPER", "pepper-as-key")
	cfg = Load()
	assert.Equal(t, "pepper-as-key", cfg.StorageKey)
}

func TestEnvHelpers_MalformedValues(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	t.Setenv("SOME_FLOAT", "nope")
	t.Setenv("SOME_BOOL", "si")

	assert.Equal(t, 42, EnvIntDefault("SOME_INT", 42))
	assert.Equal(t, 1.5, EnvFloatDefault("SOME_FLOAT", 1.5))
	assert.True(t, EnvBoolDefault("SOME_BOOL", true))
}
