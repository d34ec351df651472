package config

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory          = "memory"
	BackendSQLite          = "sqlite"
	BackendSQLiteEncrypted = "sqlite+encryption"
)

type Config struct {
	Port     int
	LogLevel string

	// Signing secret for both token types. When unset, a random secret is
	// generated and held for the process lifetime: every outstanding token
	// becomes invalid across a restart.
	JWTSecret       []byte
	GeneratedSecret bool

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	PasswordPepper    string
	PasswordMinLength int

	Argon2TimeCost    uint32
	Argon2MemoryKiB   uint32
	Argon2Parallelism uint8
	Argon2SaltLen     uint32
	Argon2KeyLen      uint32

	CommonPasswordsPath   string
	FallbackPasswordsPath string
	HIBPAPIURL            string
	HIBPTimeout           time.Duration
	HIBPFailClosed        bool

	StorageBackend string
	SQLitePath     string
	StorageKey     string

	CookieSecure bool
	SweepEvery   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("no .env file, using system environment", "error", err)
	}

	cfg := &Config{
		Port:     EnvIntDefault("PORT", 5001),
		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),

		AccessTTL:  time.Duration(EnvIntDefault("ACCESS_TTL_MIN", 15)) * time.Minute,
		RefreshTTL: time.Duration(EnvIntDefault("REFRESH_TTL_DAYS", 7)) * 24 * time.Hour,

		PasswordPepper:    os.Getenv("PASSWORD_PEPPER"),
		PasswordMinLength: EnvIntDefault("PASSWORD_MIN_LENGTH", 10),

		Argon2TimeCost:    uint32(EnvIntDefault("ARGON2_TIME_COST", 3)),
		Argon2MemoryKiB:   uint32(EnvIntDefault("ARGON2_MEMORY_KIB", 64*1024)),
		Argon2Parallelism: uint8(EnvIntDefault("ARGON2_PARALLELISM", 2)),
		Argon2SaltLen:     uint32(EnvIntDefault("ARGON2_SALT_LEN", 16)),
		Argon2KeyLen:      uint32(EnvIntDefault("ARGON2_KEY_LEN", 32)),

		CommonPasswordsPath:   EnvDefault("COMMON_PASSWORDS_PATH", "data/rockyou.txt"),
		FallbackPasswordsPath: EnvDefault("COMMON_PASSWORDS_FALLBACK_PATH", "data/common_passwords_fallback.txt"),
		HIBPAPIURL:            EnvDefault("HIBP_API_URL", "https://api.pwnedpasswords.com/range/"),
		HIBPTimeout:           time.Duration(EnvFloatDefault("HIBP_TIMEOUT_SECONDS", 2.5) * float64(time.Second)),
		HIBPFailClosed:        EnvBoolDefault("HIBP_FAIL_CLOSED", true),

		StorageBackend: EnvDefault("STORAGE_BACKEND", BackendSQLite),
		SQLitePath:     EnvDefault("SQLITE_DB_PATH", "data/app.db"),
		StorageKey:     os.Getenv("STORAGE_KEY"),

		CookieSecure: EnvBoolDefault("COOKIE_SECURE", false),
		SweepEvery:   time.Duration(EnvIntDefault("REVOKED_SWEEP_MINUTES", 30)) * time.Minute,
	}

	switch cfg.StorageBackend {
	case BackendMemory, BackendSQLite, BackendSQLiteEncrypted:
	default:
		cfg.StorageBackend = BackendSQLite
	}

	// Original behavior: the encrypted backend falls back to the pepper as key.
	if cfg.StorageBackend == BackendSQLiteEncrypted && cfg.StorageKey == "" {
		cfg.StorageKey = cfg.PasswordPepper
	}

	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = randomSecret()
		cfg.GeneratedSecret = true
	}

	return cfg
}

func randomSecret() []byte {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		panic("config: cannot read random secret: " + err.Error())
	}
	out := make([]byte, base64.RawURLEncoding.EncodedLen(len(buf)))
	base64.RawURLEncoding.Encode(out, buf)
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
