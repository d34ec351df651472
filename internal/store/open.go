package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/pps-segura/pesotrack/internal/models"
)

// Open selects the backend from configuration. backend is one of
// "memory", "sqlite" or "sqlite+encryption"; path and key only apply to
// the file-backed variants.
func Open(backend, path, key string) (Store, error) {
	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		db, err := openSQLite(path)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db, nil), nil
	case "sqlite+encryption":
		cipher, err := newColumnCipher(key)
		if err != nil {
			return nil, err
		}
		db, err := openSQLite(path)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db, cipher), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}

func openSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	// Single writer: sqlite serializes writes anyway, and one connection
	// keeps concurrent transactions from deadlocking on lock upgrades.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Account{},
		&models.RevokedToken{},
		&models.Profile{},
		&models.WeightEntry{},
	); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return db, nil
}
