package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pps-segura/pesotrack/internal/models"
)

// GormStore backs the sqlite and encrypted-sqlite variants. With a nil
// cipher all columns are stored as-is; with a cipher the username and
// password hash are sealed and lookups go through a keyed username digest.
type GormStore struct {
	db     *gorm.DB
	cipher *columnCipher
}

func NewGormStore(db *gorm.DB, cipher *columnCipher) *GormStore {
	return &GormStore{db: db, cipher: cipher}
}

func (s *GormStore) CreateAccount(ctx context.Context, username, passwordHash string) (*models.Account, error) {
	var created models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Account{}).
			Where("username = ?", s.lookupKey(username)).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}

		var total int64
		if err := tx.Model(&models.Account{}).Count(&total).Error; err != nil {
			return err
		}
		role := models.RoleUser
		if total == 0 {
			role = models.RoleAdmin
		}

		created = models.Account{
			Username:     username,
			PasswordHash: passwordHash,
			Role:         role,
			CreatedAt:    time.Now().UTC(),
		}
		row, err := s.encodeAccount(&created)
		if err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		created.ID = row.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *GormStore) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var row models.Account
	err := s.db.WithContext(ctx).
		Where("username = ?", s.lookupKey(username)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.decodeAccount(&row)
}

func (s *GormStore) AccountByID(ctx context.Context, id uint) (*models.Account, error) {
	var row models.Account
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.decodeAccount(&row)
}

func (s *GormStore) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Account{}).Count(&count).Error
	return count, err
}

func (s *GormStore) UpdatePasswordHash(ctx context.Context, id uint, passwordHash string) error {
	if s.cipher != nil {
		sealed, err := s.cipher.seal(passwordHash)
		if err != nil {
			return err
		}
		passwordHash = sealed
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UpdateRole(ctx context.Context, id uint, role string) error {
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	row := models.RevokedToken{JTI: jti, ExpiresAt: expiresAt.Unix()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (s *GormStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("jti = ? AND expires_at > ?", jti, time.Now().Unix()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) SweepRevoked(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", now.Unix()).
		Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) Profile(ctx context.Context, accountID uint) (*models.Profile, error) {
	var row models.Profile
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *GormStore) SaveProfile(ctx context.Context, p *models.Profile) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			UpdateAll: true,
		}).
		Create(p).Error
}

func (s *GormStore) SaveWeight(ctx context.Context, e *models.WeightEntry) error {
	start, end := dayBounds(e.RecordedAt)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("account_id = ? AND recorded_at >= ? AND recorded_at < ?", e.AccountID, start, end).
			Delete(&models.WeightEntry{}).Error; err != nil {
			return err
		}
		return tx.Create(e).Error
	})
}

func (s *GormStore) LatestWeight(ctx context.Context, accountID uint) (*models.WeightEntry, error) {
	var row models.WeightEntry
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("recorded_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *GormStore) LatestWeightOtherDay(ctx context.Context, accountID uint, day time.Time) (*models.WeightEntry, error) {
	start, end := dayBounds(day)
	var row models.WeightEntry
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND (recorded_at < ? OR recorded_at >= ?)", accountID, start, end).
		Order("recorded_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *GormStore) WeightHistory(ctx context.Context, accountID uint) ([]models.WeightEntry, error) {
	var rows []models.WeightEntry
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("recorded_at DESC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) WeightStats(ctx context.Context, accountID uint) (*WeightStats, error) {
	var stats WeightStats
	if err := s.db.WithContext(ctx).Model(&models.WeightEntry{}).
		Where("account_id = ?", accountID).
		Count(&stats.Count).Error; err != nil {
		return nil, err
	}
	if stats.Count == 0 {
		return &stats, nil
	}
	row := s.db.WithContext(ctx).Model(&models.WeightEntry{}).
		Select("MIN(weight_kg) AS min_kg, MAX(weight_kg) AS max_kg").
		Where("account_id = ?", accountID).
		Row()
	if err := row.Scan(&stats.MinKg, &stats.MaxKg); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// lookupKey maps a username to the value stored in the unique username
// column: the plaintext for the plain store, a keyed digest when encrypted.
func (s *GormStore) lookupKey(username string) string {
	if s.cipher == nil {
		return username
	}
	return s.cipher.digest(username)
}

func (s *GormStore) encodeAccount(a *models.Account) (*models.Account, error) {
	if s.cipher == nil {
		row := *a
		return &row, nil
	}
	sealedName, err := s.cipher.seal(a.Username)
	if err != nil {
		return nil, err
	}
	sealedHash, err := s.cipher.seal(a.PasswordHash)
	if err != nil {
		return nil, err
	}
	row := *a
	row.Username = s.cipher.digest(a.Username)
	row.UsernameSealed = sealedName
	row.PasswordHash = sealedHash
	return &row, nil
}

func (s *GormStore) decodeAccount(row *models.Account) (*models.Account, error) {
	if s.cipher == nil {
		return row, nil
	}
	name, err := s.cipher.open(row.UsernameSealed)
	if err != nil {
		return nil, err
	}
	hash, err := s.cipher.open(row.PasswordHash)
	if err != nil {
		return nil, err
	}
	out := *row
	out.Username = name
	out.UsernameSealed = ""
	out.PasswordHash = hash
	return &out, nil
}
