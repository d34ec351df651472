package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type Account struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"     json:"username"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null"                 json:"role"`
	CreatedAt    time.Time `json:"created_at"`

	// UsernameSealed is only populated by the encrypted backend, where
	// Username holds a keyed digest instead of the plaintext name.
	UsernameSealed string `gorm:"column:username_sealed" json:"-"`
}

// RevokedToken is the jti blacklist. ExpiresAt mirrors the token's own expiry
// so entries can be swept once the token would have died anyway.
type RevokedToken struct {
	JTI       string `gorm:"primaryKey"      json:"jti"`
	ExpiresAt int64  `gorm:"index;not null"  json:"expires_at"`
}

type Profile struct {
	AccountID uint      `gorm:"primaryKey"  json:"user_id"`
	FirstName string    `gorm:"not null"    json:"first_name"`
	LastName  string    `gorm:"not null"    json:"last_name"`
	BirthDate time.Time `gorm:"not null"    json:"birth_date"`
	HeightM   float64   `gorm:"not null"    json:"height_m"`
}

type WeightEntry struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"entry_id"`
	AccountID  uint      `gorm:"index;not null"           json:"user_id"`
	WeightKg   float64   `gorm:"not null"                 json:"weight_kg"`
	RecordedAt time.Time `gorm:"index;not null"           json:"recorded_at"`
}
