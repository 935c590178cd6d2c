package models

import "time"

// APIKey stores a hashed programmatic access key.
type APIKey struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Owning user ID.

	Name    string `gorm:"type:varchar(255);not null"`            // Display name.
	Prefix  string `gorm:"type:varchar(16);not null"`             // Leading characters shown in listings.
	KeyHash string `gorm:"type:varchar(64);not null;uniqueIndex"` // SHA-256 hex of the plaintext key.
	Active  bool   `gorm:"not null;default:true"`                 // Whether the key is usable.

	LastUsedAt *time.Time // Last successful authentication.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
