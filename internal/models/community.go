package models

import "time"

// Community groups snippets under a shared slug.
type Community struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OwnerID     uint64 `gorm:"not null;index"`                        // Creating user ID.
	Slug        string `gorm:"type:varchar(64);not null;uniqueIndex"` // URL-safe identifier.
	Name        string `gorm:"type:varchar(255);not null"`            // Display name.
	Description string `gorm:"type:text"`                             // Free-form description.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
