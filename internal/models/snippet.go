package models

import (
	"time"

	"gorm.io/datatypes"
)

// Visibility controls who can read a snippet.
type Visibility string

// Visibility constants define snippet audiences.
const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// Snippet stores a piece of shared code.
type Snippet struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Author user ID.
	User   User   `gorm:"foreignKey:UserID"` // Author record.

	CommunityID *uint64 `gorm:"index"` // Owning community, if any.

	Title       string         `gorm:"type:varchar(255);not null"`                 // Snippet title.
	Language    string         `gorm:"type:varchar(64);not null;default:'';index"` // Source language.
	Code        string         `gorm:"type:text;not null"`                         // Source text.
	Description string         `gorm:"type:text"`                                  // Free-form description.
	Tags        datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`           // Tag list.

	Visibility Visibility `gorm:"type:varchar(16);not null;default:'public'"` // Audience.
	Score      int64      `gorm:"not null;default:0"`                         // Cached vote total.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
