package models

import "time"

// Comment is a user remark on a snippet.
type Comment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SnippetID uint64 `gorm:"not null;index"`     // Commented snippet ID.
	UserID    uint64 `gorm:"not null;index"`     // Author user ID.
	Body      string `gorm:"type:text;not null"` // Comment text.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Vote records one user's up or down vote on a snippet.
type Vote struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SnippetID uint64 `gorm:"not null;uniqueIndex:idx_votes_snippet_user,priority:1"` // Voted snippet ID.
	UserID    uint64 `gorm:"not null;uniqueIndex:idx_votes_snippet_user,priority:2"` // Voting user ID.
	Value     int    `gorm:"not null"`                                               // +1 or -1.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Award records coins gifted from one user to a snippet author.
type Award struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SnippetID  uint64 `gorm:"not null;index"`            // Awarded snippet ID.
	GiverID    uint64 `gorm:"not null;index"`            // Paying user ID.
	ReceiverID uint64 `gorm:"not null;index"`            // Snippet author ID.
	Kind       string `gorm:"type:varchar(32);not null"` // Award kind.
	Cost       int64  `gorm:"not null"`                  // Coins moved.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
