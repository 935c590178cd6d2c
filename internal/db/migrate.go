package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/SnippetFactory/internal/models"
	internalsettings "github.com/router-for-me/SnippetFactory/internal/settings"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

func autoMigrateModels(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Community{},
		&models.Snippet{},
		&models.Comment{},
		&models.Vote{},
		&models.Award{},
		&models.APIKey{},
		&models.PaymentHistory{},
		&models.WebhookEvent{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errMigrate := autoMigrateModels(conn); errMigrate != nil {
		return errMigrate
	}
	if errTagsIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snippets_tags_gin
		ON snippets USING GIN (tags)
	`).Error; errTagsIndex != nil {
		return fmt.Errorf("db: create snippet tags index: %w", errTagsIndex)
	}
	if errPublicIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snippets_public_created
		ON snippets (created_at DESC)
		WHERE visibility = 'public'
	`).Error; errPublicIndex != nil {
		return fmt.Errorf("db: create public snippets index: %w", errPublicIndex)
	}
	return seedSettings(conn)
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errMigrate := autoMigrateModels(conn); errMigrate != nil {
		return errMigrate
	}
	if errPublicIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snippets_public_created
		ON snippets (created_at)
		WHERE visibility = 'public'
	`).Error; errPublicIndex != nil {
		return fmt.Errorf("db: create public snippets index: %w", errPublicIndex)
	}
	return seedSettings(conn)
}

func seedSettings(conn *gorm.DB) error {
	return ensureSetting(conn, internalsettings.SiteNameKey, internalsettings.DefaultSiteName)
}

// ensureSetting ensures a setting exists and defaults when empty.
func ensureSetting(conn *gorm.DB, key string, value any) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	rawValue := models.SettingValue(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	now := time.Now().UTC()
	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
