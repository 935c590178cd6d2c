package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/router-for-me/SnippetFactory/internal/models"
	"gorm.io/gorm"
)

var dbConfig atomic.Pointer[map[string]json.RawMessage]

// DBConfigValue returns the cached raw JSON value for key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	snapshot := dbConfig.Load()
	if snapshot == nil {
		return nil, false
	}
	raw, ok := (*snapshot)[key]
	if !ok || len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

// StoreDBConfig replaces the cached settings snapshot.
func StoreDBConfig(values map[string]json.RawMessage) {
	copied := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		copied[key] = append(json.RawMessage(nil), value...)
	}
	dbConfig.Store(&copied)
}

// RefreshDBConfig reloads every setting row into the snapshot.
func RefreshDBConfig(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("settings: nil db")
	}
	var rows []models.Setting
	if errFind := db.WithContext(ctx).Find(&rows).Error; errFind != nil {
		return fmt.Errorf("settings: load: %w", errFind)
	}
	values := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		values[row.Key] = json.RawMessage(row.Value)
	}
	StoreDBConfig(values)
	return nil
}
