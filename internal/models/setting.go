package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Setting stores a runtime-tunable JSON value.
type Setting struct {
	Key   string       `gorm:"type:varchar(128);primaryKey"` // Setting key.
	Value SettingValue `gorm:"not null"`                     // JSON value.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// SettingValue is a raw JSON document stored as jsonb on PostgreSQL and as
// text on SQLite. SQLite gives jsonb columns numeric affinity, so scalar
// documents may come back as integers or reals; Scan turns them back into JSON.
type SettingValue []byte

// GormDBDataType picks the column type per dialect.
func (SettingValue) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "TEXT"
}

// Value implements driver.Valuer.
func (v SettingValue) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return string(v), nil
}

// Scan implements sql.Scanner.
func (v *SettingValue) Scan(value any) error {
	switch t := value.(type) {
	case nil:
		*v = nil
	case []byte:
		*v = append(SettingValue(nil), t...)
	case string:
		*v = SettingValue(t)
	case int64:
		*v = SettingValue(strconv.FormatInt(t, 10))
	case float64:
		*v = SettingValue(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*v = SettingValue(strconv.FormatBool(t))
	default:
		return fmt.Errorf("models: unsupported setting value type %T", value)
	}
	return nil
}

// MarshalJSON emits the stored document as-is.
func (v SettingValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

// UnmarshalJSON keeps a copy of the raw document.
func (v *SettingValue) UnmarshalJSON(data []byte) error {
	*v = append(SettingValue(nil), data...)
	return nil
}
