package watcher

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/router-for-me/SnippetFactory/internal/models"
	internalsettings "github.com/router-for-me/SnippetFactory/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Setting{}))
	return db
}

func TestSettingsWatcher_ReloadsOnlyOnChange(t *testing.T) {
	internalsettings.StoreDBConfig(nil)
	t.Cleanup(func() { internalsettings.StoreDBConfig(nil) })

	db := openTestDB(t)
	require.NoError(t, db.Create(&models.Setting{Key: internalsettings.RateLimitKey, Value: models.SettingValue(`5`)}).Error)

	w := NewSettingsWatcher(db, time.Hour)
	ctx := context.Background()

	require.True(t, w.Poll(ctx, true))
	raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitKey)
	require.True(t, ok)
	assert.JSONEq(t, `5`, string(raw))

	assert.False(t, w.Poll(ctx, false))

	require.NoError(t, db.Model(&models.Setting{}).
		Where("key = ?", internalsettings.RateLimitKey).
		Updates(map[string]any{"value": models.SettingValue(`9`), "updated_at": time.Now().Add(time.Minute)}).Error)

	require.True(t, w.Poll(ctx, false))
	raw, ok = internalsettings.DBConfigValue(internalsettings.RateLimitKey)
	require.True(t, ok)
	assert.JSONEq(t, `9`, string(raw))
}

func TestSettingsWatcher_StopsWithContext(t *testing.T) {
	db := openTestDB(t)
	w := NewSettingsWatcher(db, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
