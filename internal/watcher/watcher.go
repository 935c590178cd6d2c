package watcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/SnippetFactory/internal/models"
	internalsettings "github.com/router-for-me/SnippetFactory/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Default timings for the watcher loop.
const (
	// defaultPollInterval controls how often the settings table is checked.
	defaultPollInterval = 5 * time.Second
	// defaultQueryTimeout bounds DB query duration.
	defaultQueryTimeout = 10 * time.Second
)

// SettingsWatcher polls the settings table and reloads the in-memory
// snapshot when another instance changes it.
type SettingsWatcher struct {
	db           *gorm.DB
	pollInterval time.Duration

	mu        sync.Mutex
	latestAt  time.Time
	latestKey string
	hasLatest bool

	wg sync.WaitGroup
}

// NewSettingsWatcher constructs a watcher. A non-positive interval uses the default.
func NewSettingsWatcher(db *gorm.DB, pollInterval time.Duration) *SettingsWatcher {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &SettingsWatcher{db: db, pollInterval: pollInterval}
}

// Start launches the polling goroutine. It stops when ctx is cancelled.
func (w *SettingsWatcher) Start(ctx context.Context) {
	if w == nil || w.db == nil {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	log.Infof("settings watcher started (poll_interval=%s)", w.pollInterval)
}

// Wait blocks until the polling goroutine has exited.
func (w *SettingsWatcher) Wait() {
	if w == nil {
		return
	}
	w.wg.Wait()
}

func (w *SettingsWatcher) run(ctx context.Context) {
	w.Poll(ctx, true)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll(ctx, false)
		}
	}
}

// Poll reloads the snapshot when the newest settings row changed since the
// last poll, or unconditionally when force is set. It reports whether a
// reload happened.
func (w *SettingsWatcher) Poll(ctx context.Context, force bool) bool {
	if w == nil || w.db == nil {
		return false
	}
	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	// latestRow captures the newest setting timestamp for change detection.
	type latestRow struct {
		Key       string    `gorm:"column:key"`        // Latest settings key.
		UpdatedAt time.Time `gorm:"column:updated_at"` // Latest settings update time.
	}
	var latest latestRow
	hasLatest := true
	errLatest := w.db.WithContext(qctx).
		Model(&models.Setting{}).
		Select("key", "updated_at").
		Order("updated_at DESC, key DESC").
		Limit(1).
		Take(&latest).Error
	if errLatest != nil {
		if errors.Is(errLatest, context.Canceled) {
			return false
		}
		if !errors.Is(errLatest, gorm.ErrRecordNotFound) {
			log.WithError(errLatest).Warn("settings watcher: query latest row failed")
			return false
		}
		hasLatest = false
	}
	latestKey := strings.TrimSpace(latest.Key)
	latestAt := latest.UpdatedAt.UTC()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !force {
		if !hasLatest && !w.hasLatest {
			return false
		}
		if hasLatest && w.hasLatest && latestAt.Equal(w.latestAt) && latestKey == w.latestKey {
			return false
		}
	}

	if errRefresh := internalsettings.RefreshDBConfig(qctx, w.db); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings watcher: reload failed")
		return false
	}
	log.Debugf("settings watcher: snapshot reloaded (latest_updated_at=%s latest_key=%s)", latestAt.Format(time.RFC3339Nano), latestKey)

	w.latestAt = latestAt
	w.latestKey = latestKey
	w.hasLatest = hasLatest
	return true
}
