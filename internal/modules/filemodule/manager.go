package filemodule

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/events"
	"github.com/showline/showline/internal/logger"
)

// ErrFileNotFound indicates the ledger has no row for the given filename.
var ErrFileNotFound = errors.New("file not found")

// Manager owns the media file ledger. Video blobs are never deleted here:
// rows flip to unused and an external sweeper does the physical deletion.
// Mutating methods take the caller's transaction handle so ledger flips
// commit atomically with the draft/episode mutation that caused them.
type Manager struct {
	db       *gorm.DB
	eventBus events.EventBus
	now      func() int64
}

// NewManager creates a new ledger manager
func NewManager(db *gorm.DB, eventBus events.EventBus) *Manager {
	return &Manager{
		db:       db,
		eventBus: eventBus,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// CreateVideoFile records a new video blob as referenced (used=true).
func (m *Manager) CreateVideoFile(tx *gorm.DB, filename string) error {
	record := database.VideoFile{Filename: filename, Used: true}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create video file record %s: %w", filename, err)
	}
	return nil
}

// ReleaseVideoFile flips a video blob to unused so the sweeper can collect it.
func (m *Manager) ReleaseVideoFile(tx *gorm.DB, filename string) error {
	result := tx.Model(&database.VideoFile{}).Where("filename = ?", filename).Update("used", false)
	if result.Error != nil {
		return fmt.Errorf("failed to release video file %s: %w", filename, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("video file %s: %w", filename, ErrFileNotFound)
	}

	if m.eventBus != nil {
		m.eventBus.PublishAsync(events.NewEventWithData(
			events.EventVideoFileReleased,
			"module:system.media.files",
			"Video File Released",
			fmt.Sprintf("video file %s is no longer referenced", filename),
			map[string]interface{}{"filename": filename},
		))
	}
	return nil
}

// ReleaseVideoFiles flips a batch of video blobs to unused. Missing rows are
// logged, not fatal: archival must not fail because one ledger row is absent.
func (m *Manager) ReleaseVideoFiles(tx *gorm.DB, filenames []string) error {
	for _, filename := range filenames {
		if err := m.ReleaseVideoFile(tx, filename); err != nil {
			if errors.Is(err, ErrFileNotFound) {
				logger.Warn("Video file missing from ledger during bulk release: %s", filename)
				continue
			}
			return err
		}
	}
	return nil
}

// QueueCoverImageDeletion enqueues a cover image for physical deletion.
func (m *Manager) QueueCoverImageDeletion(tx *gorm.DB, filename string) error {
	record := database.DeletingCoverImageFile{
		Filename:   filename,
		QueuedTime: m.now(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to queue cover image %s for deletion: %w", filename, err)
	}

	if m.eventBus != nil {
		m.eventBus.PublishAsync(events.NewEventWithData(
			events.EventCoverImageQueued,
			"module:system.media.files",
			"Cover Image Queued",
			fmt.Sprintf("cover image %s queued for deletion", filename),
			map[string]interface{}{"filename": filename},
		))
	}
	return nil
}

// ListUnusedVideoFiles returns up to limit video files awaiting deletion.
// Read path for the external sweeper.
func (m *Manager) ListUnusedVideoFiles(limit int) ([]database.VideoFile, error) {
	var files []database.VideoFile
	if err := m.db.Where("used = ?", false).Order("filename ASC").Limit(limit).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("failed to list unused video files: %w", err)
	}
	return files, nil
}

// ListPendingCoverImageDeletions returns up to limit queued cover images.
func (m *Manager) ListPendingCoverImageDeletions(limit int) ([]database.DeletingCoverImageFile, error) {
	var files []database.DeletingCoverImageFile
	if err := m.db.Order("queued_time ASC").Limit(limit).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending cover image deletions: %w", err)
	}
	return files, nil
}

// ConfirmVideoFileDeleted removes a ledger row after the sweeper has deleted
// the blob. Refuses rows that flipped back to used in the meantime.
func (m *Manager) ConfirmVideoFileDeleted(filename string) error {
	result := m.db.Where("filename = ? AND used = ?", filename, false).Delete(&database.VideoFile{})
	if result.Error != nil {
		return fmt.Errorf("failed to confirm deletion of video file %s: %w", filename, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("video file %s is not awaiting deletion: %w", filename, ErrFileNotFound)
	}
	return nil
}

// ConfirmCoverImageDeleted dequeues a cover image after physical deletion.
func (m *Manager) ConfirmCoverImageDeleted(filename string) error {
	result := m.db.Where("filename = ?", filename).Delete(&database.DeletingCoverImageFile{})
	if result.Error != nil {
		return fmt.Errorf("failed to confirm deletion of cover image %s: %w", filename, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("cover image %s is not queued for deletion: %w", filename, ErrFileNotFound)
	}
	return nil
}
