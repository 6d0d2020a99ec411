package filemodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/showline/showline/internal/database"
)

func setupTestManager(t *testing.T) (*Manager, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&database.VideoFile{}, &database.DeletingCoverImageFile{})
	require.NoError(t, err)

	return NewManager(db, nil), db
}

func TestVideoFileLifecycle(t *testing.T) {
	m, db := setupTestManager(t)

	require.NoError(t, m.CreateVideoFile(db, "video-1.mp4"))

	var file database.VideoFile
	require.NoError(t, db.First(&file, "filename = ?", "video-1.mp4").Error)
	assert.True(t, file.Used)

	require.NoError(t, m.ReleaseVideoFile(db, "video-1.mp4"))
	require.NoError(t, db.First(&file, "filename = ?", "video-1.mp4").Error)
	assert.False(t, file.Used)

	// The sweeper can now see and confirm it.
	unused, err := m.ListUnusedVideoFiles(10)
	require.NoError(t, err)
	require.Len(t, unused, 1)
	assert.Equal(t, "video-1.mp4", unused[0].Filename)

	require.NoError(t, m.ConfirmVideoFileDeleted("video-1.mp4"))

	var count int64
	require.NoError(t, db.Model(&database.VideoFile{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReleaseMissingVideoFile(t *testing.T) {
	m, db := setupTestManager(t)

	err := m.ReleaseVideoFile(db, "nope.mp4")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestBulkReleaseSkipsMissingFiles(t *testing.T) {
	m, db := setupTestManager(t)

	require.NoError(t, m.CreateVideoFile(db, "a.mp4"))
	require.NoError(t, m.CreateVideoFile(db, "b.mp4"))

	// A missing file in the batch must not abort the rest.
	require.NoError(t, m.ReleaseVideoFiles(db, []string{"a.mp4", "ghost.mp4", "b.mp4"}))

	unused, err := m.ListUnusedVideoFiles(10)
	require.NoError(t, err)
	assert.Len(t, unused, 2)
}

func TestConfirmVideoFileDeletedRefusesUsedFile(t *testing.T) {
	m, db := setupTestManager(t)

	require.NoError(t, m.CreateVideoFile(db, "busy.mp4"))

	// Still referenced; the sweeper must not be able to drop the row.
	err := m.ConfirmVideoFileDeleted("busy.mp4")
	assert.ErrorIs(t, err, ErrFileNotFound)

	var file database.VideoFile
	require.NoError(t, db.First(&file, "filename = ?", "busy.mp4").Error)
	assert.True(t, file.Used)
}

func TestCoverImageDeletionQueue(t *testing.T) {
	m, db := setupTestManager(t)

	require.NoError(t, m.QueueCoverImageDeletion(db, "old-cover.webp"))

	pending, err := m.ListPendingCoverImageDeletions(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "old-cover.webp", pending[0].Filename)

	require.NoError(t, m.ConfirmCoverImageDeleted("old-cover.webp"))

	pending, err = m.ListPendingCoverImageDeletions(10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = m.ConfirmCoverImageDeleted("old-cover.webp")
	assert.ErrorIs(t, err, ErrFileNotFound)
}
