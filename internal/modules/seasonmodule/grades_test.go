package seasonmodule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/events"
)

func publishSeason(t *testing.T, m *Manager, seasonID string) {
	t.Helper()
	draft := uploadedDraft(t, m, seasonID)
	_, err := m.PublishEpisode(context.Background(), testPublisher, seasonID, draft.ID, PublishEpisodeRequest{})
	require.NoError(t, err)
}

func TestUpdateGradeOnDraftSeasonMutatesInPlace(t *testing.T) {
	m, db, _, bus := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	require.NoError(t, m.UpdateSeasonGrade(ctx, testPublisher, season.ID, UpdateGradeRequest{Grade: 42}))

	// Still exactly one window spanning epoch to the far future.
	var windows []database.SeasonGrade
	require.NoError(t, db.Where("season_id = ?", season.ID).Find(&windows).Error)
	require.Len(t, windows, 1)
	assert.Equal(t, 42, windows[0].Grade)
	assert.Equal(t, int64(0), windows[0].StartTime)
	assert.Equal(t, database.FarFutureTimestamp, windows[0].EndTime)

	assert.Contains(t, bus.EventTypes(), events.EventSeasonGraded)
}

func TestUpdateGradeValidation(t *testing.T) {
	m, _, clock, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)

	for _, grade := range []int{0, 100} {
		err := m.UpdateSeasonGrade(ctx, testPublisher, season.ID, UpdateGradeRequest{Grade: grade})
		assert.ErrorIs(t, err, ErrGradeOutOfRange, "grade %d", grade)
	}

	// A too-soon effective time is rejected before any storage access.
	tooSoon := clock.now() + time.Hour.Milliseconds()
	err := m.UpdateSeasonGrade(ctx, testPublisher, season.ID, UpdateGradeRequest{Grade: 20, EffectiveTime: &tooSoon})
	assert.ErrorIs(t, err, ErrEffectiveTimeTooSoon)
}

func TestUpdateGradeOnPublishedSeasonRequiresEffectiveTime(t *testing.T) {
	m, _, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	publishSeason(t, m, season.ID)

	err := m.UpdateSeasonGrade(ctx, testPublisher, season.ID, UpdateGradeRequest{Grade: 20})
	assert.ErrorIs(t, err, ErrEffectiveTimeMissing)
}

func TestScheduleGradeChangeOnPublishedSeason(t *testing.T) {
	m, db, clock, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	publishSeason(t, m, season.ID)

	effective := clock.now() + (48 * time.Hour).Milliseconds()
	require.NoError(t, m.UpdateSeasonGrade(ctx, testPublisher, season.ID, UpdateGradeRequest{
		Grade:         25,
		EffectiveTime: &effective,
	}))

	// The original window is shortened, a pending window appended.
	var windows []database.SeasonGrade
	require.NoError(t, db.Where("season_id = ?", season.ID).Order("start_time ASC").Find(&windows).Error)
	require.Len(t, windows, 2)
	assert.Equal(t, 10, windows[0].Grade)
	assert.Equal(t, effective, windows[0].EndTime)
	assert.Equal(t, 25, windows[1].Grade)
	assert.Equal(t, effective, windows[1].StartTime)
	assert.Equal(t, database.FarFutureTimestamp, windows[1].EndTime)

	// The read side reports current plus pending.
	details, err := m.GetSeasonDetails(ctx, testPublisher, season.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, details.Grades.CurrentGrade)
	require.NotNil(t, details.Grades.NextGrade)
	assert.Equal(t, 25, *details.Grades.NextGrade)
	require.NotNil(t, details.Grades.NextGradeAt)
	assert.Equal(t, effective, *details.Grades.NextGradeAt)

	// Once the effective time passes, the pending grade is current.
	clock.advance(72 * time.Hour)
	details, err = m.GetSeasonDetails(ctx, testPublisher, season.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, details.Grades.CurrentGrade)
	assert.Nil(t, details.Grades.NextGrade)
}

func TestRescheduleOverwritesPendingWindow(t *testing.T) {
	m, db, clock, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	publishSeason(t, m, season.ID)

	firstEffective := clock.now() + (48 * time.Hour).Milliseconds()
	require.NoError(t, m.UpdateSeasonGrade(ctx, testPublisher, season.ID, UpdateGradeRequest{
		Grade:         25,
		EffectiveTime: &firstEffective,
	}))

	// Scheduling again replaces the pending change instead of stacking.
	secondEffective := clock.now() + (96 * time.Hour).Milliseconds()
	require.NoError(t, m.UpdateSeasonGrade(ctx, testPublisher, season.ID, UpdateGradeRequest{
		Grade:         30,
		EffectiveTime: &secondEffective,
	}))

	var windows []database.SeasonGrade
	require.NoError(t, db.Where("season_id = ?", season.ID).Order("start_time ASC").Find(&windows).Error)
	require.Len(t, windows, 2)
	assert.Equal(t, 10, windows[0].Grade)
	assert.Equal(t, secondEffective, windows[0].EndTime)
	assert.Equal(t, 30, windows[1].Grade)
	assert.Equal(t, secondEffective, windows[1].StartTime)

	details, err := m.GetSeasonDetails(ctx, testPublisher, season.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, details.Grades.CurrentGrade)
	assert.Equal(t, 30, *details.Grades.NextGrade)
	assert.Equal(t, secondEffective, *details.Grades.NextGradeAt)
}

func TestGradeHistoryKeepsAtMostTwoLiveWindows(t *testing.T) {
	m, db, clock, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	publishSeason(t, m, season.ID)

	// Apply several changes over time, letting each one take effect.
	for i, grade := range []int{20, 30, 40} {
		effective := clock.now() + (48 * time.Hour).Milliseconds()
		require.NoError(t, m.UpdateSeasonGrade(ctx, testPublisher, season.ID, UpdateGradeRequest{
			Grade:         grade,
			EffectiveTime: &effective,
		}), "change %d", i)
		clock.advance(72 * time.Hour)
	}

	// History keeps every superseded window.
	var total int64
	require.NoError(t, db.Model(&database.SeasonGrade{}).Where("season_id = ?", season.ID).Count(&total).Error)
	assert.Equal(t, int64(4), total)

	// But at most two windows are still live.
	var live int64
	require.NoError(t, db.Model(&database.SeasonGrade{}).
		Where("season_id = ? AND end_time >= ?", season.ID, clock.now()).
		Count(&live).Error)
	assert.LessOrEqual(t, live, int64(2))

	details, err := m.GetSeasonDetails(ctx, testPublisher, season.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, details.Grades.CurrentGrade)
}

func TestUpdateGradeOnArchivedSeasonRejected(t *testing.T) {
	m, _, clock, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	publishSeason(t, m, season.ID)
	require.NoError(t, m.ArchiveSeason(ctx, testPublisher, season.ID))

	effective := clock.now() + (48 * time.Hour).Milliseconds()
	err := m.UpdateSeasonGrade(ctx, testPublisher, season.ID, UpdateGradeRequest{
		Grade:         20,
		EffectiveTime: &effective,
	})
	assert.ErrorIs(t, err, ErrSeasonArchived)
}

func TestCorruptGradeWindowsAreIntegrityFaults(t *testing.T) {
	m, db, clock, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	publishSeason(t, m, season.ID)

	// No live window at all.
	require.NoError(t, db.Where("season_id = ?", season.ID).Delete(&database.SeasonGrade{}).Error)
	_, err := m.GetSeasonDetails(ctx, testPublisher, season.ID)
	assert.True(t, IsIntegrityError(err), "expected integrity fault, got %v", err)

	effective := clock.now() + (48 * time.Hour).Milliseconds()
	err = m.UpdateSeasonGrade(ctx, testPublisher, season.ID, UpdateGradeRequest{
		Grade:         20,
		EffectiveTime: &effective,
	})
	assert.True(t, IsIntegrityError(err), "expected integrity fault, got %v", err)

	// A draft season must have exactly one window.
	draftSeason := createTestSeason(t, m, 10)
	extra := database.SeasonGrade{
		ID:        "extra-window",
		SeasonID:  draftSeason.ID,
		Grade:     50,
		StartTime: 0,
		EndTime:   database.FarFutureTimestamp,
	}
	require.NoError(t, db.Create(&extra).Error)
	err = m.UpdateSeasonGrade(ctx, testPublisher, draftSeason.ID, UpdateGradeRequest{Grade: 60})
	assert.True(t, IsIntegrityError(err), "expected integrity fault, got %v", err)
}

func TestSeasonIntegrityValidation(t *testing.T) {
	m, db, _, _ := setupTestManager(t)

	season := createTestSeason(t, m, 10)
	publishEpisodes(t, m, season.ID, 3)

	require.NoError(t, database.ValidateSeasonIntegrity(db, season.ID))

	// Punch a hole in the ordering and the validator notices.
	require.NoError(t, db.Model(&database.Episode{}).
		Where("season_id = ? AND episode_index = ?", season.ID, 2).
		Update("episode_index", 9).Error)
	assert.Error(t, database.ValidateSeasonIntegrity(db, season.ID))
}
