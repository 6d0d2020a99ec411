package seasonmodule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/events"
)

// assertDenseOrdering checks that the season's episode indices are exactly
// 1..N for N stored rows and that the denormalized counter agrees.
func assertDenseOrdering(t *testing.T, db *gorm.DB, seasonID string) []database.Episode {
	t.Helper()

	var episodes []database.Episode
	require.NoError(t, db.Where("season_id = ?", seasonID).Order("episode_index ASC").Find(&episodes).Error)
	for i, ep := range episodes {
		assert.Equal(t, i+1, ep.EpisodeIndex, "episode %s out of place", ep.ID)
	}

	var season database.Season
	require.NoError(t, db.First(&season, "id = ?", seasonID).Error)
	assert.Equal(t, len(episodes), season.TotalEpisodes)
	return episodes
}

func publishEpisodes(t *testing.T, m *Manager, seasonID string, n int) []database.Episode {
	t.Helper()
	ctx := context.Background()

	published := make([]database.Episode, 0, n)
	for i := 0; i < n; i++ {
		draft := uploadedDraft(t, m, seasonID)
		result, err := m.PublishEpisode(ctx, testPublisher, seasonID, draft.ID, PublishEpisodeRequest{})
		require.NoError(t, err)
		published = append(published, result.Episode)
	}
	return published
}

func TestPublishFirstEpisodeFlipsSeasonState(t *testing.T) {
	m, db, _, bus := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	draft := uploadedDraft(t, m, season.ID)

	result, err := m.PublishEpisode(ctx, testPublisher, season.ID, draft.ID, PublishEpisodeRequest{})
	require.NoError(t, err)
	assert.True(t, result.SeasonStateChanged)
	assert.Equal(t, 1, result.Episode.EpisodeIndex)
	assert.Equal(t, draft.VideoFilename, result.Episode.VideoFilename)

	var stored database.Season
	require.NoError(t, db.First(&stored, "id = ?", season.ID).Error)
	assert.Equal(t, database.SeasonStatePublished, stored.State)
	assert.Equal(t, 1, stored.TotalEpisodes)

	// The draft was consumed.
	var draftCount int64
	require.NoError(t, db.Model(&database.EpisodeDraft{}).Where("id = ?", draft.ID).Count(&draftCount).Error)
	assert.Zero(t, draftCount)

	types := bus.EventTypes()
	assert.Contains(t, types, events.EventEpisodePublished)
	assert.Contains(t, types, events.EventSeasonPublished)
}

func TestPublishSecondEpisodeKeepsSeasonState(t *testing.T) {
	m, _, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	publishEpisodes(t, m, season.ID, 1)

	draft := uploadedDraft(t, m, season.ID)
	result, err := m.PublishEpisode(ctx, testPublisher, season.ID, draft.ID, PublishEpisodeRequest{})
	require.NoError(t, err)
	assert.False(t, result.SeasonStateChanged)
	assert.Equal(t, 2, result.Episode.EpisodeIndex)
}

func TestPublishRequiresUploadedVideo(t *testing.T) {
	m, _, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	draft, err := m.CreateEpisodeDraft(ctx, testPublisher, season.ID, CreateEpisodeDraftRequest{})
	require.NoError(t, err)

	_, err = m.PublishEpisode(ctx, testPublisher, season.ID, draft.ID, PublishEpisodeRequest{})
	assert.ErrorIs(t, err, ErrVideoNotUploaded)

	// An in-flight upload is not enough either.
	draft, err = m.RecordUploadProgress(ctx, testPublisher, season.ID, draft.ID, RecordUploadProgressRequest{
		ResumableUploadToken: "token-1",
	})
	require.NoError(t, err)
	_, err = m.PublishEpisode(ctx, testPublisher, season.ID, draft.ID, PublishEpisodeRequest{})
	assert.ErrorIs(t, err, ErrVideoNotUploaded)
}

func TestPublishPremierTimeDefaultsToNow(t *testing.T) {
	m, _, clock, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	draft := uploadedDraft(t, m, season.ID)

	result, err := m.PublishEpisode(ctx, testPublisher, season.ID, draft.ID, PublishEpisodeRequest{})
	require.NoError(t, err)
	assert.Equal(t, clock.now(), result.Episode.PremierTime)

	draft = uploadedDraft(t, m, season.ID)
	premier := clock.now() + 86400000
	result, err = m.PublishEpisode(ctx, testPublisher, season.ID, draft.ID, PublishEpisodeRequest{
		PremierTime: &premier,
	})
	require.NoError(t, err)
	assert.Equal(t, premier, result.Episode.PremierTime)
}

func TestPublishOnDraftSeasonWithCorruptCounterIsIntegrityFault(t *testing.T) {
	m, db, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	draft := uploadedDraft(t, m, season.ID)

	// Corrupt the denormalized counter on the still-draft season.
	require.NoError(t, db.Model(&database.Season{}).
		Where("id = ?", season.ID).
		Update("total_episodes", 3).Error)

	_, err := m.PublishEpisode(ctx, testPublisher, season.ID, draft.ID, PublishEpisodeRequest{})
	assert.True(t, IsIntegrityError(err), "expected integrity fault, got %v", err)
}

func TestDeleteEpisodeClosesGap(t *testing.T) {
	m, db, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	published := publishEpisodes(t, m, season.ID, 5)

	// Delete the middle episode; 4 and 5 slide down.
	require.NoError(t, m.DeleteEpisode(ctx, testPublisher, season.ID, published[2].ID))

	episodes := assertDenseOrdering(t, db, season.ID)
	require.Len(t, episodes, 4)
	assert.Equal(t, published[0].ID, episodes[0].ID)
	assert.Equal(t, published[1].ID, episodes[1].ID)
	assert.Equal(t, published[3].ID, episodes[2].ID)
	assert.Equal(t, published[4].ID, episodes[3].ID)

	// The deleted episode's video file flipped to unused.
	var file database.VideoFile
	require.NoError(t, db.Where("filename = ?", published[2].VideoFilename).First(&file).Error)
	assert.False(t, file.Used)
}

func TestDeleteManyEpisodesKeepsOrderingDense(t *testing.T) {
	m, db, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	published := publishEpisodes(t, m, season.ID, 30)

	// Remove five episodes scattered across the season.
	for _, victim := range []int{0, 7, 14, 21, 28} {
		require.NoError(t, m.DeleteEpisode(ctx, testPublisher, season.ID, published[victim].ID))
	}

	episodes := assertDenseOrdering(t, db, season.ID)
	assert.Len(t, episodes, 25)
}

func TestReorderEpisodeTowardFront(t *testing.T) {
	m, db, _, bus := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	published := publishEpisodes(t, m, season.ID, 5)

	// Move episode 4 to index 2: old 2 and 3 shift up by one.
	require.NoError(t, m.ReorderEpisode(ctx, testPublisher, season.ID, published[3].ID, 2))

	episodes := assertDenseOrdering(t, db, season.ID)
	wantOrder := []string{published[0].ID, published[3].ID, published[1].ID, published[2].ID, published[4].ID}
	for i, want := range wantOrder {
		assert.Equal(t, want, episodes[i].ID, "index %d", i+1)
	}

	assert.Contains(t, bus.EventTypes(), events.EventEpisodeReordered)
}

func TestReorderEpisodeTowardBack(t *testing.T) {
	m, db, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	published := publishEpisodes(t, m, season.ID, 5)

	// Move episode 2 to index 4: old 3 and 4 shift down by one.
	require.NoError(t, m.ReorderEpisode(ctx, testPublisher, season.ID, published[1].ID, 4))

	episodes := assertDenseOrdering(t, db, season.ID)
	wantOrder := []string{published[0].ID, published[2].ID, published[3].ID, published[1].ID, published[4].ID}
	for i, want := range wantOrder {
		assert.Equal(t, want, episodes[i].ID, "index %d", i+1)
	}
}

func TestReorderEpisodeValidation(t *testing.T) {
	m, _, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	published := publishEpisodes(t, m, season.ID, 3)

	err := m.ReorderEpisode(ctx, testPublisher, season.ID, published[0].ID, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	err = m.ReorderEpisode(ctx, testPublisher, season.ID, published[0].ID, 4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	err = m.ReorderEpisode(ctx, testPublisher, season.ID, published[1].ID, 2)
	assert.ErrorIs(t, err, ErrIndexAlreadySet)
}

func TestReorderAfterDeleteStaysDense(t *testing.T) {
	m, db, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	published := publishEpisodes(t, m, season.ID, 6)

	require.NoError(t, m.DeleteEpisode(ctx, testPublisher, season.ID, published[1].ID))
	require.NoError(t, m.ReorderEpisode(ctx, testPublisher, season.ID, published[5].ID, 1))
	require.NoError(t, m.DeleteEpisode(ctx, testPublisher, season.ID, published[3].ID))
	require.NoError(t, m.ReorderEpisode(ctx, testPublisher, season.ID, published[0].ID, 4))

	episodes := assertDenseOrdering(t, db, season.ID)
	assert.Len(t, episodes, 4)
}

func TestDeleteEpisodeVideoAllocatesFreshFilename(t *testing.T) {
	m, db, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	draft := uploadedDraft(t, m, season.ID)
	oldFilename := draft.VideoFilename

	reset, err := m.DeleteEpisodeVideo(ctx, testPublisher, season.ID, draft.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldFilename, reset.VideoFilename)
	assert.Equal(t, database.VideoStateEmpty, reset.VideoState)
	assert.Empty(t, reset.ResumableUploadToken)
	assert.Zero(t, reset.VideoDuration)

	// Old blob released, new placeholder registered as used.
	var oldFile, newFile database.VideoFile
	require.NoError(t, db.Where("filename = ?", oldFilename).First(&oldFile).Error)
	require.NoError(t, db.Where("filename = ?", reset.VideoFilename).First(&newFile).Error)
	assert.False(t, oldFile.Used)
	assert.True(t, newFile.Used)
}

func TestDeleteEpisodeDraftReleasesFile(t *testing.T) {
	m, db, _, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	draft, err := m.CreateEpisodeDraft(ctx, testPublisher, season.ID, CreateEpisodeDraftRequest{})
	require.NoError(t, err)

	require.NoError(t, m.DeleteEpisodeDraft(ctx, testPublisher, season.ID, draft.ID))

	var file database.VideoFile
	require.NoError(t, db.Where("filename = ?", draft.VideoFilename).First(&file).Error)
	assert.False(t, file.Used)

	_, err = m.GetEpisodeDraft(ctx, testPublisher, season.ID, draft.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestUploadLifecycle(t *testing.T) {
	m, _, clock, _ := setupTestManager(t)
	ctx := context.Background()

	season := createTestSeason(t, m, 10)
	draft, err := m.CreateEpisodeDraft(ctx, testPublisher, season.ID, CreateEpisodeDraftRequest{Name: "Pilot"})
	require.NoError(t, err)
	assert.Equal(t, database.VideoStateEmpty, draft.VideoState)

	draft, err = m.RecordUploadProgress(ctx, testPublisher, season.ID, draft.ID, RecordUploadProgressRequest{
		ResumableUploadToken: "resume-token",
	})
	require.NoError(t, err)
	assert.Equal(t, database.VideoStateIncomplete, draft.VideoState)
	assert.Equal(t, "resume-token", draft.ResumableUploadToken)

	draft, err = m.CompleteVideoUpload(ctx, testPublisher, season.ID, draft.ID, CompleteVideoUploadRequest{
		VideoDuration: 60000,
		VideoSize:     1000,
	})
	require.NoError(t, err)
	assert.Equal(t, database.VideoStateUploaded, draft.VideoState)
	assert.Empty(t, draft.ResumableUploadToken)
	assert.Equal(t, clock.now(), draft.VideoUploadedTime)
	assert.Equal(t, int64(60000), draft.VideoDuration)
}
