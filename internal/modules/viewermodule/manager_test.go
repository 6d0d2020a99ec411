package viewermodule

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/showline/showline/internal/config"
	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/storage"
)

// stubBlobStore returns deterministic URLs without talking to any store
type stubBlobStore struct{}

func (s *stubBlobStore) Upload(ctx context.Context, bucket, key string, data io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	return &storage.UploadResult{Completed: true}, nil
}

func (s *stubBlobStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://cdn.example.com/%s/%s", bucket, key)
}

func (s *stubBlobStore) SignedURL(bucket, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://cdn.example.com/%s/%s?signed=1", bucket, key), nil
}

func (s *stubBlobStore) Delete(ctx context.Context, bucket, key string) error {
	return nil
}

// stubHistory serves canned continue positions
type stubHistory struct {
	positions map[string]int64
	err       error
}

func (s *stubHistory) ContinuePosition(ctx context.Context, accountID, episodeID string) (*int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if pos, ok := s.positions[episodeID]; ok {
		return &pos, nil
	}
	return nil, nil
}

func setupTestManager(t *testing.T, history HistoryClient) (*Manager, *gorm.DB, int64) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&database.Season{}, &database.SeasonGrade{}, &database.Episode{}))

	if history == nil {
		history = &stubHistory{}
	}
	m := NewManager(db, &stubBlobStore{}, history, config.StorageConfig{
		VideoBucket:      "videos",
		CoverImageBucket: "covers",
		SignedURLTTL:     4 * time.Hour,
	}, 100)

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	m.now = func() int64 { return now }
	return m, db, now
}

func seedSeason(t *testing.T, db *gorm.DB, state string, grade int, now int64) *database.Season {
	season := &database.Season{
		ID:                 uuid.NewString(),
		PublisherID:        "publisher-1",
		Name:               "Public Season",
		CoverImageFilename: "cover.webp",
		State:              state,
		CreatedTime:        now,
		LastChangeTime:     now,
	}
	require.NoError(t, db.Create(season).Error)
	require.NoError(t, db.Create(&database.SeasonGrade{
		ID:        uuid.NewString(),
		SeasonID:  season.ID,
		Grade:     grade,
		StartTime: 0,
		EndTime:   database.FarFutureTimestamp,
	}).Error)
	return season
}

func seedEpisode(t *testing.T, db *gorm.DB, seasonID string, index int, premier int64) *database.Episode {
	episode := &database.Episode{
		ID:            uuid.NewString(),
		SeasonID:      seasonID,
		Name:          fmt.Sprintf("Episode %d", index),
		EpisodeIndex:  index,
		VideoFilename: fmt.Sprintf("video-%d.mp4", index),
		VideoDuration: 60000,
		PublishedTime: premier,
		PremierTime:   premier,
	}
	require.NoError(t, db.Create(episode).Error)

	var season database.Season
	require.NoError(t, db.First(&season, "id = ?", seasonID).Error)
	season.TotalEpisodes++
	require.NoError(t, db.Save(&season).Error)
	return episode
}

func TestGetSeasonOverview(t *testing.T) {
	m, db, now := setupTestManager(t, nil)
	season := seedSeason(t, db, database.SeasonStatePublished, 15, now)
	seedEpisode(t, db, season.ID, 1, now)

	overview, err := m.GetSeasonOverview(context.Background(), season.ID)
	require.NoError(t, err)
	assert.Equal(t, season.ID, overview.ID)
	assert.Equal(t, 15, overview.Grade)
	assert.Equal(t, 1, overview.TotalEpisodes)
	assert.Equal(t, "https://cdn.example.com/covers/cover.webp", overview.CoverImageURL)
}

func TestOnlyPublishedSeasonsAreVisible(t *testing.T) {
	m, db, now := setupTestManager(t, nil)
	ctx := context.Background()

	draft := seedSeason(t, db, database.SeasonStateDraft, 10, now)
	archived := seedSeason(t, db, database.SeasonStateArchived, 10, now)

	_, err := m.GetSeasonOverview(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrSeasonNotFound)
	_, err = m.GetSeasonOverview(ctx, archived.ID)
	assert.ErrorIs(t, err, ErrSeasonNotFound)
	_, err = m.GetSeasonOverview(ctx, "no-such-season")
	assert.ErrorIs(t, err, ErrSeasonNotFound)
}

func TestListPublishedEpisodes(t *testing.T) {
	m, db, now := setupTestManager(t, nil)
	season := seedSeason(t, db, database.SeasonStatePublished, 10, now)

	seedEpisode(t, db, season.ID, 1, now-1000)
	seedEpisode(t, db, season.ID, 2, now)
	upcoming := seedEpisode(t, db, season.ID, 3, now+86400000)

	episodes, err := m.ListPublishedEpisodes(context.Background(), season.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, episodes, 3)

	assert.True(t, episodes[0].Premiered)
	assert.True(t, episodes[1].Premiered)
	assert.False(t, episodes[2].Premiered)
	assert.Equal(t, upcoming.ID, episodes[2].ID)

	// Pagination by index.
	page, err := m.ListPublishedEpisodes(context.Background(), season.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 2, page[0].EpisodeIndex)
	assert.Equal(t, 3, page[1].EpisodeIndex)
}

func TestGetSeasonPlayback(t *testing.T) {
	history := &stubHistory{positions: map[string]int64{}}
	m, db, now := setupTestManager(t, history)
	season := seedSeason(t, db, database.SeasonStatePublished, 10, now)
	episode := seedEpisode(t, db, season.ID, 1, now-1000)
	history.positions[episode.ID] = 42000

	playback, err := m.GetSeasonPlayback(context.Background(), "account-1", season.ID, episode.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/videos/video-1.mp4?signed=1", playback.VideoURL)
	require.NotNil(t, playback.ContinuePositionMs)
	assert.Equal(t, int64(42000), *playback.ContinuePositionMs)

	// No saved position resolves to nil, not zero.
	second := seedEpisode(t, db, season.ID, 2, now-1000)
	playback, err = m.GetSeasonPlayback(context.Background(), "account-1", season.ID, second.ID)
	require.NoError(t, err)
	assert.Nil(t, playback.ContinuePositionMs)
}

func TestPlaybackGatedOnPremierTime(t *testing.T) {
	m, db, now := setupTestManager(t, nil)
	season := seedSeason(t, db, database.SeasonStatePublished, 10, now)
	upcoming := seedEpisode(t, db, season.ID, 1, now+86400000)

	_, err := m.GetSeasonPlayback(context.Background(), "account-1", season.ID, upcoming.ID)
	assert.ErrorIs(t, err, ErrNotPremiered)
}

func TestPlaybackPropagatesHistoryFailure(t *testing.T) {
	history := &stubHistory{err: fmt.Errorf("history service down")}
	m, db, now := setupTestManager(t, history)
	season := seedSeason(t, db, database.SeasonStatePublished, 10, now)
	episode := seedEpisode(t, db, season.ID, 1, now-1000)

	_, err := m.GetSeasonPlayback(context.Background(), "account-1", season.ID, episode.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history service down")
}

func TestPlaybackUnknownEpisode(t *testing.T) {
	m, db, now := setupTestManager(t, nil)
	season := seedSeason(t, db, database.SeasonStatePublished, 10, now)

	_, err := m.GetSeasonPlayback(context.Background(), "account-1", season.ID, "no-such-episode")
	assert.ErrorIs(t, err, ErrEpisodeNotFound)

	// An episode from another season is invisible through this season.
	other := seedSeason(t, db, database.SeasonStatePublished, 10, now)
	foreign := seedEpisode(t, db, other.ID, 1, now-1000)
	_, err = m.GetSeasonPlayback(context.Background(), "account-1", season.ID, foreign.ID)
	assert.ErrorIs(t, err, ErrEpisodeNotFound)
}
