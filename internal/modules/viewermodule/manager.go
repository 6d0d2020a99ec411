package viewermodule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/showline/showline/internal/config"
	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/storage"
)

// Viewer-facing errors. Only published seasons exist from this side; drafts
// and archived seasons are indistinguishable from absent ones.
var (
	ErrSeasonNotFound  = errors.New("season not found")
	ErrEpisodeNotFound = errors.New("episode not found")
	ErrNotPremiered    = errors.New("episode has not premiered yet")
)

// SeasonOverview is the consumer projection of a published season.
type SeasonOverview struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	CoverImageURL string `json:"cover_image_url"`
	Grade         int    `json:"grade"`
	TotalEpisodes int    `json:"total_episodes"`
}

// EpisodeListing is one row of a season's public episode list. Episodes
// whose premier time is still in the future appear without playback access.
type EpisodeListing struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	EpisodeIndex  int    `json:"episode_index"`
	VideoDuration int64  `json:"video_duration"`
	PremierTime   int64  `json:"premier_time"`
	Premiered     bool   `json:"premiered"`
}

// PlaybackInfo carries everything a player needs to start an episode.
type PlaybackInfo struct {
	SeasonID      string `json:"season_id"`
	EpisodeID     string `json:"episode_id"`
	Name          string `json:"name,omitempty"`
	EpisodeIndex  int    `json:"episode_index"`
	VideoURL      string `json:"video_url"`
	VideoDuration int64  `json:"video_duration"`
	// ContinuePositionMs is the account's saved position, absent when the
	// account never watched this episode.
	ContinuePositionMs *int64 `json:"continue_position_ms,omitempty"`
}

// Manager serves the consumer read paths. No transactions: every read is a
// single-statement snapshot, and remote lookups are merged afterwards.
type Manager struct {
	db      *gorm.DB
	blobs   storage.BlobStore
	history HistoryClient

	videoBucket  string
	coverBucket  string
	signedURLTTL time.Duration
	pageCap      int

	now func() int64
}

// NewManager creates a new viewer manager
func NewManager(db *gorm.DB, blobs storage.BlobStore, history HistoryClient, cfg config.StorageConfig, pageCap int) *Manager {
	return &Manager{
		db:           db,
		blobs:        blobs,
		history:      history,
		videoBucket:  cfg.VideoBucket,
		coverBucket:  cfg.CoverImageBucket,
		signedURLTTL: cfg.SignedURLTTL,
		pageCap:      pageCap,
		now:          func() int64 { return time.Now().UnixMilli() },
	}
}

// GetSeasonOverview returns the public projection of a published season.
func (m *Manager) GetSeasonOverview(ctx context.Context, seasonID string) (*SeasonOverview, error) {
	season, err := m.publishedSeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	grade, err := m.currentGrade(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	return &SeasonOverview{
		ID:            season.ID,
		Name:          season.Name,
		Description:   season.Description,
		CoverImageURL: m.coverURL(season.CoverImageFilename),
		Grade:         grade,
		TotalEpisodes: season.TotalEpisodes,
	}, nil
}

// ListPublishedEpisodes returns a page of a season's episodes ordered by
// index. Upcoming episodes are listed but flagged as not yet premiered.
func (m *Manager) ListPublishedEpisodes(ctx context.Context, seasonID string, limit, offset int) ([]EpisodeListing, error) {
	if _, err := m.publishedSeason(ctx, seasonID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > m.pageCap {
		limit = m.pageCap
	}
	if offset < 0 {
		offset = 0
	}

	var episodes []database.Episode
	err := m.db.WithContext(ctx).
		Where("season_id = ?", seasonID).
		Order("episode_index ASC").
		Limit(limit).
		Offset(offset).
		Find(&episodes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes for season %s: %w", seasonID, err)
	}

	now := m.now()
	listings := make([]EpisodeListing, 0, len(episodes))
	for _, ep := range episodes {
		listings = append(listings, EpisodeListing{
			ID:            ep.ID,
			Name:          ep.Name,
			EpisodeIndex:  ep.EpisodeIndex,
			VideoDuration: ep.VideoDuration,
			PremierTime:   ep.PremierTime,
			Premiered:     ep.PremierTime <= now,
		})
	}
	return listings, nil
}

// GetSeasonPlayback resolves a signed video URL and the account's saved
// position for one episode. Episodes that have not premiered yield no URL.
func (m *Manager) GetSeasonPlayback(ctx context.Context, accountID, seasonID, episodeID string) (*PlaybackInfo, error) {
	if _, err := m.publishedSeason(ctx, seasonID); err != nil {
		return nil, err
	}

	var episode database.Episode
	err := m.db.WithContext(ctx).
		Where("id = ? AND season_id = ?", episodeID, seasonID).
		First(&episode).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("episode %s: %w", episodeID, ErrEpisodeNotFound)
		}
		return nil, fmt.Errorf("failed to load episode %s: %w", episodeID, err)
	}

	if episode.PremierTime > m.now() {
		return nil, fmt.Errorf("episode %s: %w", episodeID, ErrNotPremiered)
	}

	if m.blobs == nil {
		return nil, fmt.Errorf("blob storage is not configured")
	}
	videoURL, err := m.blobs.SignedURL(m.videoBucket, episode.VideoFilename, m.signedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign video URL for episode %s: %w", episodeID, err)
	}

	// Remote lookup failures propagate rather than degrade: a player that
	// silently loses its resume position is worse than a retryable error.
	position, err := m.history.ContinuePosition(ctx, accountID, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve continue position for episode %s: %w", episodeID, err)
	}

	return &PlaybackInfo{
		SeasonID:           seasonID,
		EpisodeID:          episode.ID,
		Name:               episode.Name,
		EpisodeIndex:       episode.EpisodeIndex,
		VideoURL:           videoURL,
		VideoDuration:      episode.VideoDuration,
		ContinuePositionMs: position,
	}, nil
}

func (m *Manager) coverURL(filename string) string {
	if m.blobs == nil {
		return ""
	}
	return m.blobs.PublicURL(m.coverBucket, filename)
}

// publishedSeason loads a season visible to consumers. Anything not in the
// PUBLISHED state reads as not found.
func (m *Manager) publishedSeason(ctx context.Context, seasonID string) (*database.Season, error) {
	var season database.Season
	err := m.db.WithContext(ctx).
		Where("id = ? AND state = ?", seasonID, database.SeasonStatePublished).
		First(&season).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("season %s: %w", seasonID, ErrSeasonNotFound)
		}
		return nil, fmt.Errorf("failed to load season %s: %w", seasonID, err)
	}
	return &season, nil
}

// currentGrade resolves the grade window covering now.
func (m *Manager) currentGrade(ctx context.Context, seasonID string) (int, error) {
	now := m.now()
	var window database.SeasonGrade
	err := m.db.WithContext(ctx).
		Where("season_id = ? AND start_time <= ? AND end_time > ?", seasonID, now, now).
		First(&window).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("season %s has no grade window covering now", seasonID)
		}
		return 0, fmt.Errorf("failed to load grade window for season %s: %w", seasonID, err)
	}
	return window.Grade, nil
}
