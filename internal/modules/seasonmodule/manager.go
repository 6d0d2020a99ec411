package seasonmodule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showline/showline/internal/config"
	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/events"
	"github.com/showline/showline/internal/modules/filemodule"
)

// Manager owns the season/episode state machine. Season states move only
// forward: DRAFT -> PUBLISHED -> ARCHIVED. Every mutation runs inside one
// transaction: the season row is loaded scoped by (id, publisher) so a wrong
// owner is indistinguishable from a missing season, invariants are checked,
// and all compensating writes (index shifts, ledger flips, grade-window
// splits) commit together.
type Manager struct {
	db       *gorm.DB
	eventBus events.EventBus
	files    *filemodule.Manager

	// leadTimeMs is the minimum gap between now and a scheduled grade
	// change on a published season.
	leadTimeMs int64
	pageCap    int

	now func() int64
}

// NewManager creates a new season manager
func NewManager(db *gorm.DB, eventBus events.EventBus, files *filemodule.Manager, cfg config.PublishingConfig) *Manager {
	return &Manager{
		db:         db,
		eventBus:   eventBus,
		files:      files,
		leadTimeMs: cfg.GradeChangeLeadTime.Milliseconds(),
		pageCap:    cfg.PageSizeCap,
		now:        func() int64 { return time.Now().UnixMilli() },
	}
}

// CreateSeason creates a new draft season with a single grade window
// spanning from epoch to the far future.
func (m *Manager) CreateSeason(ctx context.Context, publisherID string, req CreateSeasonRequest) (*database.Season, error) {
	if req.Name == "" {
		return nil, ErrNameMissing
	}
	if req.Grade < GradeMin || req.Grade > GradeMax {
		return nil, fmt.Errorf("grade %d: %w", req.Grade, ErrGradeOutOfRange)
	}

	now := m.now()
	season := database.Season{
		ID:                 uuid.NewString(),
		PublisherID:        publisherID,
		Name:               req.Name,
		Description:        req.Description,
		CoverImageFilename: req.CoverImageFilename,
		State:              database.SeasonStateDraft,
		TotalEpisodes:      0,
		CreatedTime:        now,
		LastChangeTime:     now,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&season).Error; err != nil {
			return fmt.Errorf("failed to create season: %w", err)
		}
		window := database.SeasonGrade{
			ID:        uuid.NewString(),
			SeasonID:  season.ID,
			Grade:     req.Grade,
			StartTime: 0,
			EndTime:   database.FarFutureTimestamp,
		}
		if err := tx.Create(&window).Error; err != nil {
			return fmt.Errorf("failed to create grade window for season %s: %w", season.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.publish(events.EventSeasonCreated, publisherID, "Season Created", season.ID, map[string]interface{}{
		"season_id": season.ID,
		"name":      season.Name,
	})
	return &season, nil
}

// UpdateSeasonMetadata updates the name and/or description of a season.
// Rejected once the season is archived.
func (m *Manager) UpdateSeasonMetadata(ctx context.Context, publisherID, seasonID string, req UpdateSeasonRequest) (*database.Season, error) {
	if req.Name != nil && *req.Name == "" {
		return nil, ErrNameMissing
	}

	var season *database.Season
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		season, err = m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		if season.State == database.SeasonStateArchived {
			return fmt.Errorf("season %s: %w", seasonID, ErrSeasonArchived)
		}

		if req.Name != nil {
			season.Name = *req.Name
		}
		if req.Description != nil {
			season.Description = *req.Description
		}
		season.LastChangeTime = m.now()
		return tx.Save(season).Error
	})
	if err != nil {
		return nil, err
	}
	return season, nil
}

// UpdateSeasonCoverImage swaps the cover image, queueing the replaced image
// for deletion. Rejected once the season is archived.
func (m *Manager) UpdateSeasonCoverImage(ctx context.Context, publisherID, seasonID, coverImageFilename string) (*database.Season, error) {
	if coverImageFilename == "" {
		return nil, fmt.Errorf("cover image filename: %w", ErrNameMissing)
	}

	var season *database.Season
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		season, err = m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		if season.State == database.SeasonStateArchived {
			return fmt.Errorf("season %s: %w", seasonID, ErrSeasonArchived)
		}

		if season.CoverImageFilename != coverImageFilename {
			if err := m.files.QueueCoverImageDeletion(tx, season.CoverImageFilename); err != nil {
				return err
			}
		}
		season.CoverImageFilename = coverImageFilename
		season.LastChangeTime = m.now()
		return tx.Save(season).Error
	})
	if err != nil {
		return nil, err
	}
	return season, nil
}

// ArchiveSeason moves a published season to its terminal state. Every draft
// and episode video file flips to unused, the cover image is queued for
// deletion, and all drafts and episodes are removed in the same transaction.
func (m *Manager) ArchiveSeason(ctx context.Context, publisherID, seasonID string) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		if season.State != database.SeasonStatePublished {
			return fmt.Errorf("season %s in state %s: %w", seasonID, season.State, ErrSeasonNotPublished)
		}

		var draftFilenames []string
		if err := tx.Model(&database.EpisodeDraft{}).Where("season_id = ?", seasonID).
			Pluck("video_filename", &draftFilenames).Error; err != nil {
			return fmt.Errorf("failed to collect draft video files for season %s: %w", seasonID, err)
		}
		var episodeFilenames []string
		if err := tx.Model(&database.Episode{}).Where("season_id = ?", seasonID).
			Pluck("video_filename", &episodeFilenames).Error; err != nil {
			return fmt.Errorf("failed to collect episode video files for season %s: %w", seasonID, err)
		}

		if err := m.files.ReleaseVideoFiles(tx, append(draftFilenames, episodeFilenames...)); err != nil {
			return err
		}
		if err := m.files.QueueCoverImageDeletion(tx, season.CoverImageFilename); err != nil {
			return err
		}

		if err := tx.Where("season_id = ?", seasonID).Delete(&database.EpisodeDraft{}).Error; err != nil {
			return fmt.Errorf("failed to delete drafts for season %s: %w", seasonID, err)
		}
		if err := tx.Where("season_id = ?", seasonID).Delete(&database.Episode{}).Error; err != nil {
			return fmt.Errorf("failed to delete episodes for season %s: %w", seasonID, err)
		}

		season.State = database.SeasonStateArchived
		season.TotalEpisodes = 0
		season.LastChangeTime = m.now()
		return tx.Save(season).Error
	})
	if err != nil {
		return err
	}

	m.publish(events.EventSeasonArchived, publisherID, "Season Archived", seasonID, map[string]interface{}{
		"season_id": seasonID,
	})
	return nil
}

// DeleteSeason hard-deletes a draft season and everything scoped to it.
// Published seasons can only be archived, never deleted.
func (m *Manager) DeleteSeason(ctx context.Context, publisherID, seasonID string) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		if season.State != database.SeasonStateDraft {
			return fmt.Errorf("season %s in state %s: %w", seasonID, season.State, ErrSeasonNotDraft)
		}
		if season.TotalEpisodes != 0 {
			return integrityErrorf("draft season %s has total_episodes=%d", seasonID, season.TotalEpisodes)
		}

		var draftFilenames []string
		if err := tx.Model(&database.EpisodeDraft{}).Where("season_id = ?", seasonID).
			Pluck("video_filename", &draftFilenames).Error; err != nil {
			return fmt.Errorf("failed to collect draft video files for season %s: %w", seasonID, err)
		}
		if err := m.files.ReleaseVideoFiles(tx, draftFilenames); err != nil {
			return err
		}
		if err := m.files.QueueCoverImageDeletion(tx, season.CoverImageFilename); err != nil {
			return err
		}

		if err := tx.Where("season_id = ?", seasonID).Delete(&database.EpisodeDraft{}).Error; err != nil {
			return fmt.Errorf("failed to delete drafts for season %s: %w", seasonID, err)
		}
		if err := tx.Where("season_id = ?", seasonID).Delete(&database.SeasonGrade{}).Error; err != nil {
			return fmt.Errorf("failed to delete grade windows for season %s: %w", seasonID, err)
		}
		return tx.Delete(season).Error
	})
	if err != nil {
		return err
	}

	m.publish(events.EventSeasonDeleted, publisherID, "Season Deleted", seasonID, map[string]interface{}{
		"season_id": seasonID,
	})
	return nil
}

// GetSeasonDetails returns a season and its resolved grade schedule.
func (m *Manager) GetSeasonDetails(ctx context.Context, publisherID, seasonID string) (*SeasonDetails, error) {
	season, err := m.ownedSeason(m.db.WithContext(ctx), seasonID, publisherID)
	if err != nil {
		return nil, err
	}

	grades, err := m.resolveGradeSchedule(m.db.WithContext(ctx), seasonID, m.now())
	if err != nil {
		return nil, err
	}
	return &SeasonDetails{Season: *season, Grades: *grades}, nil
}

// ListSeasons returns the publisher's seasons, most recently changed first.
func (m *Manager) ListSeasons(ctx context.Context, publisherID string, limit, offset int) ([]database.Season, error) {
	limit = m.clampLimit(limit)

	var seasons []database.Season
	err := m.db.WithContext(ctx).
		Where("publisher_id = ?", publisherID).
		Order("last_change_time DESC").
		Limit(limit).Offset(offset).
		Find(&seasons).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	return seasons, nil
}

// ownedSeason loads a season scoped by owner. A season owned by someone else
// surfaces exactly like a missing one.
func (m *Manager) ownedSeason(tx *gorm.DB, seasonID, publisherID string) (*database.Season, error) {
	var season database.Season
	err := tx.Where("id = ? AND publisher_id = ?", seasonID, publisherID).First(&season).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("season %s: %w", seasonID, ErrSeasonNotFound)
		}
		return nil, fmt.Errorf("failed to load season %s: %w", seasonID, err)
	}
	return &season, nil
}

func (m *Manager) clampLimit(limit int) int {
	if limit < 1 || limit > m.pageCap {
		return m.pageCap
	}
	return limit
}

// publish emits a lifecycle event if a bus is attached.
func (m *Manager) publish(eventType events.EventType, publisherID, title, message string, data map[string]interface{}) {
	if m.eventBus == nil {
		return
	}
	m.eventBus.PublishAsync(events.NewEventWithData(eventType, "publisher:"+publisherID, title, message, data))
}
