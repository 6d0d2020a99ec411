package seasonmodule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showline/showline/internal/database"
)

// newVideoFilename allocates the blob key a draft's next upload will land on.
func newVideoFilename() string {
	return uuid.NewString() + ".mp4"
}

// CreateEpisodeDraft creates a new working copy of an episode with an empty
// video slot. Allowed while the season is DRAFT or PUBLISHED.
func (m *Manager) CreateEpisodeDraft(ctx context.Context, publisherID, seasonID string, req CreateEpisodeDraftRequest) (*database.EpisodeDraft, error) {
	var draft database.EpisodeDraft
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		if season.State == database.SeasonStateArchived {
			return fmt.Errorf("season %s: %w", seasonID, ErrSeasonArchived)
		}

		now := m.now()
		draft = database.EpisodeDraft{
			ID:            uuid.NewString(),
			SeasonID:      seasonID,
			Name:          req.Name,
			VideoFilename: newVideoFilename(),
			VideoState:    database.VideoStateEmpty,
			CreatedTime:   now,
		}
		if err := tx.Create(&draft).Error; err != nil {
			return fmt.Errorf("failed to create episode draft for season %s: %w", seasonID, err)
		}
		if err := m.files.CreateVideoFile(tx, draft.VideoFilename); err != nil {
			return err
		}

		season.LastChangeTime = now
		return tx.Save(season).Error
	})
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// GetEpisodeDraft loads one draft, owner-scoped through its season.
func (m *Manager) GetEpisodeDraft(ctx context.Context, publisherID, seasonID, draftID string) (*database.EpisodeDraft, error) {
	db := m.db.WithContext(ctx)
	if _, err := m.ownedSeason(db, seasonID, publisherID); err != nil {
		return nil, err
	}
	return m.ownedDraft(db, seasonID, draftID)
}

// ListEpisodeDrafts returns all drafts of a season, newest first.
func (m *Manager) ListEpisodeDrafts(ctx context.Context, publisherID, seasonID string) ([]database.EpisodeDraft, error) {
	db := m.db.WithContext(ctx)
	if _, err := m.ownedSeason(db, seasonID, publisherID); err != nil {
		return nil, err
	}

	var drafts []database.EpisodeDraft
	if err := db.Where("season_id = ?", seasonID).Order("created_time DESC").Find(&drafts).Error; err != nil {
		return nil, fmt.Errorf("failed to list drafts for season %s: %w", seasonID, err)
	}
	return drafts, nil
}

// RecordUploadProgress stores the resumable continuation marker after an
// interrupted transfer and marks the draft INCOMPLETE.
func (m *Manager) RecordUploadProgress(ctx context.Context, publisherID, seasonID, draftID string, req RecordUploadProgressRequest) (*database.EpisodeDraft, error) {
	var draft *database.EpisodeDraft
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		draft, err = m.ownedDraft(tx, seasonID, draftID)
		if err != nil {
			return err
		}

		draft.ResumableUploadToken = req.ResumableUploadToken
		draft.VideoState = database.VideoStateIncomplete
		if err := tx.Save(draft).Error; err != nil {
			return fmt.Errorf("failed to update draft %s: %w", draftID, err)
		}

		season.LastChangeTime = m.now()
		return tx.Save(season).Error
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// CompleteVideoUpload records a finished transfer: the draft becomes
// UPLOADED and remembers the probe results needed by publish.
func (m *Manager) CompleteVideoUpload(ctx context.Context, publisherID, seasonID, draftID string, req CompleteVideoUploadRequest) (*database.EpisodeDraft, error) {
	var draft *database.EpisodeDraft
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		draft, err = m.ownedDraft(tx, seasonID, draftID)
		if err != nil {
			return err
		}

		now := m.now()
		draft.ResumableUploadToken = ""
		draft.VideoState = database.VideoStateUploaded
		draft.VideoUploadedTime = now
		draft.VideoDuration = req.VideoDuration
		draft.VideoSize = req.VideoSize
		if err := tx.Save(draft).Error; err != nil {
			return fmt.Errorf("failed to update draft %s: %w", draftID, err)
		}

		season.LastChangeTime = now
		return tx.Save(season).Error
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// DeleteEpisodeVideo discards whatever has been uploaded for a draft. The
// old blob flips to unused and the draft gets a fresh placeholder filename
// so the next upload never races the sweeper on the old name.
func (m *Manager) DeleteEpisodeVideo(ctx context.Context, publisherID, seasonID, draftID string) (*database.EpisodeDraft, error) {
	var draft *database.EpisodeDraft
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		draft, err = m.ownedDraft(tx, seasonID, draftID)
		if err != nil {
			return err
		}

		if err := m.files.ReleaseVideoFile(tx, draft.VideoFilename); err != nil {
			return err
		}
		draft.VideoFilename = newVideoFilename()
		if err := m.files.CreateVideoFile(tx, draft.VideoFilename); err != nil {
			return err
		}

		draft.ResumableUploadToken = ""
		draft.VideoState = database.VideoStateEmpty
		draft.VideoUploadedTime = 0
		draft.VideoDuration = 0
		draft.VideoSize = 0
		if err := tx.Save(draft).Error; err != nil {
			return fmt.Errorf("failed to update draft %s: %w", draftID, err)
		}

		season.LastChangeTime = m.now()
		return tx.Save(season).Error
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// DeleteEpisodeDraft removes a draft without publishing it. Its video file
// flips to unused.
func (m *Manager) DeleteEpisodeDraft(ctx context.Context, publisherID, seasonID, draftID string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		draft, err := m.ownedDraft(tx, seasonID, draftID)
		if err != nil {
			return err
		}

		if err := m.files.ReleaseVideoFile(tx, draft.VideoFilename); err != nil {
			return err
		}
		if err := tx.Delete(draft).Error; err != nil {
			return fmt.Errorf("failed to delete draft %s: %w", draftID, err)
		}

		season.LastChangeTime = m.now()
		return tx.Save(season).Error
	})
}

// ownedDraft loads a draft scoped to its season. The caller has already
// verified season ownership.
func (m *Manager) ownedDraft(tx *gorm.DB, seasonID, draftID string) (*database.EpisodeDraft, error) {
	var draft database.EpisodeDraft
	err := tx.Where("id = ? AND season_id = ?", draftID, seasonID).First(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("draft %s: %w", draftID, ErrDraftNotFound)
		}
		return nil, fmt.Errorf("failed to load draft %s: %w", draftID, err)
	}
	return &draft, nil
}
