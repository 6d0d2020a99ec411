package seasonmodule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/events"
)

// PublishEpisode converts an uploaded draft into a published episode at the
// next dense index. Publishing the very first episode of a draft season
// flips the season to PUBLISHED in the same transaction.
func (m *Manager) PublishEpisode(ctx context.Context, publisherID, seasonID, draftID string, req PublishEpisodeRequest) (*PublishEpisodeResult, error) {
	var result PublishEpisodeResult
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		if season.State == database.SeasonStateArchived {
			return fmt.Errorf("season %s: %w", seasonID, ErrSeasonArchived)
		}

		draft, err := m.ownedDraft(tx, seasonID, draftID)
		if err != nil {
			return err
		}
		if draft.VideoState != database.VideoStateUploaded {
			return fmt.Errorf("draft %s: %w", draftID, ErrVideoNotUploaded)
		}

		nextIndex := season.TotalEpisodes + 1
		if season.State == database.SeasonStateDraft {
			// A draft season by definition has no published episodes, so the
			// first publish must land at index 1. Anything else means the
			// denormalized counter is corrupted.
			if nextIndex != 1 {
				return integrityErrorf("draft season %s would publish at index %d", seasonID, nextIndex)
			}
			season.State = database.SeasonStatePublished
			result.SeasonStateChanged = true
		}

		now := m.now()
		premierTime := now
		if req.PremierTime != nil {
			premierTime = *req.PremierTime
		}

		episode := database.Episode{
			ID:            uuid.NewString(),
			SeasonID:      seasonID,
			Name:          draft.Name,
			EpisodeIndex:  nextIndex,
			VideoFilename: draft.VideoFilename,
			VideoDuration: draft.VideoDuration,
			VideoSize:     draft.VideoSize,
			PublishedTime: now,
			PremierTime:   premierTime,
		}
		if err := tx.Create(&episode).Error; err != nil {
			return fmt.Errorf("failed to create episode for season %s: %w", seasonID, err)
		}
		if err := tx.Delete(draft).Error; err != nil {
			return fmt.Errorf("failed to consume draft %s: %w", draftID, err)
		}

		season.TotalEpisodes = nextIndex
		season.LastChangeTime = now
		if err := tx.Save(season).Error; err != nil {
			return err
		}

		result.Episode = episode
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.publish(events.EventEpisodePublished, publisherID, "Episode Published", result.Episode.ID, map[string]interface{}{
		"season_id":     seasonID,
		"episode_id":    result.Episode.ID,
		"episode_index": result.Episode.EpisodeIndex,
	})
	if result.SeasonStateChanged {
		m.publish(events.EventSeasonPublished, publisherID, "Season Published", seasonID, map[string]interface{}{
			"season_id": seasonID,
		})
	}
	return &result, nil
}

// DeleteEpisode removes a published episode, closes the index gap it leaves
// behind, and flips its video file to unused.
func (m *Manager) DeleteEpisode(ctx context.Context, publisherID, seasonID, episodeID string) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		episode, err := m.ownedEpisode(tx, seasonID, episodeID)
		if err != nil {
			return err
		}

		if err := m.files.ReleaseVideoFile(tx, episode.VideoFilename); err != nil {
			return err
		}
		if err := tx.Delete(episode).Error; err != nil {
			return fmt.Errorf("failed to delete episode %s: %w", episodeID, err)
		}

		// Close the gap: everything above the deleted index moves down one.
		above, err := episodesBetween(tx, seasonID, episode.EpisodeIndex, 0)
		if err != nil {
			return err
		}
		if err := shiftEpisodes(tx, above, -1); err != nil {
			return err
		}

		season.TotalEpisodes--
		season.LastChangeTime = m.now()
		return tx.Save(season).Error
	})
	if err != nil {
		return err
	}

	m.publish(events.EventEpisodeDeleted, publisherID, "Episode Deleted", episodeID, map[string]interface{}{
		"season_id":  seasonID,
		"episode_id": episodeID,
	})
	return nil
}

// ReorderEpisode moves an episode to toIndex, shifting everything between
// its old and new position by one to keep the numbering dense.
func (m *Manager) ReorderEpisode(ctx context.Context, publisherID, seasonID, episodeID string, toIndex int) error {
	if toIndex < 1 {
		return fmt.Errorf("to_index %d: %w", toIndex, ErrIndexOutOfRange)
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}
		episode, err := m.ownedEpisode(tx, seasonID, episodeID)
		if err != nil {
			return err
		}

		fromIndex := episode.EpisodeIndex
		if toIndex == fromIndex {
			return fmt.Errorf("episode %s index %d: %w", episodeID, toIndex, ErrIndexAlreadySet)
		}

		if toIndex < fromIndex {
			// Moving toward the front: everything in [toIndex, fromIndex) gains one.
			between, err := episodesBetween(tx, seasonID, toIndex-1, fromIndex)
			if err != nil {
				return err
			}
			if err := shiftEpisodes(tx, between, +1); err != nil {
				return err
			}
		} else {
			if toIndex > season.TotalEpisodes {
				return fmt.Errorf("to_index %d exceeds %d episodes: %w", toIndex, season.TotalEpisodes, ErrIndexOutOfRange)
			}
			// Moving toward the back: everything in (fromIndex, toIndex] drops one.
			between, err := episodesBetween(tx, seasonID, fromIndex, toIndex+1)
			if err != nil {
				return err
			}
			if err := shiftEpisodes(tx, between, -1); err != nil {
				return err
			}
		}

		err = tx.Model(&database.Episode{}).
			Where("id = ?", episodeID).
			Update("episode_index", toIndex).Error
		if err != nil {
			return fmt.Errorf("failed to move episode %s to index %d: %w", episodeID, toIndex, err)
		}

		season.LastChangeTime = m.now()
		return tx.Save(season).Error
	})
	if err != nil {
		return err
	}

	m.publish(events.EventEpisodeReordered, publisherID, "Episode Reordered", episodeID, map[string]interface{}{
		"season_id":  seasonID,
		"episode_id": episodeID,
		"to_index":   toIndex,
	})
	return nil
}

// ListEpisodes returns a season's published episodes in index order.
func (m *Manager) ListEpisodes(ctx context.Context, publisherID, seasonID string) ([]database.Episode, error) {
	db := m.db.WithContext(ctx)
	if _, err := m.ownedSeason(db, seasonID, publisherID); err != nil {
		return nil, err
	}

	var episodes []database.Episode
	if err := db.Where("season_id = ?", seasonID).Order("episode_index ASC").Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("failed to list episodes for season %s: %w", seasonID, err)
	}
	return episodes, nil
}

// ownedEpisode loads an episode scoped to its season. The caller has already
// verified season ownership.
func (m *Manager) ownedEpisode(tx *gorm.DB, seasonID, episodeID string) (*database.Episode, error) {
	var episode database.Episode
	err := tx.Where("id = ? AND season_id = ?", episodeID, seasonID).First(&episode).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("episode %s: %w", episodeID, ErrEpisodeNotFound)
		}
		return nil, fmt.Errorf("failed to load episode %s: %w", episodeID, err)
	}
	return &episode, nil
}
