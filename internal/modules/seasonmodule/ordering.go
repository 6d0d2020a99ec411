package seasonmodule

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/showline/showline/internal/database"
)

// Episode ordering engine. Indices within a season are always the contiguous
// set {1..totalEpisodes}. Every shift is computed from a snapshot read inside
// the caller's transaction and applied as one row update per affected
// episode, so concurrent structural mutations on the same season are
// serialized by the store's conflict detection rather than by any in-process
// lock.

// episodesBetween returns the episodes of a season whose index lies strictly
// between lo and hi. hi <= 0 means no upper bound.
func episodesBetween(tx *gorm.DB, seasonID string, lo, hi int) ([]database.Episode, error) {
	query := tx.Where("season_id = ? AND episode_index > ?", seasonID, lo)
	if hi > 0 {
		query = query.Where("episode_index < ?", hi)
	}

	var episodes []database.Episode
	if err := query.Order("episode_index ASC").Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("failed to load episodes of season %s in (%d,%d): %w", seasonID, lo, hi, err)
	}
	return episodes, nil
}

// shiftEpisodes applies delta to the index of every given episode, one row
// update at a time.
func shiftEpisodes(tx *gorm.DB, episodes []database.Episode, delta int) error {
	for i := range episodes {
		newIndex := episodes[i].EpisodeIndex + delta
		err := tx.Model(&database.Episode{}).
			Where("id = ?", episodes[i].ID).
			Update("episode_index", newIndex).Error
		if err != nil {
			return fmt.Errorf("failed to move episode %s to index %d: %w", episodes[i].ID, newIndex, err)
		}
	}
	return nil
}
