package database

import (
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// ValidateSeasonIntegrity recomputes the invariants that the write paths
// maintain denormalized and reports the first violation found. TotalEpisodes
// is a cache and must never be trusted blindly; this check backs the tests
// and the admin integrity endpoint.
func ValidateSeasonIntegrity(db *gorm.DB, seasonID string) error {
	var season Season
	if err := db.Where("id = ?", seasonID).First(&season).Error; err != nil {
		return fmt.Errorf("season %s: %w", seasonID, err)
	}

	var episodes []Episode
	if err := db.Where("season_id = ?", seasonID).Find(&episodes).Error; err != nil {
		return fmt.Errorf("season %s episodes: %w", seasonID, err)
	}

	if len(episodes) != season.TotalEpisodes {
		return fmt.Errorf("season %s: total_episodes=%d but %d episode rows exist",
			seasonID, season.TotalEpisodes, len(episodes))
	}
	if season.State == SeasonStateDraft && len(episodes) != 0 {
		return fmt.Errorf("season %s: draft season has %d episodes", seasonID, len(episodes))
	}

	// Indices must form exactly the contiguous range 1..N.
	indices := make([]int, 0, len(episodes))
	for _, ep := range episodes {
		indices = append(indices, ep.EpisodeIndex)
	}
	sort.Ints(indices)
	for i, idx := range indices {
		if idx != i+1 {
			return fmt.Errorf("season %s: episode indices are not dense, got %v", seasonID, indices)
		}
	}

	return validateGradeWindows(db, seasonID, season.State)
}

// validateGradeWindows checks the non-overlap and window-count invariants of
// the grade schedule.
func validateGradeWindows(db *gorm.DB, seasonID, state string) error {
	var windows []SeasonGrade
	if err := db.Where("season_id = ?", seasonID).Order("start_time ASC").Find(&windows).Error; err != nil {
		return fmt.Errorf("season %s grades: %w", seasonID, err)
	}

	if len(windows) == 0 && state != SeasonStateArchived {
		return fmt.Errorf("season %s: no grade windows", seasonID)
	}

	for i, w := range windows {
		if w.StartTime >= w.EndTime {
			return fmt.Errorf("season %s: grade window %s has inverted span [%d,%d)",
				seasonID, w.ID, w.StartTime, w.EndTime)
		}
		if i > 0 && w.StartTime < windows[i-1].EndTime {
			return fmt.Errorf("season %s: grade windows %s and %s overlap",
				seasonID, windows[i-1].ID, w.ID)
		}
	}
	return nil
}
