package seasonmodule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/showline/showline/internal/database"
	"github.com/showline/showline/internal/events"
)

// Grade schedule engine. A season's grade history is a sequence of
// non-overlapping validity windows; superseded windows keep their rows and
// only have EndTime shortened. The engine guarantees at most two rows per
// season ever satisfy end_time >= now (the active window plus one pending
// future window), so readers resolve "grade now + grade next" with a fixed
// two-row lookback instead of a general interval scan.

// UpdateSeasonGrade changes a season's grade. On a draft season the single
// window's grade mutates in place. On a published season the change is
// scheduled at req.EffectiveTime, which must be at least the configured lead
// time after now; a previously scheduled change is overwritten rather than
// stacked.
func (m *Manager) UpdateSeasonGrade(ctx context.Context, publisherID, seasonID string, req UpdateGradeRequest) error {
	// Stateless validation happens before any storage access.
	if req.Grade < GradeMin || req.Grade > GradeMax {
		return fmt.Errorf("grade %d: %w", req.Grade, ErrGradeOutOfRange)
	}
	now := m.now()
	if req.EffectiveTime != nil && *req.EffectiveTime < now+m.leadTimeMs {
		return fmt.Errorf("effective time %d is before %d: %w", *req.EffectiveTime, now+m.leadTimeMs, ErrEffectiveTimeTooSoon)
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := m.ownedSeason(tx, seasonID, publisherID)
		if err != nil {
			return err
		}

		switch season.State {
		case database.SeasonStateDraft:
			if err := m.updateDraftGrade(tx, seasonID, req.Grade); err != nil {
				return err
			}
		case database.SeasonStatePublished:
			if req.EffectiveTime == nil {
				return fmt.Errorf("season %s: %w", seasonID, ErrEffectiveTimeMissing)
			}
			if err := m.schedulePublishedGrade(tx, seasonID, req.Grade, *req.EffectiveTime, now); err != nil {
				return err
			}
		default:
			return fmt.Errorf("season %s: %w", seasonID, ErrSeasonArchived)
		}

		season.LastChangeTime = now
		return tx.Save(season).Error
	})
	if err != nil {
		return err
	}

	m.publish(events.EventSeasonGraded, publisherID, "Season Grade Updated", seasonID, map[string]interface{}{
		"season_id": seasonID,
		"grade":     req.Grade,
	})
	return nil
}

// updateDraftGrade mutates the grade of the single draft-season window in
// place, leaving its [epoch, far-future) span untouched.
func (m *Manager) updateDraftGrade(tx *gorm.DB, seasonID string, grade int) error {
	var windows []database.SeasonGrade
	if err := tx.Where("season_id = ?", seasonID).Find(&windows).Error; err != nil {
		return fmt.Errorf("failed to load grade windows for season %s: %w", seasonID, err)
	}
	if len(windows) != 1 {
		return integrityErrorf("draft season %s has %d grade windows", seasonID, len(windows))
	}

	return tx.Model(&database.SeasonGrade{}).
		Where("id = ?", windows[0].ID).
		Update("grade", grade).Error
}

// schedulePublishedGrade applies a future grade change to a published
// season. One live window: shorten it to effectiveTime and append a new
// window from there to the far future. Two live windows: the newer one is a
// pending change that gets overwritten, and the active window's end moves to
// the new effective time.
func (m *Manager) schedulePublishedGrade(tx *gorm.DB, seasonID string, grade int, effectiveTime, now int64) error {
	windows, err := liveGradeWindows(tx, seasonID, now)
	if err != nil {
		return err
	}

	switch len(windows) {
	case 1:
		active := windows[0]
		if active.StartTime > now {
			return integrityErrorf("season %s: sole grade window %s starts in the future", seasonID, active.ID)
		}
		err := tx.Model(&database.SeasonGrade{}).
			Where("id = ?", active.ID).
			Update("end_time", effectiveTime).Error
		if err != nil {
			return fmt.Errorf("failed to shorten grade window %s: %w", active.ID, err)
		}

		next := database.SeasonGrade{
			ID:        uuid.NewString(),
			SeasonID:  seasonID,
			Grade:     grade,
			StartTime: effectiveTime,
			EndTime:   database.FarFutureTimestamp,
		}
		if err := tx.Create(&next).Error; err != nil {
			return fmt.Errorf("failed to create grade window for season %s: %w", seasonID, err)
		}
		return nil

	case 2:
		pending, active := windows[0], windows[1]
		if pending.StartTime <= now {
			return integrityErrorf("season %s: pending grade window %s already started", seasonID, pending.ID)
		}
		if active.StartTime > now {
			return integrityErrorf("season %s: active grade window %s starts in the future", seasonID, active.ID)
		}

		// Replace the previously scheduled change instead of stacking a
		// third window.
		err := tx.Model(&database.SeasonGrade{}).
			Where("id = ?", pending.ID).
			Updates(map[string]interface{}{"grade": grade, "start_time": effectiveTime}).Error
		if err != nil {
			return fmt.Errorf("failed to overwrite pending grade window %s: %w", pending.ID, err)
		}
		err = tx.Model(&database.SeasonGrade{}).
			Where("id = ?", active.ID).
			Update("end_time", effectiveTime).Error
		if err != nil {
			return fmt.Errorf("failed to shorten grade window %s: %w", active.ID, err)
		}
		return nil

	default:
		return integrityErrorf("published season %s has %d live grade windows", seasonID, len(windows))
	}
}

// resolveGradeSchedule computes the read-side "grade now + grade next"
// projection with the same two-row lookback the write path maintains.
func (m *Manager) resolveGradeSchedule(db *gorm.DB, seasonID string, now int64) (*GradeSchedule, error) {
	windows, err := liveGradeWindows(db, seasonID, now)
	if err != nil {
		return nil, err
	}

	switch len(windows) {
	case 1:
		if windows[0].StartTime > now {
			return nil, integrityErrorf("season %s: sole grade window %s starts in the future", seasonID, windows[0].ID)
		}
		return &GradeSchedule{CurrentGrade: windows[0].Grade}, nil

	case 2:
		pending, active := windows[0], windows[1]
		if pending.StartTime <= now || active.StartTime > now {
			return nil, integrityErrorf("season %s: grade windows %s and %s out of order", seasonID, active.ID, pending.ID)
		}
		nextGrade := pending.Grade
		nextAt := pending.StartTime
		return &GradeSchedule{
			CurrentGrade: active.Grade,
			NextGrade:    &nextGrade,
			NextGradeAt:  &nextAt,
		}, nil

	default:
		return nil, integrityErrorf("season %s has %d live grade windows", seasonID, len(windows))
	}
}

// liveGradeWindows fetches up to the two most recent windows still valid at
// now, newest first.
func liveGradeWindows(tx *gorm.DB, seasonID string, now int64) ([]database.SeasonGrade, error) {
	var windows []database.SeasonGrade
	err := tx.Where("season_id = ? AND end_time >= ?", seasonID, now).
		Order("end_time DESC").
		Limit(2).
		Find(&windows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load live grade windows for season %s: %w", seasonID, err)
	}
	return windows, nil
}
