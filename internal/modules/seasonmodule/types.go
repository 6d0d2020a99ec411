package seasonmodule

import (
	"github.com/showline/showline/internal/database"
)

// Grade bounds and scheduling constants.
const (
	GradeMin = 1
	GradeMax = 99
)

// CreateSeasonRequest carries the fields of a new draft season
type CreateSeasonRequest struct {
	Name               string `json:"name" binding:"required"`
	Description        string `json:"description"`
	CoverImageFilename string `json:"cover_image_filename" binding:"required"`
	// Grade is the default tier the season starts with, effective from epoch
	// until a later change is scheduled.
	Grade int `json:"grade" binding:"required"`
}

// UpdateSeasonRequest carries metadata changes for a season
type UpdateSeasonRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateCoverImageRequest replaces a season's cover image
type UpdateCoverImageRequest struct {
	CoverImageFilename string `json:"cover_image_filename" binding:"required"`
}

// UpdateGradeRequest schedules or applies a grade change
type UpdateGradeRequest struct {
	Grade int `json:"grade" binding:"required"`
	// EffectiveTime is required for published seasons and must be at least
	// the configured lead time after now. Ignored for draft seasons.
	EffectiveTime *int64 `json:"effective_time,omitempty"`
}

// CreateEpisodeDraftRequest creates a new working copy of an episode
type CreateEpisodeDraftRequest struct {
	Name string `json:"name"`
}

// RecordUploadProgressRequest stores the continuation marker of an
// interrupted video transfer
type RecordUploadProgressRequest struct {
	ResumableUploadToken string `json:"resumable_upload_token" binding:"required"`
}

// CompleteVideoUploadRequest records the finished upload's probe results
type CompleteVideoUploadRequest struct {
	VideoDuration int64 `json:"video_duration" binding:"required"`
	VideoSize     int64 `json:"video_size" binding:"required"`
}

// PublishEpisodeRequest converts a draft into a published episode
type PublishEpisodeRequest struct {
	// PremierTime defaults to now when omitted.
	PremierTime *int64 `json:"premier_time,omitempty"`
}

// PublishEpisodeResult reports the outcome of publishing an episode
type PublishEpisodeResult struct {
	Episode database.Episode `json:"episode"`
	// SeasonStateChanged is true when this publish flipped the season from
	// DRAFT to PUBLISHED, so callers can refresh cached listings.
	SeasonStateChanged bool `json:"season_state_changed"`
}

// ReorderEpisodeRequest moves an episode to a new dense index
type ReorderEpisodeRequest struct {
	ToIndex int `json:"to_index" binding:"required"`
}

// GradeSchedule is the read-side projection of the grade windows: the
// current grade plus the optional scheduled change.
type GradeSchedule struct {
	CurrentGrade int    `json:"current_grade"`
	NextGrade    *int   `json:"next_grade,omitempty"`
	NextGradeAt  *int64 `json:"next_grade_at,omitempty"`
}

// SeasonDetails combines a season with its resolved grade schedule
type SeasonDetails struct {
	Season database.Season `json:"season"`
	Grades GradeSchedule   `json:"grades"`
}
