package database

// Timestamps are Unix milliseconds throughout so that grade-window arithmetic
// and the far-future sentinel stay uniform across database backends.

// FarFutureTimestamp is the open-ended upper bound for grade windows,
// 9999-01-01T00:00:00Z in Unix milliseconds.
const FarFutureTimestamp int64 = 253370764800000

// Season lifecycle states. Transitions are monotonic: draft seasons may be
// hard-deleted, published seasons may only be archived.
const (
	SeasonStateDraft     = "DRAFT"
	SeasonStatePublished = "PUBLISHED"
	SeasonStateArchived  = "ARCHIVED"
)

// Draft video upload states.
const (
	VideoStateEmpty      = "EMPTY"
	VideoStateIncomplete = "INCOMPLETE"
	VideoStateUploaded   = "UPLOADED"
)

// Season is a collection of episodes owned by one publisher.
type Season struct {
	ID                 string `gorm:"primaryKey" json:"id"`
	PublisherID        string `gorm:"index;not null" json:"publisher_id"`
	Name               string `gorm:"not null" json:"name"`
	Description        string `json:"description,omitempty"`
	CoverImageFilename string `gorm:"not null" json:"cover_image_filename"`
	State              string `gorm:"not null;index" json:"state"`
	// TotalEpisodes is a denormalized count of published episodes. It is the
	// source of the next publish index and must always equal the number of
	// Episode rows for this season.
	TotalEpisodes  int   `gorm:"not null;default:0" json:"total_episodes"`
	CreatedTime    int64 `gorm:"not null" json:"created_time"`
	LastChangeTime int64 `gorm:"not null" json:"last_change_time"`
}

// SeasonGrade is one time window of effective grade (pricing tier) for a
// season. Windows for a season never overlap; superseded windows keep their
// rows but have EndTime shortened. At most two rows per season ever satisfy
// end_time >= now: the current window and one pending future window.
type SeasonGrade struct {
	ID        string `gorm:"primaryKey" json:"id"`
	SeasonID  string `gorm:"index;not null" json:"season_id"`
	Grade     int    `gorm:"not null" json:"grade"`
	StartTime int64  `gorm:"not null" json:"start_time"`
	EndTime   int64  `gorm:"not null;index" json:"end_time"`
}

// Episode is a published, ordered video unit within a season. EpisodeIndex is
// 1-based and dense: for a season with N episodes the indices are exactly
// 1..N. Density is maintained application-side inside one transaction per
// mutation, so no unique constraint is placed on the column (shifts would
// trip it mid-transaction).
type Episode struct {
	ID            string `gorm:"primaryKey" json:"id"`
	SeasonID      string `gorm:"index;not null" json:"season_id"`
	Name          string `json:"name,omitempty"`
	EpisodeIndex  int    `gorm:"not null;index" json:"episode_index"`
	VideoFilename string `gorm:"not null" json:"video_filename"`
	VideoDuration int64  `json:"video_duration"`
	VideoSize     int64  `json:"video_size"`
	PublishedTime int64  `gorm:"not null" json:"published_time"`
	PremierTime   int64  `gorm:"not null" json:"premier_time"`
}

// EpisodeDraft is the pre-publication working copy of an episode. It holds
// in-progress upload state and is consumed (deleted) on publish.
type EpisodeDraft struct {
	ID            string `gorm:"primaryKey" json:"id"`
	SeasonID      string `gorm:"index;not null" json:"season_id"`
	Name          string `json:"name,omitempty"`
	VideoFilename string `gorm:"not null" json:"video_filename"`
	// ResumableUploadToken is the opaque continuation marker handed back by
	// blob storage when a transfer is interrupted.
	ResumableUploadToken string `json:"resumable_upload_token,omitempty"`
	VideoState           string `gorm:"not null" json:"video_state"`
	VideoUploadedTime    int64  `json:"video_uploaded_time,omitempty"`
	VideoDuration        int64  `json:"video_duration,omitempty"`
	VideoSize            int64  `json:"video_size,omitempty"`
	CreatedTime          int64  `gorm:"not null" json:"created_time"`
}

// VideoFile tracks every video blob ever referenced by a draft or episode.
// Rows are never deleted here; Used flips to false when the referencing
// draft/episode goes away, and an external sweeper consumes unused rows.
type VideoFile struct {
	Filename string `gorm:"primaryKey" json:"filename"`
	Used     bool   `gorm:"not null;index" json:"used"`
}

// DeletingCoverImageFile is the queue of cover images pending physical
// deletion by the external sweeper.
type DeletingCoverImageFile struct {
	Filename   string `gorm:"primaryKey" json:"filename"`
	QueuedTime int64  `gorm:"not null" json:"queued_time"`
}
