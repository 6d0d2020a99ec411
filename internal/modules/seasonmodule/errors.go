package seasonmodule

import (
	"errors"
	"fmt"
)

// Client-fault errors. Handlers map these to 4xx statuses; everything else
// is a server fault. Ownership failures surface as not-found so existence is
// never leaked to non-owners.
var (
	ErrSeasonNotFound     = errors.New("season not found")
	ErrDraftNotFound      = errors.New("episode draft not found")
	ErrEpisodeNotFound    = errors.New("episode not found")
	ErrSeasonArchived     = errors.New("season is archived and cannot be updated")
	ErrSeasonNotPublished = errors.New("season is not published")
	ErrSeasonNotDraft     = errors.New("season is not a draft")
	ErrVideoNotUploaded   = errors.New("video is not completely uploaded yet")
	ErrGradeOutOfRange    = errors.New("grade is out of range")
	ErrEffectiveTimeMissing = errors.New("effective timestamp is required for a published season")
	ErrEffectiveTimeTooSoon = errors.New("effective timestamp is too soon")
	ErrIndexOutOfRange      = errors.New("episode index is out of range")
	ErrIndexAlreadySet      = errors.New("episode index is already set to the requested value")
	ErrNameMissing          = errors.New("name is required")
)

// IntegrityError reports stored state that violates an invariant the write
// paths are supposed to maintain. It indicates a bug or corrupted prior
// state, never a legitimate client request, and must not be silently
// corrected.
type IntegrityError struct {
	Message string
}

func (e *IntegrityError) Error() string {
	return "integrity fault: " + e.Message
}

func integrityErrorf(format string, args ...interface{}) error {
	return &IntegrityError{Message: fmt.Sprintf(format, args...)}
}

// IsIntegrityError reports whether err is (or wraps) an IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
