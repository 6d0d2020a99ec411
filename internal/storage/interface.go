// Package storage abstracts the blob store holding video files and cover
// images. The core never touches bytes beyond handing streams through; it
// only needs upload, URL resolution, and deletion.
package storage

import (
	"context"
	"io"
	"time"
)

// ResumableUpload is the continuation marker returned when a transfer did
// not complete: the client re-PUTs the remaining bytes to URL starting at
// ByteOffset.
type ResumableUpload struct {
	URL        string `json:"url"`
	ByteOffset int64  `json:"byte_offset"`
}

// UploadResult reports whether a transfer finished or must be resumed.
type UploadResult struct {
	Completed bool             `json:"completed"`
	Resume    *ResumableUpload `json:"resume,omitempty"`
}

// BlobStore is the contract the core consumes. Cover images resolve to
// public URLs; video playback uses time-limited signed URLs.
type BlobStore interface {
	// Upload transfers data to bucket/key. A short write is not an error:
	// the result carries the resume marker instead.
	Upload(ctx context.Context, bucket, key string, data io.Reader, size int64, contentType string) (*UploadResult, error)
	// PublicURL returns the unauthenticated URL for a public object.
	PublicURL(bucket, key string) string
	// SignedURL returns a URL granting read access for ttl.
	SignedURL(bucket, key string, ttl time.Duration) (string, error)
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error
}
