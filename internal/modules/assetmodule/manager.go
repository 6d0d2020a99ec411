package assetmodule

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/showline/showline/internal/config"
	"github.com/showline/showline/internal/logger"
	"github.com/showline/showline/internal/storage"
)

// Upload validation errors.
var (
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrImageTooLarge        = errors.New("image exceeds the maximum allowed size")
)

// UploadedCover describes a processed and stored cover image. The filename
// is what season records reference.
type UploadedCover struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int    `json:"size"`
}

// Manager processes cover image uploads: validate, convert to WebP, store.
type Manager struct {
	processor   *ImageProcessor
	blobs       storage.BlobStore
	coverBucket string
	maxFileSize int64
}

// NewManager creates a new asset manager
func NewManager(blobs storage.BlobStore, assetCfg config.AssetConfig, storageCfg config.StorageConfig) *Manager {
	return &Manager{
		processor:   NewImageProcessor(assetCfg.DefaultQuality, assetCfg.MaxWidth, assetCfg.MaxHeight),
		blobs:       blobs,
		coverBucket: storageCfg.CoverImageBucket,
		maxFileSize: assetCfg.MaxFileSize,
	}
}

// UploadCoverImage validates and converts an uploaded image, then stores it
// under a fresh WebP filename in the cover bucket.
func (m *Manager) UploadCoverImage(ctx context.Context, data []byte, mimeType string) (*UploadedCover, error) {
	if int64(len(data)) > m.maxFileSize {
		return nil, fmt.Errorf("image is %d bytes: %w", len(data), ErrImageTooLarge)
	}
	if !m.processor.IsImageMimeType(mimeType) {
		return nil, fmt.Errorf("mime type %s: %w", mimeType, ErrUnsupportedImageType)
	}

	encoded, width, height, err := m.processor.Process(data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrUnsupportedImageType)
	}

	filename := uuid.NewString() + ".webp"
	if m.blobs == nil {
		return nil, fmt.Errorf("blob storage is not configured")
	}

	result, err := m.blobs.Upload(ctx, m.coverBucket, filename, bytes.NewReader(encoded), int64(len(encoded)), "image/webp")
	if err != nil {
		return nil, fmt.Errorf("failed to store cover image %s: %w", filename, err)
	}
	if !result.Completed {
		// Cover images are small; a short write means the store is unhealthy.
		return nil, fmt.Errorf("cover image upload %s did not complete", filename)
	}

	logger.Info("✅ Stored cover image %s (%dx%d, %d bytes)", filename, width, height, len(encoded))
	return &UploadedCover{
		Filename: filename,
		URL:      m.blobs.PublicURL(m.coverBucket, filename),
		Width:    width,
		Height:   height,
		Size:     len(encoded),
	}, nil
}
