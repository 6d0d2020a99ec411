package assetmodule

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// ImageProcessor normalizes uploaded cover images: every accepted image is
// decoded, downscaled to fit the configured bounds, and re-encoded as WebP.
type ImageProcessor struct {
	quality   int
	maxWidth  int
	maxHeight int
}

// NewImageProcessor creates a processor with the given encoding parameters
func NewImageProcessor(quality, maxWidth, maxHeight int) *ImageProcessor {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &ImageProcessor{
		quality:   quality,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
	}
}

// Process converts image data to WebP, scaling down when it exceeds the
// configured dimensions. Returns the encoded bytes and final dimensions.
func (ip *ImageProcessor) Process(data []byte, mimeType string) ([]byte, int, int, error) {
	img, err := ip.decode(data, mimeType)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > ip.maxWidth || bounds.Dy() > ip.maxHeight {
		img = imaging.Fit(img, ip.maxWidth, ip.maxHeight, imaging.Lanczos)
		bounds = img.Bounds()
	}

	var buf bytes.Buffer
	options := &webp.Options{Lossless: false, Quality: float32(ip.quality)}
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode as WebP: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// IsImageMimeType checks if a MIME type represents a supported image
func (ip *ImageProcessor) IsImageMimeType(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif",
		"image/webp", "image/bmp", "image/tiff":
		return true
	default:
		return false
	}
}

func (ip *ImageProcessor) decode(data []byte, mimeType string) (image.Image, error) {
	reader := bytes.NewReader(data)

	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return jpeg.Decode(reader)
	case "image/png":
		return png.Decode(reader)
	case "image/webp":
		return webp.Decode(reader)
	default:
		return imaging.Decode(reader)
	}
}
