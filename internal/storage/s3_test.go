package storage

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showline/showline/internal/config"
)

func testClient(t *testing.T) *S3Client {
	client, err := NewS3Client(config.StorageConfig{
		Endpoint:  "https://storage.example.com",
		Region:    "auto",
		AccessKey: "test-access-key",
		SecretKey: "test-secret-key",
	})
	require.NoError(t, err)
	client.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return client
}

func TestNewS3ClientRequiresEndpointAndCredentials(t *testing.T) {
	_, err := NewS3Client(config.StorageConfig{AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err)

	_, err = NewS3Client(config.StorageConfig{Endpoint: "https://storage.example.com"})
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	client := testClient(t)
	assert.Equal(t,
		"https://storage.example.com/covers/abc.webp",
		client.PublicURL("covers", "abc.webp"))
}

func TestSignedURLShape(t *testing.T) {
	client := testClient(t)

	signed, err := client.SignedURL("videos", "episode.mp4", 4*time.Hour)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "https://storage.example.com/videos/episode.mp4?"))

	query := parsed.Query()
	assert.Equal(t, "AWS4-HMAC-SHA256", query.Get("X-Amz-Algorithm"))
	assert.Equal(t, "test-access-key/20250601/auto/s3/aws4_request", query.Get("X-Amz-Credential"))
	assert.Equal(t, "20250601T120000Z", query.Get("X-Amz-Date"))
	assert.Equal(t, "14400", query.Get("X-Amz-Expires"))
	assert.Equal(t, "host", query.Get("X-Amz-SignedHeaders"))
	assert.Len(t, query.Get("X-Amz-Signature"), 64)
}

func TestSignedURLIsDeterministicForFixedClock(t *testing.T) {
	client := testClient(t)

	first, err := client.SignedURL("videos", "episode.mp4", time.Hour)
	require.NoError(t, err)
	second, err := client.SignedURL("videos", "episode.mp4", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
