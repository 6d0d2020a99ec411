package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/showline/showline/internal/config"
)

// S3Client implements BlobStore against any S3-compatible endpoint using
// AWS Signature Version 4 over the standard library HTTP client.
type S3Client struct {
	endpoint  string
	region    string
	accessKey string
	secretKey string
	client    *http.Client

	now func() time.Time
}

// NewS3Client builds a client from the storage section of the configuration.
func NewS3Client(cfg config.StorageConfig) (*S3Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is not configured")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage credentials are not configured")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	return &S3Client{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		region:    region,
		accessKey: cfg.AccessKey,
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: 10 * time.Minute},
		now:       time.Now,
	}, nil
}

// Upload implements BlobStore. A transfer cut short by the reader or the
// connection is reported as resumable, not as an error, so the caller can
// persist the continuation marker.
func (c *S3Client) Upload(ctx context.Context, bucket, key string, data io.Reader, size int64, contentType string) (*UploadResult, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("bucket and key must not be empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	counted := &countingReader{r: data}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(bucket, key), counted)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)
	c.sign(req, "UNSIGNED-PAYLOAD")

	resp, err := c.client.Do(req)
	if err != nil {
		// Connection died mid-stream; the bytes already on the wire can be
		// skipped on retry.
		return &UploadResult{
			Completed: false,
			Resume: &ResumableUpload{
				URL:        c.objectURL(bucket, key),
				ByteOffset: counted.n,
			},
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("upload returned status %d: %s", resp.StatusCode, string(body))
	}
	if counted.n < size {
		return &UploadResult{
			Completed: false,
			Resume: &ResumableUpload{
				URL:        c.objectURL(bucket, key),
				ByteOffset: counted.n,
			},
		}, nil
	}
	return &UploadResult{Completed: true}, nil
}

// PublicURL implements BlobStore.
func (c *S3Client) PublicURL(bucket, key string) string {
	return c.objectURL(bucket, key)
}

// SignedURL implements BlobStore using SigV4 query-string presigning.
func (c *S3Client) SignedURL(bucket, key string, ttl time.Duration) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key must not be empty")
	}

	now := c.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")
	scope := fmt.Sprintf("%s/%s/s3/aws4_request", dateStamp, c.region)

	query := url.Values{}
	query.Set("X-Amz-Algorithm", "AWS4-HMAC-SHA256")
	query.Set("X-Amz-Credential", c.accessKey+"/"+scope)
	query.Set("X-Amz-Date", amzDate)
	query.Set("X-Amz-Expires", strconv.Itoa(int(ttl.Seconds())))
	query.Set("X-Amz-SignedHeaders", "host")

	canonicalRequest := strings.Join([]string{
		http.MethodGet,
		"/" + bucket + "/" + key,
		query.Encode(),
		"host:" + c.host() + "\n",
		"host",
		"UNSIGNED-PAYLOAD",
	}, "\n")

	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signature := hexHMAC(c.signingKey(dateStamp), []byte(stringToSign))
	query.Set("X-Amz-Signature", signature)

	return c.objectURL(bucket, key) + "?" + query.Encode(), nil
}

// Delete implements BlobStore. Missing objects return 404 from the store,
// which is treated as success so sweeps are idempotent.
func (c *S3Client) Delete(ctx context.Context, bucket, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(bucket, key), nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	c.sign(req, hexSHA256(nil))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent &&
		resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *S3Client) objectURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", c.endpoint, bucket, key)
}

func (c *S3Client) host() string {
	host := c.endpoint
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	return host
}

// sign adds SigV4 authentication headers to req.
func (c *S3Client) sign(req *http.Request, payloadHash string) {
	now := c.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	host := c.host()
	canonicalHeaders := fmt.Sprintf("host:%s\nx-amz-content-sha256:%s\nx-amz-date:%s\n",
		host, payloadHash, amzDate)
	signedHeaders := "host;x-amz-content-sha256;x-amz-date"

	canonicalRequest := strings.Join([]string{
		req.Method,
		req.URL.EscapedPath(),
		req.URL.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := fmt.Sprintf("%s/%s/s3/aws4_request", dateStamp, c.region)
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signature := hexHMAC(c.signingKey(dateStamp), []byte(stringToSign))
	authorization := fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s,SignedHeaders=%s,Signature=%s",
		c.accessKey, scope, signedHeaders, signature,
	)

	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("Authorization", authorization)
}

func (c *S3Client) signingKey(dateStamp string) []byte {
	kDate := rawHMAC([]byte("AWS4"+c.secretKey), []byte(dateStamp))
	kRegion := rawHMAC(kDate, []byte(c.region))
	kService := rawHMAC(kRegion, []byte("s3"))
	return rawHMAC(kService, []byte("aws4_request"))
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

func hexSHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func hexHMAC(key, data []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func rawHMAC(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
