package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// StorageError is a failed storage call. StatusCode is the HTTP status;
// Code is the storage API's short error label ("Bucket not found",
// "Unauthorized", ...).
type StorageError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StorageError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storage error %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("storage error %d: %s", e.StatusCode, e.Message)
}

// FileOptions control an upload.
type FileOptions struct {
	CacheControl int
	ContentType  string
	Upsert       bool
}

// Storage returns a storage client.
func (c *Client) Storage() *StorageClient {
	return &StorageClient{client: c}
}

// StorageClient handles storage operations.
type StorageClient struct {
	client *Client
}

// From returns a bucket client.
func (s *StorageClient) From(bucket string) *BucketClient {
	return &BucketClient{
		client: s.client,
		bucket: bucket,
	}
}

// BucketClient handles operations on one bucket.
type BucketClient struct {
	client *Client
	bucket string
}

// Bucket returns the bucket name.
func (b *BucketClient) Bucket() string {
	return b.bucket
}

// Upload stores data at path. Failures are returned as *StorageError.
func (b *BucketClient) Upload(ctx context.Context, path string, data []byte, opts FileOptions) error {
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", b.client.baseURL, b.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	b.client.setHeaders(ctx, req)

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	if opts.CacheControl > 0 {
		req.Header.Set("Cache-Control", "max-age="+strconv.Itoa(opts.CacheControl))
	}
	req.Header.Set("x-upsert", strconv.FormatBool(opts.Upsert))

	resp, err := b.client.do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return parseStorageError(resp)
	}
	return nil
}

// Remove deletes the objects at paths.
func (b *BucketClient) Remove(ctx context.Context, paths []string) error {
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s", b.client.baseURL, b.bucket)

	body, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	b.client.setHeaders(ctx, req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return parseStorageError(resp)
	}
	return nil
}

// GetPublicURL returns the public URL for path.
func (b *BucketClient) GetPublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", b.client.baseURL, b.bucket, path)
}

func parseStorageError(resp *Response) error {
	var raw struct {
		StatusCode string `json:"statusCode"`
		Error      string `json:"error"`
		Message    string `json:"message"`
	}
	serr := &StorageError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(resp.Body, &raw); err == nil {
		serr.Code = raw.Error
		serr.Message = raw.Message
		// The body carries the storage API's own status, which can differ from the HTTP one.
		if n, err := strconv.Atoi(raw.StatusCode); err == nil && n > 0 {
			serr.StatusCode = n
		}
	}
	if serr.Message == "" && serr.Code == "" {
		serr.Message = string(resp.Body)
	}
	return serr
}
