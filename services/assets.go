package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"fabrino-server/supabase"
	"fabrino-server/utils"
)

const (
	uploadFolder       = "product-images"
	uploadCacheSeconds = 3600
	defaultUploadType  = "image/jpeg"
)

// ImageUpload is an image submitted from the admin editor.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageStore keeps product images and hands back their public URL.
type ImageStore interface {
	Put(ctx context.Context, img ImageUpload) (string, error)
	// Remove deletes an image previously returned by Put. URLs the store
	// does not own are ignored.
	Remove(ctx context.Context, url string) error
}

// UploadName returns "<rand8>-<unixms>.<ext>" for img.
func UploadName(img ImageUpload, now time.Time) string {
	return fmt.Sprintf("%s-%d.%s", utils.RandomString(8), now.UnixMilli(), uploadExtension(img))
}

// uploadExtension takes the extension from the file name, then from the
// content type's subtype, then falls back to jpg.
func uploadExtension(img ImageUpload) string {
	if ext := strings.TrimPrefix(path.Ext(img.Filename), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if mediaType, _, err := mime.ParseMediaType(img.ContentType); err == nil {
		if _, sub, ok := strings.Cut(mediaType, "/"); ok && sub != "" {
			return sub
		}
	}
	return "jpg"
}

func uploadContentType(img ImageUpload) string {
	if img.ContentType == "" {
		return defaultUploadType
	}
	return img.ContentType
}

// Bucket is the slice of the storage client used for product images.
type Bucket interface {
	Bucket() string
	Upload(ctx context.Context, path string, data []byte, opts supabase.FileOptions) error
	Remove(ctx context.Context, paths []string) error
	GetPublicURL(path string) string
}

// BucketStore keeps images in a backend storage bucket.
type BucketStore struct {
	bucket Bucket
	now    func() time.Time
}

func NewBucketStore(bucket Bucket) *BucketStore {
	return &BucketStore{bucket: bucket, now: time.Now}
}

func (s *BucketStore) Put(ctx context.Context, img ImageUpload) (string, error) {
	objectPath := uploadFolder + "/" + UploadName(img, s.now())
	err := s.bucket.Upload(ctx, objectPath, img.Data, supabase.FileOptions{
		CacheControl: uploadCacheSeconds,
		ContentType:  uploadContentType(img),
		Upsert:       false,
	})
	if err != nil {
		return "", err
	}
	return s.bucket.GetPublicURL(objectPath), nil
}

func (s *BucketStore) Remove(ctx context.Context, url string) error {
	prefix := s.bucket.GetPublicURL("")
	objectPath, ok := strings.CutPrefix(url, prefix)
	if !ok || objectPath == "" {
		return nil
	}
	return s.bucket.Remove(ctx, []string{objectPath})
}

// UploadErrorKind classifies a failed image upload.
type UploadErrorKind string

const (
	UploadBucketNotFound  UploadErrorKind = "bucket_not_found"
	UploadPolicyViolation UploadErrorKind = "policy_violation"
	UploadUnknown         UploadErrorKind = "unknown"
)

// UploadError is a failed upload translated for the admin editor.
type UploadError struct {
	Kind            UploadErrorKind `json:"kind"`
	Message         string          `json:"error"`
	ShowConfigGuide bool            `json:"show_config_guide"`
	ConfigGuide     string          `json:"config_guide,omitempty"`
	Err             error           `json:"-"`
}

func (e *UploadError) Error() string {
	return e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// TranslateUploadError maps a storage failure onto an UploadError. The
// storage status and error label are consulted first and the message text
// second.
func TranslateUploadError(err error, bucket string) *UploadError {
	if err == nil {
		return nil
	}

	kind := UploadUnknown
	var serr *supabase.StorageError
	if errors.As(err, &serr) {
		kind = classifyStorageError(serr)
	}
	if kind == UploadUnknown {
		kind = classifyMessage(err.Error())
	}

	out := &UploadError{Kind: kind, Err: err}
	switch kind {
	case UploadBucketNotFound:
		out.Message = fmt.Sprintf("The storage bucket %q was not found.", bucket)
	case UploadPolicyViolation:
		out.Message = "Upload blocked by security policies."
		out.ShowConfigGuide = true
		out.ConfigGuide = uploadPolicySQL(bucket)
	default:
		out.Message = err.Error()
		if serr != nil && serr.Message != "" {
			out.Message = serr.Message
		}
	}
	return out
}

func classifyStorageError(e *supabase.StorageError) UploadErrorKind {
	code := strings.ToLower(e.Code)
	switch {
	case code == "bucket not found" || (e.StatusCode == 404 && strings.Contains(code, "bucket")):
		return UploadBucketNotFound
	case e.StatusCode == 403 || code == "unauthorized":
		return UploadPolicyViolation
	}
	return UploadUnknown
}

func classifyMessage(msg string) UploadErrorKind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "bucket not found"):
		return UploadBucketNotFound
	case strings.Contains(msg, "policy"):
		return UploadPolicyViolation
	}
	return UploadUnknown
}

func uploadPolicySQL(bucket string) string {
	return fmt.Sprintf(`CREATE POLICY "Allow public uploads" ON storage.objects FOR INSERT TO public WITH CHECK (bucket_id = '%s');`, bucket)
}
