package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	log "github.com/sirupsen/logrus"
)

// CloudinaryStore keeps product images on Cloudinary.
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
	now func() time.Time
}

func NewCloudinaryStore(cloudinaryURL string) (*CloudinaryStore, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary URL is required")
	}

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	log.WithField("cloud", cld.Config.Cloud.CloudName).Info("Cloudinary initialized")
	return &CloudinaryStore{cld: cld, now: time.Now}, nil
}

func (cs *CloudinaryStore) Put(ctx context.Context, img ImageUpload) (string, error) {
	name := UploadName(img, cs.now())
	publicID := strings.TrimSuffix(name, filepath.Ext(name))

	result, err := cs.cld.Upload.Upload(ctx, bytes.NewReader(img.Data), uploader.UploadParams{
		PublicID:       publicID,
		Folder:         uploadFolder,
		UniqueFilename: &[]bool{false}[0],
		Overwrite:      &[]bool{false}[0],
		ResourceType:   "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if result == nil {
		return "", fmt.Errorf("failed to upload image: empty response")
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image: %s", result.Error.Message)
	}

	if result.SecureURL != "" {
		return forceHTTPS(result.SecureURL), nil
	}
	return forceHTTPS(result.URL), nil
}

func (cs *CloudinaryStore) Remove(ctx context.Context, url string) error {
	if !strings.Contains(url, "res.cloudinary.com/"+cs.cld.Config.Cloud.CloudName+"/") {
		return nil
	}
	publicID := ExtractPublicID(url)
	if publicID == "" {
		return nil
	}

	_, err := cs.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// ExtractPublicID pulls the public id out of a delivery URL such as
// https://res.cloudinary.com/account/image/upload/v1234567890/folder/filename.jpg
func ExtractPublicID(url string) string {
	parts := strings.Split(url, "/")
	if len(parts) < 4 {
		return ""
	}

	for i, part := range parts {
		if part != "upload" || i+1 >= len(parts) {
			continue
		}
		rest := parts[i+1:]
		// Drop the version segment (v1234567890).
		if len(rest) > 1 && strings.HasPrefix(rest[0], "v") {
			rest = rest[1:]
		}
		p := strings.Join(rest, "/")
		return strings.TrimSuffix(p, filepath.Ext(p))
	}
	return ""
}

// forceHTTPS ensures Cloudinary URLs use https scheme
func forceHTTPS(in string) string {
	if in == "" {
		return in
	}
	out := strings.TrimSpace(in)
	return strings.Replace(out, "http://", "https://", 1)
}
