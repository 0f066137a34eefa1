package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"fabrino-server/models"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNoBackend       = errors.New("no backend configured")
	ErrUploadsDisabled = errors.New("no image store configured")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrBlankField      = errors.New("field name is blank")
	ErrDuplicateField  = errors.New("field already exists")
)

// ProductWriter is the write side of the product table.
type ProductWriter interface {
	InsertProduct(ctx context.Context, in models.ProductInput) error
	UpdateProduct(ctx context.Context, id string, in models.ProductInput) error
	DeleteProduct(ctx context.Context, id string) error
}

// CatalogueEditor creates, updates and deletes products for the admin
// surface. Every successful write refreshes the catalogue cache.
type CatalogueEditor struct {
	store     ProductWriter
	images    ImageStore
	catalogue *Catalogue
	bucket    string
}

// NewCatalogueEditor returns an editor. images may be nil, which disables
// uploads; bucket names the storage bucket in upload error messages.
func NewCatalogueEditor(store ProductWriter, images ImageStore, catalogue *Catalogue, bucket string) *CatalogueEditor {
	return &CatalogueEditor{store: store, images: images, catalogue: catalogue, bucket: bucket}
}

// Upload stores img and returns its public URL. Storage failures come back
// as *UploadError.
func (e *CatalogueEditor) Upload(ctx context.Context, img ImageUpload) (string, error) {
	if e.images == nil {
		return "", ErrUploadsDisabled
	}
	url, err := e.images.Put(ctx, img)
	if err != nil {
		log.WithError(err).WithField("filename", img.Filename).Error("Image upload failed")
		return "", TranslateUploadError(err, e.bucket)
	}
	return url, nil
}

// Save inserts the product when id is empty and updates it otherwise. When
// img is set it is uploaded first and replaces in.Image; with neither an
// upload nor an image URL the default image is used.
func (e *CatalogueEditor) Save(ctx context.Context, id string, in models.ProductInput, img *ImageUpload) (models.ProductInput, error) {
	if e.store == nil {
		return in, ErrNoBackend
	}
	if err := validateProduct(in); err != nil {
		return in, err
	}

	if img != nil {
		url, err := e.Upload(ctx, *img)
		if err != nil {
			return in, err
		}
		in.Image = url
	} else if strings.TrimSpace(in.Image) == "" {
		in.Image = models.DefaultProductImage
	}
	if in.CustomizableFields == nil {
		in.CustomizableFields = []string{}
	}

	logger := log.WithFields(log.Fields{"product_id": id, "name": in.Name})
	if id == "" {
		if err := e.store.InsertProduct(ctx, in); err != nil {
			return in, fmt.Errorf("insert product: %w", err)
		}
		logger.Info("Product created")
	} else {
		if err := e.store.UpdateProduct(ctx, id, in); err != nil {
			return in, fmt.Errorf("update product %s: %w", id, err)
		}
		logger.Info("Product updated")
	}

	e.refresh(ctx)
	return in, nil
}

// Delete removes the product and, best effort, its uploaded image.
func (e *CatalogueEditor) Delete(ctx context.Context, id string) error {
	if e.store == nil {
		return ErrNoBackend
	}

	existing, findErr := e.catalogue.Find(id)
	if err := e.store.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	log.WithField("product_id", id).Info("Product deleted")

	if findErr == nil && e.images != nil && existing.Image != models.DefaultProductImage {
		if err := e.images.Remove(ctx, existing.Image); err != nil {
			log.WithError(err).WithField("product_id", id).Warn("Failed to remove product image")
		}
	}

	e.refresh(ctx)
	return nil
}

// AddField appends a customizable field to the product.
func (e *CatalogueEditor) AddField(ctx context.Context, id, name string) (models.Product, error) {
	return e.editFields(ctx, id, func(fields []string) ([]string, error) {
		return AddCustomField(fields, name)
	})
}

// RemoveField drops a customizable field from the product.
func (e *CatalogueEditor) RemoveField(ctx context.Context, id, name string) (models.Product, error) {
	return e.editFields(ctx, id, func(fields []string) ([]string, error) {
		return RemoveCustomField(fields, name), nil
	})
}

func (e *CatalogueEditor) editFields(ctx context.Context, id string, edit func([]string) ([]string, error)) (models.Product, error) {
	if e.store == nil {
		return models.Product{}, ErrNoBackend
	}

	product, err := e.catalogue.Find(id)
	if err != nil {
		return models.Product{}, err
	}
	fields, err := edit(product.CustomizableFields)
	if err != nil {
		return product, err
	}
	product.CustomizableFields = fields

	if err := e.store.UpdateProduct(ctx, id, models.InputFrom(product)); err != nil {
		return product, fmt.Errorf("update product %s: %w", id, err)
	}

	e.refresh(ctx)
	return product, nil
}

func (e *CatalogueEditor) refresh(ctx context.Context) {
	if err := e.catalogue.Fetch(ctx); err != nil {
		log.WithError(err).Warn("Catalogue refresh after admin write failed")
	}
}

func validateProduct(in models.ProductInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case !in.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, in.Category)
	case in.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	return nil
}

// AddCustomField returns fields with name appended. The name is trimmed;
// blank and already present names are rejected.
func AddCustomField(fields []string, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fields, ErrBlankField
	}
	if slices.Contains(fields, name) {
		return fields, ErrDuplicateField
	}
	out := make([]string, len(fields), len(fields)+1)
	copy(out, fields)
	return append(out, name), nil
}

// RemoveCustomField returns fields without name.
func RemoveCustomField(fields []string, name string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != name {
			out = append(out, f)
		}
	}
	return out
}
