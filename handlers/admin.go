package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"fabrino-server/models"
	"fabrino-server/services"

	"github.com/gin-gonic/gin"
)

const maxImageBytes = 10 << 20

type fieldRequest struct {
	Name string `json:"name"`
}

// AdminListProducts returns the whole catalogue for the editor.
func AdminListProducts(c *gin.Context) {
	products := catalogue.Products()
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
		"live":     catalogue.Live(),
	})
}

func AdminCreateProduct(c *gin.Context) {
	saveProduct(c, "")
}

func AdminUpdateProduct(c *gin.Context) {
	saveProduct(c, c.Param("id"))
}

func saveProduct(c *gin.Context, id string) {
	in, img, err := bindProduct(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := editor.Save(c.Request.Context(), id, in, img)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"product": saved, "live": catalogue.Live()})
}

func AdminDeleteProduct(c *gin.Context) {
	if err := editor.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

func AdminAddField(c *gin.Context) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := editor.AddField(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func AdminRemoveField(c *gin.Context) {
	product, err := editor.RemoveField(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// AdminUpload stores an image and returns its public URL.
func AdminUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	img, err := readImage(header)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	url, err := editor.Upload(c.Request.Context(), img)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// bindProduct reads a product from JSON or from a multipart form with an
// optional "file" part.
func bindProduct(c *gin.Context) (models.ProductInput, *services.ImageUpload, error) {
	var in models.ProductInput
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&in); err != nil {
			return in, nil, err
		}
		return in, nil, nil
	}

	in = models.ProductInput{
		Name:        c.PostForm("name"),
		Tagline:     c.PostForm("tagline"),
		Description: c.PostForm("description"),
		Image:       c.PostForm("image"),
		Category:    models.Intent(c.PostForm("category")),
		Story:       c.PostForm("story"),
		Materials:   c.PostForm("materials"),
		Process:     c.PostForm("process"),
		Care:        c.PostForm("care"),
	}
	if raw := c.PostForm("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return in, nil, fmt.Errorf("invalid price %q", raw)
		}
		in.Price = price
	}
	fields, err := formFields(c)
	if err != nil {
		return in, nil, err
	}
	in.CustomizableFields = fields

	header, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, err
	}
	img, err := readImage(header)
	if err != nil {
		return in, nil, err
	}
	return in, &img, nil
}

// formFields accepts customizable_fields either repeated or as one JSON array.
func formFields(c *gin.Context) ([]string, error) {
	values := c.PostFormArray("customizable_fields")
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var fields []string
		if err := json.Unmarshal([]byte(values[0]), &fields); err != nil {
			return nil, fmt.Errorf("invalid customizable_fields: %w", err)
		}
		return fields, nil
	}
	return values, nil
}

func readImage(header *multipart.FileHeader) (services.ImageUpload, error) {
	if header.Size > maxImageBytes {
		return services.ImageUpload{}, fmt.Errorf("image exceeds %d MB", maxImageBytes>>20)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return services.ImageUpload{}, fmt.Errorf("file must be an image, got %s", contentType)
	}

	f, err := header.Open()
	if err != nil {
		return services.ImageUpload{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return services.ImageUpload{}, fmt.Errorf("read upload: %w", err)
	}
	return services.ImageUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
