package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"fabrino-server/metrics"
	"fabrino-server/models"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed data/catalogue.yaml
var fallbackCatalogue []byte

var (
	ErrEmptyCatalogue  = errors.New("backend returned no products")
	ErrProductNotFound = errors.New("product not found")
)

// ProductLister is the read side of the product table.
type ProductLister interface {
	ListProducts(ctx context.Context) ([]models.ProductRecord, error)
}

// FallbackProducts returns a fresh copy of the shipped catalogue.
func FallbackProducts() []models.Product {
	var products []models.Product
	if err := yaml.Unmarshal(fallbackCatalogue, &products); err != nil {
		panic(fmt.Sprintf("embedded catalogue is invalid: %v", err))
	}
	return products
}

// Catalogue caches the product list. It starts on the shipped fallback and
// switches to backend data once a fetch returns at least one product.
type Catalogue struct {
	source ProductLister

	mu       sync.RWMutex
	products []models.Product
	live     bool
}

// NewCatalogue returns a cache over source. A nil source keeps the fallback forever.
func NewCatalogue(source ProductLister) *Catalogue {
	return &Catalogue{
		source:   source,
		products: FallbackProducts(),
	}
}

// Fetch reloads the product list from the backend. On failure the current
// list is kept and the live flag drops; an empty result changes nothing.
// The returned error is for logging only.
func (c *Catalogue) Fetch(ctx context.Context) error {
	if c.source == nil {
		return nil
	}

	records, err := c.source.ListProducts(ctx)
	if err != nil {
		c.mu.Lock()
		c.live = false
		c.mu.Unlock()
		metrics.CatalogueLive.Set(0)

		log.WithError(err).Warn("Catalogue fetch failed, keeping cached products")
		return fmt.Errorf("fetch catalogue: %w", err)
	}

	products := make([]models.Product, 0, len(records))
	for _, record := range records {
		products = append(products, NormalizeProduct(record))
	}
	if len(products) == 0 {
		log.Info("Catalogue fetch returned no products, keeping cached products")
		return ErrEmptyCatalogue
	}

	c.mu.Lock()
	c.products = products
	c.live = true
	c.mu.Unlock()
	metrics.CatalogueLive.Set(1)

	log.WithField("count", len(products)).Info("Catalogue refreshed from backend")
	return nil
}

// Live reports whether the cached list came from the backend.
func (c *Catalogue) Live() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live
}

// Products returns a snapshot of the cached list in catalogue order.
func (c *Catalogue) Products() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Find looks a product up by id.
func (c *Catalogue) Find(id string) (models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, ErrProductNotFound
}

// Filter returns a view of the current snapshot matching intent and search.
func (c *Catalogue) Filter(intent models.Intent, search string) iter.Seq[models.Product] {
	return FilterProducts(c.Products(), intent, search)
}

// FilterProducts yields the products whose category equals intent (any
// category for IntentAll) and whose name, description or tagline contains
// search, case-insensitively. The sequence can be ranged over repeatedly.
func FilterProducts(products []models.Product, intent models.Intent, search string) iter.Seq[models.Product] {
	needle := strings.ToLower(search)
	return func(yield func(models.Product) bool) {
		for _, p := range products {
			if intent != models.IntentAll && p.Category != intent {
				continue
			}
			if !matchesSearch(p, needle) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

func matchesSearch(p models.Product, needle string) bool {
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle) ||
		strings.Contains(strings.ToLower(p.Tagline), needle)
}

// NormalizeProduct maps a raw backend row onto a Product. Missing fields
// become zero values and the customizable fields are read from whichever
// column spelling holds a list.
func NormalizeProduct(r models.ProductRecord) models.Product {
	p := models.Product{
		ID:          r.RecordID(),
		Name:        str(r.Name),
		Tagline:     str(r.Tagline),
		Description: str(r.Description),
		Image:       str(r.Image),
		Category:    models.Intent(str(r.Category)),
		Story:       str(r.Story),
		Materials:   str(r.Materials),
		Process:     str(r.Process),
		Care:        str(r.Care),
		CreatedAt:   str(r.CreatedAt),
	}
	if r.Price != nil {
		p.Price = *r.Price
	}

	if fields, ok := stringList(r.CustomizableFields); ok {
		p.CustomizableFields = fields
	} else if fields, ok := stringList(r.CustomizableFieldsLegacy); ok {
		p.CustomizableFields = fields
	} else {
		p.CustomizableFields = []string{}
	}
	return p
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// stringList decodes raw as a JSON array, keeping only string elements.
func stringList(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}
