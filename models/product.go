package models

import (
	"encoding/json"
	"fmt"
)

// Intent is the gifting occasion a product is catalogued under.
type Intent string

const (
	IntentBirthday    Intent = "Birthday"
	IntentAnniversary Intent = "Anniversary"
	IntentSurprise    Intent = "Surprise"
	IntentCustomGifts Intent = "Custom Gifts"

	// IntentAll is the filter sentinel accepting every category.
	IntentAll Intent = "All"
)

// Intents lists the catalogue categories in display order.
var Intents = []Intent{IntentBirthday, IntentAnniversary, IntentSurprise, IntentCustomGifts}

// Valid reports whether i is one of the fixed categories. IntentAll is not a category.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

const (
	DefaultProductImage = "https://images.unsplash.com/photo-1549490349-8643362247b5?auto=format&fit=crop&q=80&w=800"

	DefaultMaterials = "Manifested using bio-sourced photopolymers and mineral-infused resins, curated for their archival longevity and tactile depth."
	DefaultProcess   = "High-Resolution Stereolithography (SLA) defines our forms at a 50-micron layer height, capturing data points invisible to the human eye."
	DefaultCare      = "Clean with a dry microfibre cloth. Avoid chemical solvents, moisture, and intense UV. Handle metal infusions with care to prevent oxidation."
)

// Product is a normalized catalogue artifact.
type Product struct {
	ID                 string   `json:"id" yaml:"id" db:"id"`
	Name               string   `json:"name" yaml:"name" db:"name"`
	Tagline            string   `json:"tagline" yaml:"tagline" db:"tagline"`
	Description        string   `json:"description" yaml:"description" db:"description"`
	Price              float64  `json:"price" yaml:"price" db:"price"`
	Image              string   `json:"image" yaml:"image" db:"image"`
	Category           Intent   `json:"category" yaml:"category" db:"category"`
	Story              string   `json:"story" yaml:"story" db:"story"`
	CustomizableFields []string `json:"customizable_fields" yaml:"customizable_fields" db:"customizable_fields"`
	Materials          string   `json:"materials,omitempty" yaml:"materials,omitempty" db:"materials"`
	Process            string   `json:"process,omitempty" yaml:"process,omitempty" db:"process"`
	Care               string   `json:"care,omitempty" yaml:"care,omitempty" db:"care"`
	CreatedAt          string   `json:"created_at,omitempty" yaml:"created_at,omitempty" db:"created_at"`
}

// WithDetailDefaults fills the materials, process and care copy shown on the
// product page when the record leaves them empty.
func (p Product) WithDetailDefaults() Product {
	if p.Materials == "" {
		p.Materials = DefaultMaterials
	}
	if p.Process == "" {
		p.Process = DefaultProcess
	}
	if p.Care == "" {
		p.Care = DefaultCare
	}
	return p
}

// ProductRecord is a product row as returned by the backend, before
// normalization. The customizable fields column shows up under either
// spelling depending on how the row was written.
type ProductRecord struct {
	ID                       json.RawMessage `json:"id"`
	Name                     *string         `json:"name"`
	Tagline                  *string         `json:"tagline"`
	Description              *string         `json:"description"`
	Price                    *float64        `json:"price"`
	Image                    *string         `json:"image"`
	Category                 *string         `json:"category"`
	Story                    *string         `json:"story"`
	Materials                *string         `json:"materials"`
	Process                  *string         `json:"process"`
	Care                     *string         `json:"care"`
	CreatedAt                *string         `json:"created_at"`
	CustomizableFields       json.RawMessage `json:"customizable_fields"`
	CustomizableFieldsLegacy json.RawMessage `json:"customizableFields"`
}

// RecordID renders the id column whether the backend sent it as a number or a string.
func (r ProductRecord) RecordID() string {
	return RawID(r.ID)
}

// RawID renders a JSON id value as a string.
func RawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return fmt.Sprintf("%s", raw)
}

// ProductInput is the write payload for product inserts and updates.
type ProductInput struct {
	Name               string   `json:"name" db:"name"`
	Tagline            string   `json:"tagline" db:"tagline"`
	Description        string   `json:"description" db:"description"`
	Price              float64  `json:"price" db:"price"`
	Image              string   `json:"image" db:"image"`
	Category           Intent   `json:"category" db:"category"`
	Story              string   `json:"story" db:"story"`
	Materials          string   `json:"materials" db:"materials"`
	Process            string   `json:"process" db:"process"`
	Care               string   `json:"care" db:"care"`
	CustomizableFields []string `json:"customizable_fields" db:"customizable_fields"`
}

// InputFrom builds a write payload that reproduces p.
func InputFrom(p Product) ProductInput {
	return ProductInput{
		Name:               p.Name,
		Tagline:            p.Tagline,
		Description:        p.Description,
		Price:              p.Price,
		Image:              p.Image,
		Category:           p.Category,
		Story:              p.Story,
		Materials:          p.Materials,
		Process:            p.Process,
		Care:               p.Care,
		CustomizableFields: p.CustomizableFields,
	}
}

func (Product) TableName() string {
	return "products"
}

func (Product) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		tagline TEXT,
		description TEXT,
		price NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (price >= 0),
		image TEXT,
		category TEXT NOT NULL CHECK (category IN ('Birthday', 'Anniversary', 'Surprise', 'Custom Gifts')),
		story TEXT,
		materials TEXT,
		process TEXT,
		care TEXT,
		customizable_fields TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);`
}
