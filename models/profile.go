package models

import (
	"time"
)

// Profile is the account record attached one-to-one to an authenticated user.
type Profile struct {
	ID                 string     `json:"id" db:"id"`
	FirstName          *string    `json:"first_name" db:"first_name"`
	LastName           *string    `json:"last_name" db:"last_name"`
	Address            *string    `json:"address" db:"address"`
	City               *string    `json:"city" db:"city"`
	PostalCode         *string    `json:"postal_code" db:"postal_code"`
	Phone              *string    `json:"phone" db:"phone"`
	PaymentMethodLast4 *string    `json:"payment_method_last4" db:"payment_method_last4"`
	OnboardingComplete bool       `json:"onboarding_complete" db:"onboarding_complete"`
	UpdatedAt          *time.Time `json:"updated_at" db:"updated_at"`
}

// ContactDetails are the shipping fields shared by onboarding and profile edit.
type ContactDetails struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

// ProfilePatch is a partial profile write. Nil fields are left untouched.
type ProfilePatch struct {
	ID                 string     `json:"id,omitempty"`
	FirstName          *string    `json:"first_name,omitempty"`
	LastName           *string    `json:"last_name,omitempty"`
	Address            *string    `json:"address,omitempty"`
	City               *string    `json:"city,omitempty"`
	PostalCode         *string    `json:"postal_code,omitempty"`
	Phone              *string    `json:"phone,omitempty"`
	PaymentMethodLast4 *string    `json:"payment_method_last4,omitempty"`
	OnboardingComplete *bool      `json:"onboarding_complete,omitempty"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// PatchFromContact copies d into a patch stamped with at.
func PatchFromContact(d ContactDetails, at time.Time) ProfilePatch {
	return ProfilePatch{
		FirstName:  &d.FirstName,
		LastName:   &d.LastName,
		Address:    &d.Address,
		City:       &d.City,
		PostalCode: &d.PostalCode,
		Phone:      &d.Phone,
		UpdatedAt:  &at,
	}
}

// Column is a column/value pair of a patch.
type Column struct {
	Name  string
	Value any
}

// Columns lists the set fields of the patch in table column order, excluding id.
func (p ProfilePatch) Columns() []Column {
	var cols []Column
	add := func(name string, set bool, v any) {
		if set {
			cols = append(cols, Column{Name: name, Value: v})
		}
	}
	add("first_name", p.FirstName != nil, deref(p.FirstName))
	add("last_name", p.LastName != nil, deref(p.LastName))
	add("address", p.Address != nil, deref(p.Address))
	add("city", p.City != nil, deref(p.City))
	add("postal_code", p.PostalCode != nil, deref(p.PostalCode))
	add("phone", p.Phone != nil, deref(p.Phone))
	add("payment_method_last4", p.PaymentMethodLast4 != nil, deref(p.PaymentMethodLast4))
	if p.OnboardingComplete != nil {
		cols = append(cols, Column{Name: "onboarding_complete", Value: *p.OnboardingComplete})
	}
	if p.UpdatedAt != nil {
		cols = append(cols, Column{Name: "updated_at", Value: *p.UpdatedAt})
	}
	return cols
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (Profile) TableName() string {
	return "profiles"
}

func (Profile) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		address TEXT,
		city TEXT,
		postal_code TEXT,
		phone TEXT,
		payment_method_last4 VARCHAR(4),
		onboarding_complete BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);`
}
