package models

import (
	"time"
)

const (
	OrderStatusProcessing = "processing"
	OrderStatusIncomplete = "incomplete"
)

// Order is the order header written at checkout.
type Order struct {
	ID         string     `json:"id,omitempty" db:"id"`
	FirstName  string     `json:"first_name" db:"first_name"`
	LastName   string     `json:"last_name" db:"last_name"`
	Address    string     `json:"address" db:"address"`
	City       string     `json:"city" db:"city"`
	PostalCode string     `json:"postal_code" db:"postal_code"`
	Total      float64    `json:"total" db:"total"`
	Status     string     `json:"status" db:"status"`
	UserID     *string    `json:"user_id" db:"user_id"`
	CreatedAt  *time.Time `json:"created_at,omitempty" db:"created_at"`
}

// OrderItem is one cart line copied into the order.
type OrderItem struct {
	OrderID            string  `json:"order_id" db:"order_id"`
	ProductID          string  `json:"product_id" db:"product_id"`
	Name               string  `json:"name" db:"name"`
	CustomizationText  string  `json:"customization_text" db:"customization_text"`
	CustomizationColor string  `json:"customization_color" db:"customization_color"`
	Quantity           int     `json:"quantity" db:"quantity"`
	Price              float64 `json:"price" db:"price"`
}

// OrderEvent is published once an order and its items are stored.
type OrderEvent struct {
	OrderID   string      `json:"order_id"`
	UserID    *string     `json:"user_id,omitempty"`
	Total     float64     `json:"total"`
	Items     []OrderItem `json:"items"`
	PlacedAt  time.Time   `json:"placed_at"`
	SessionID string      `json:"session_id"`
}

func (Order) TableName() string {
	return "orders"
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (Order) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		address TEXT NOT NULL,
		city TEXT,
		postal_code TEXT,
		total NUMERIC(12,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'processing',
		user_id UUID,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);`
}

func (OrderItem) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		customization_text TEXT,
		customization_color TEXT,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price NUMERIC(12,2) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);`
}
