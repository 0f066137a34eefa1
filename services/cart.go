package services

import (
	"fmt"
	"sync"
	"time"

	"fabrino-server/models"

	"github.com/shopspring/decimal"
)

// CartLedger is the ordered list of customized items pending checkout.
// Items are never merged: every add appends a new line.
type CartLedger struct {
	mu       sync.Mutex
	items    []models.CartItem
	now      func() time.Time
	onChange func()
}

func NewCartLedger() *CartLedger {
	return &CartLedger{now: time.Now}
}

// Add appends product with the captured customization.
func (l *CartLedger) Add(product models.Product, c models.CustomizationState) models.CartItem {
	if c.Color == "" {
		c.Color = models.DefaultToneHex
	}
	if c.Options == nil {
		c.Options = map[string]string{}
	}

	l.mu.Lock()
	item := models.CartItem{
		CustomizationState: c,
		CartID:             l.mintID(product.ID),
		ProductID:          product.ID,
		Name:               product.Name,
		Price:              product.Price,
		Image:              product.Image,
		Quantity:           1,
	}
	l.items = append(l.items, item)
	l.mu.Unlock()

	l.changed()
	return item
}

// AddStandard appends product as the standard edition, skipping customization.
func (l *CartLedger) AddStandard(product models.Product) models.CartItem {
	return l.Add(product, models.StandardCustomization())
}

// Remove drops the item with cartID. Unknown ids are a no-op.
func (l *CartLedger) Remove(cartID string) bool {
	l.mu.Lock()
	kept := l.items[:0:0]
	for _, item := range l.items {
		if item.CartID != cartID {
			kept = append(kept, item)
		}
	}
	removed := len(kept) != len(l.items)
	l.items = kept
	l.mu.Unlock()

	if removed {
		l.changed()
	}
	return removed
}

func (l *CartLedger) Clear() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
	l.changed()
}

// Items returns a copy of the ledger in insertion order.
func (l *CartLedger) Items() []models.CartItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.CartItem, len(l.items))
	copy(out, l.items)
	return out
}

func (l *CartLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Subtotal sums price × quantity over the ledger.
func (l *CartLedger) Subtotal() float64 {
	return Subtotal(l.Items())
}

// Subtotal sums price × quantity over items. Zero values count as zero.
func Subtotal(items []models.CartItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	f, _ := total.Float64()
	return f
}

// mintID derives the line id from the product id and the current millisecond,
// stepping forward past ids already in the ledger. Callers hold l.mu.
func (l *CartLedger) mintID(productID string) string {
	ms := l.now().UnixMilli()
	for {
		id := fmt.Sprintf("%s-%d", productID, ms)
		if !l.hasID(id) {
			return id
		}
		ms++
	}
}

func (l *CartLedger) hasID(id string) bool {
	for _, item := range l.items {
		if item.CartID == id {
			return true
		}
	}
	return false
}

func (l *CartLedger) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}
