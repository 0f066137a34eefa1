package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"fabrino-server/models"
)

const (
	tableProducts   = "products"
	tableProfiles   = "profiles"
	tableOrders     = "orders"
	tableOrderItems = "order_items"
)

// Gateway is the record-level data gateway over the project's REST API.
type Gateway struct {
	client *Client
}

// NewGateway wraps c.
func NewGateway(c *Client) *Gateway {
	return &Gateway{client: c}
}

// ListProducts returns every product row ordered by creation time. Null
// rows are dropped.
func (g *Gateway) ListProducts(ctx context.Context) ([]models.ProductRecord, error) {
	resp, err := g.client.From(tableProducts).
		Select("*").
		Order("created_at", true).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if err := resp.Error(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var rows []*models.ProductRecord
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	records := make([]models.ProductRecord, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			records = append(records, *row)
		}
	}
	return records, nil
}

// InsertProduct creates a product row.
func (g *Gateway) InsertProduct(ctx context.Context, in models.ProductInput) error {
	resp, err := g.client.From(tableProducts).ExecuteInsert(ctx, []models.ProductInput{in})
	return check("insert product", resp, err)
}

// UpdateProduct overwrites the product row with id.
func (g *Gateway) UpdateProduct(ctx context.Context, id string, in models.ProductInput) error {
	resp, err := g.client.From(tableProducts).Eq("id", id).ExecuteUpdate(ctx, in)
	return check("update product", resp, err)
}

// DeleteProduct removes the product row with id.
func (g *Gateway) DeleteProduct(ctx context.Context, id string) error {
	resp, err := g.client.From(tableProducts).Eq("id", id).ExecuteDelete(ctx)
	return check("delete product", resp, err)
}

// GetProfile returns the profile for userID, or nil when no row exists.
func (g *Gateway) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	resp, err := g.client.From(tableProfiles).
		Select("*").
		Eq("id", userID).
		MaybeSingle().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if err := resp.Error(); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	var profile *models.Profile
	if err := json.Unmarshal(resp.Body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies patch to the existing profile row of userID.
func (g *Gateway) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) error {
	patch.ID = ""
	resp, err := g.client.From(tableProfiles).Eq("id", userID).ExecuteUpdate(ctx, patch)
	return check("update profile", resp, err)
}

// UpsertProfile writes patch to the profile of userID, creating the row if needed.
func (g *Gateway) UpsertProfile(ctx context.Context, userID string, patch models.ProfilePatch) error {
	patch.ID = userID
	resp, err := g.client.From(tableProfiles).Upsert("id").ExecuteInsert(ctx, patch)
	return check("upsert profile", resp, err)
}

// InsertOrder writes the order header and returns its generated id.
func (g *Gateway) InsertOrder(ctx context.Context, order models.Order) (string, error) {
	order.ID = ""
	resp, err := g.client.From(tableOrders).Select("id").Single().ExecuteInsert(ctx, []models.Order{order})
	if err := check("insert order", resp, err); err != nil {
		return "", err
	}

	var created struct {
		ID json.RawMessage `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", fmt.Errorf("decode order: %w", err)
	}
	id := models.RawID(created.ID)
	if id == "" {
		return "", fmt.Errorf("insert order: no id returned")
	}
	return id, nil
}

// InsertOrderItems writes all items in one request.
func (g *Gateway) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	resp, err := g.client.From(tableOrderItems).ExecuteInsert(ctx, items)
	return check("insert order items", resp, err)
}

// DeleteOrder removes the order header with id.
func (g *Gateway) DeleteOrder(ctx context.Context, id string) error {
	resp, err := g.client.From(tableOrders).Eq("id", id).ExecuteDelete(ctx)
	return check("delete order", resp, err)
}

// UpdateOrderStatus sets the status of the order header with id.
func (g *Gateway) UpdateOrderStatus(ctx context.Context, id, status string) error {
	resp, err := g.client.From(tableOrders).Eq("id", id).ExecuteUpdate(ctx, map[string]string{"status": status})
	return check("update order status", resp, err)
}

func check(op string, resp *Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := resp.Error(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
