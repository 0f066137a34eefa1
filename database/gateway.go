package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fabrino-server/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Gateway is the record-level data gateway over a direct Postgres connection.
// It serves the same tables as the hosted REST API.
type Gateway struct {
	db *DB
}

// NewGateway wraps db.
func NewGateway(db *DB) *Gateway {
	return &Gateway{db: db}
}

type productRow struct {
	ID                 string          `db:"id"`
	Name               sql.NullString  `db:"name"`
	Tagline            sql.NullString  `db:"tagline"`
	Description        sql.NullString  `db:"description"`
	Price              sql.NullFloat64 `db:"price"`
	Image              sql.NullString  `db:"image"`
	Category           sql.NullString  `db:"category"`
	Story              sql.NullString  `db:"story"`
	Materials          sql.NullString  `db:"materials"`
	Process            sql.NullString  `db:"process"`
	Care               sql.NullString  `db:"care"`
	CustomizableFields pq.StringArray  `db:"customizable_fields"`
	CreatedAt          sql.NullTime    `db:"created_at"`
}

func (r productRow) record() models.ProductRecord {
	rec := models.ProductRecord{
		Name:        nullString(r.Name),
		Tagline:     nullString(r.Tagline),
		Description: nullString(r.Description),
		Image:       nullString(r.Image),
		Category:    nullString(r.Category),
		Story:       nullString(r.Story),
		Materials:   nullString(r.Materials),
		Process:     nullString(r.Process),
		Care:        nullString(r.Care),
	}
	rec.ID, _ = json.Marshal(r.ID)
	if r.Price.Valid {
		price := r.Price.Float64
		rec.Price = &price
	}
	if r.CustomizableFields != nil {
		rec.CustomizableFields, _ = json.Marshal([]string(r.CustomizableFields))
	}
	if r.CreatedAt.Valid {
		created := r.CreatedAt.Time.UTC().Format("2006-01-02T15:04:05.999999Z07:00")
		rec.CreatedAt = &created
	}
	return rec
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// ListProducts returns every product row ordered by creation time.
func (g *Gateway) ListProducts(ctx context.Context) ([]models.ProductRecord, error) {
	var rows []productRow
	query := `
		SELECT id::text AS id, name, tagline, description, price, image, category, story,
		       materials, process, care, customizable_fields, created_at
		FROM products
		ORDER BY created_at ASC`
	if err := g.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	records := make([]models.ProductRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

// InsertProduct creates a product row.
func (g *Gateway) InsertProduct(ctx context.Context, in models.ProductInput) error {
	query := `
		INSERT INTO products (name, tagline, description, price, image, category, story,
		                      materials, process, care, customizable_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := g.db.ExecContext(ctx, query,
		in.Name, in.Tagline, in.Description, in.Price, in.Image, string(in.Category), in.Story,
		in.Materials, in.Process, in.Care, pq.Array(fieldsOrEmpty(in.CustomizableFields)),
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct overwrites the product row with id.
func (g *Gateway) UpdateProduct(ctx context.Context, id string, in models.ProductInput) error {
	query := `
		UPDATE products
		SET name = $1, tagline = $2, description = $3, price = $4, image = $5, category = $6,
		    story = $7, materials = $8, process = $9, care = $10, customizable_fields = $11
		WHERE id = $12`
	_, err := g.db.ExecContext(ctx, query,
		in.Name, in.Tagline, in.Description, in.Price, in.Image, string(in.Category), in.Story,
		in.Materials, in.Process, in.Care, pq.Array(fieldsOrEmpty(in.CustomizableFields)), id,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// DeleteProduct removes the product row with id.
func (g *Gateway) DeleteProduct(ctx context.Context, id string) error {
	if _, err := g.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// GetProfile returns the profile for userID, or nil when no row exists.
func (g *Gateway) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	query := `
		SELECT id::text AS id, first_name, last_name, address, city, postal_code, phone,
		       payment_method_last4, onboarding_complete, updated_at
		FROM profiles
		WHERE id = $1`
	err := g.db.GetContext(ctx, &profile, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

// UpdateProfile applies patch to the existing profile row of userID.
func (g *Gateway) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col.Name, i+1))
		args = append(args, col.Value)
	}
	args = append(args, userID)

	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpsertProfile writes patch to the profile of userID, creating the row if needed.
func (g *Gateway) UpsertProfile(ctx context.Context, userID string, patch models.ProfilePatch) error {
	cols := patch.Columns()

	names := []string{"id"}
	placeholders := []string{"$1"}
	updates := make([]string, 0, len(cols))
	args := []any{userID}
	for i, col := range cols {
		names = append(names, col.Name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col.Name, col.Name))
		args = append(args, col.Value)
	}

	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	query := fmt.Sprintf(`INSERT INTO profiles (%s) VALUES (%s) ON CONFLICT (id) %s`,
		strings.Join(names, ", "), strings.Join(placeholders, ", "), conflict)
	if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// InsertOrder writes the order header and returns its id.
func (g *Gateway) InsertOrder(ctx context.Context, order models.Order) (string, error) {
	id := uuid.New()
	query := `
		INSERT INTO orders (id, first_name, last_name, address, city, postal_code, total, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := g.db.ExecContext(ctx, query,
		id, order.FirstName, order.LastName, order.Address, order.City, order.PostalCode,
		order.Total, order.Status, order.UserID,
	)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	return id.String(), nil
}

// InsertOrderItems writes all items in one statement.
func (g *Gateway) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `
		INSERT INTO order_items (order_id, product_id, name, customization_text, customization_color, quantity, price)
		VALUES (:order_id, :product_id, :name, :customization_text, :customization_color, :quantity, :price)`
	if _, err := g.db.NamedExecContext(ctx, query, items); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

// DeleteOrder removes the order header with id.
func (g *Gateway) DeleteOrder(ctx context.Context, id string) error {
	if _, err := g.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// UpdateOrderStatus sets the status of the order header with id.
func (g *Gateway) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if _, err := g.db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func fieldsOrEmpty(fields []string) []string {
	if fields == nil {
		return []string{}
	}
	return fields
}
