package database

import (
	"fmt"

	"fabrino-server/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

type DB struct {
	*sqlx.DB
}

// Connect establishes a connection to the PostgreSQL database
func Connect(databaseURL string) (*DB, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// InitializeTables creates the storefront tables if they don't exist
func (db *DB) InitializeTables() error {
	if _, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`); err != nil {
		return fmt.Errorf("failed to enable pgcrypto extension: %w", err)
	}

	// Order matters: order_items references orders.
	tables := []interface{}{
		models.Product{},
		models.Profile{},
		models.Order{},
		models.OrderItem{},
	}

	for _, model := range tables {
		if tableModel, ok := model.(interface {
			TableName() string
			CreateTableSQL() string
		}); ok {
			tableName := tableModel.TableName()

			log.WithField("table", tableName).Info("Creating table")
			if _, err := db.Exec(tableModel.CreateTableSQL()); err != nil {
				return fmt.Errorf("failed to create table %s: %w", tableName, err)
			}
		}
	}

	if err := db.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("All tables created successfully")
	return nil
}

// runMigrations handles schema updates for existing tables
func (db *DB) runMigrations() error {
	migrations := []string{
		`ALTER TABLE products ADD COLUMN IF NOT EXISTS materials TEXT;`,
		`ALTER TABLE products ADD COLUMN IF NOT EXISTS process TEXT;`,
		`ALTER TABLE products ADD COLUMN IF NOT EXISTS care TEXT;`,
		`ALTER TABLE profiles ADD COLUMN IF NOT EXISTS payment_method_last4 VARCHAR(4);`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS user_id UUID;`,

		`CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration %q: %w", migration, err)
		}
	}
	return nil
}
