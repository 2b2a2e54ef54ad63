package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"pricing-table-api/internal/models"
)

// MetaMaxQuantity is the product meta key holding the stored maximum order
// quantity, used as a fallback when no quantity-rules resolver is configured.
const MetaMaxQuantity = "maximum_allowed_quantity"

// MetaVariationMaxQuantity is the variation-level fallback for MetaMaxQuantity.
const MetaVariationMaxQuantity = "variation_maximum_allowed_quantity"

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			regular_price REAL NOT NULL,
			attributes TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS product_meta (
			product_id INTEGER NOT NULL,
			meta_key TEXT NOT NULL,
			meta_value TEXT NOT NULL,
			PRIMARY KEY (product_id, meta_key)
		)`,
		`CREATE TABLE IF NOT EXISTS pricing_rules (
			product_id INTEGER PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_product_meta_product ON product_meta(product_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// UpsertProduct creates or updates a product.
func (db *DB) UpsertProduct(ctx context.Context, product models.Product) error {
	attributesJSON := serializeAttributes(product.Attributes)

	query := `INSERT INTO products (id, name, regular_price, attributes, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			regular_price = excluded.regular_price,
			attributes = excluded.attributes,
			updated_at = excluded.updated_at`

	_, err := db.conn.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.RegularPrice,
		attributesJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// GetProduct returns the product with the given id, or nil when it does not exist.
func (db *DB) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	query := `SELECT id, name, regular_price, attributes FROM products WHERE id = ?`

	var product models.Product
	var attributesJSON string

	err := db.conn.QueryRowContext(ctx, query, productID).Scan(
		&product.ID,
		&product.Name,
		&product.RegularPrice,
		&attributesJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	product.Attributes = deserializeAttributes(attributesJSON)

	return &product, nil
}

// SetProductMeta stores a single product meta value.
func (db *DB) SetProductMeta(ctx context.Context, productID int64, key, value string) error {
	query := `INSERT INTO product_meta (product_id, meta_key, meta_value)
		VALUES (?, ?, ?)
		ON CONFLICT(product_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`

	if _, err := db.conn.ExecContext(ctx, query, productID, key, value); err != nil {
		return fmt.Errorf("failed to set product meta: %w", err)
	}

	return nil
}

// GetProductMeta returns the value of a product meta key, or "" when unset.
func (db *DB) GetProductMeta(ctx context.Context, productID int64, key string) (string, error) {
	query := `SELECT meta_value FROM product_meta WHERE product_id = ? AND meta_key = ?`

	var value string
	err := db.conn.QueryRowContext(ctx, query, productID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get product meta: %w", err)
	}

	return value, nil
}

// SaveRuleSets replaces the per-product pricing rules record. The whole
// ordered list is stored as one payload, mirroring the single metadata record
// the pricing plugin writes per product.
func (db *DB) SaveRuleSets(ctx context.Context, productID int64, ruleSets []models.RuleSet) error {
	payload, err := json.Marshal(ruleSets)
	if err != nil {
		return fmt.Errorf("failed to serialize rule sets: %w", err)
	}

	query := `INSERT INTO pricing_rules (product_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`

	_, err = db.conn.ExecContext(ctx, query,
		productID,
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save rule sets: %w", err)
	}

	return nil
}

// GetRuleSets returns the ordered rule-set list configured for a product.
// A product with no record yields an empty slice.
func (db *DB) GetRuleSets(ctx context.Context, productID int64) ([]models.RuleSet, error) {
	query := `SELECT payload FROM pricing_rules WHERE product_id = ?`

	var payload string
	err := db.conn.QueryRowContext(ctx, query, productID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule sets: %w", err)
	}

	var ruleSets []models.RuleSet
	if err := json.Unmarshal([]byte(payload), &ruleSets); err != nil {
		return nil, fmt.Errorf("failed to parse rule sets payload: %w", err)
	}

	return ruleSets, nil
}

// serializeAttributes converts a product attribute map to a JSON string.
func serializeAttributes(attributes map[string]string) string {
	if len(attributes) == 0 {
		return "{}"
	}
	data, err := json.Marshal(attributes)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// deserializeAttributes converts a serialized attribute map back to a map.
func deserializeAttributes(serialized string) map[string]string {
	if serialized == "" || serialized == "{}" {
		return map[string]string{}
	}

	var result map[string]string
	if err := json.Unmarshal([]byte(serialized), &result); err != nil {
		return map[string]string{}
	}
	return result
}
