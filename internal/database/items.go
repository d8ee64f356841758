package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pantrywatch/pantry-api/internal/expiry"
	"github.com/pantrywatch/pantry-api/internal/models"
)

// ItemRepository handles grocery item database operations
type ItemRepository struct {
	db *DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new grocery item
func (r *ItemRepository) Create(ctx context.Context, item *models.GroceryItem) error {
	query := `
		INSERT INTO grocery_items (id, product_name, category, quantity, purchase_date, expiry_date, status, completed_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	purchase, err := expiry.ParseDate(item.PurchaseDate)
	if err != nil {
		return fmt.Errorf("invalid purchase date: %w", err)
	}
	exp, err := expiry.ParseDate(item.ExpiryDate)
	if err != nil {
		return fmt.Errorf("invalid expiry date: %w", err)
	}

	var completed sql.NullTime
	if item.CompletedDate != nil {
		t, err := expiry.ParseDate(*item.CompletedDate)
		if err != nil {
			return fmt.Errorf("invalid completed date: %w", err)
		}
		completed = sql.NullTime{Time: t, Valid: true}
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		item.ID,
		item.ProductName,
		item.Category,
		item.Quantity,
		purchase,
		exp,
		item.Status,
		completed,
		now,
		now,
	).Scan(&item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GroceryItem, error) {
	query := `
		SELECT id, product_name, category, quantity, purchase_date, expiry_date, status, completed_date, created_at, updated_at
		FROM grocery_items
		WHERE id = $1
	`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// ListAll retrieves every item, newest first
func (r *ItemRepository) ListAll(ctx context.Context) ([]*models.GroceryItem, error) {
	query := `
		SELECT id, product_name, category, quantity, purchase_date, expiry_date, status, completed_date, created_at, updated_at
		FROM grocery_items
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.GroceryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// Update replaces the mutable fields of an existing item
func (r *ItemRepository) Update(ctx context.Context, item *models.GroceryItem) error {
	query := `
		UPDATE grocery_items
		SET product_name = $2, category = $3, quantity = $4, purchase_date = $5, expiry_date = $6, status = $7, completed_date = $8, updated_at = $9
		WHERE id = $1
		RETURNING updated_at
	`

	purchase, err := expiry.ParseDate(item.PurchaseDate)
	if err != nil {
		return fmt.Errorf("invalid purchase date: %w", err)
	}
	exp, err := expiry.ParseDate(item.ExpiryDate)
	if err != nil {
		return fmt.Errorf("invalid expiry date: %w", err)
	}

	var completed sql.NullTime
	if item.CompletedDate != nil {
		t, err := expiry.ParseDate(*item.CompletedDate)
		if err != nil {
			return fmt.Errorf("invalid completed date: %w", err)
		}
		completed = sql.NullTime{Time: t, Valid: true}
	}

	err = r.db.QueryRowContext(ctx, query,
		item.ID,
		item.ProductName,
		item.Category,
		item.Quantity,
		purchase,
		exp,
		item.Status,
		completed,
		time.Now(),
	).Scan(&item.UpdatedAt)

	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	return nil
}

// UpdateStatus transitions an item from one status to another. The update only
// applies when the stored status still matches the expected one and the item
// has not been completed, so concurrent reconcilers flip each item at most
// once. Returns whether the transition was applied.
func (r *ItemRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ItemStatus) (bool, error) {
	query := `
		UPDATE grocery_items
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2 AND status <> 'completed'
	`

	result, err := r.db.ExecContext(ctx, query, id, from, to, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to update item status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// Delete removes an item by ID
func (r *ItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM grocery_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.GroceryItem, error) {
	item := &models.GroceryItem{}
	var purchase, exp time.Time
	var completed sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.ProductName,
		&item.Category,
		&item.Quantity,
		&purchase,
		&exp,
		&item.Status,
		&completed,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.PurchaseDate = expiry.FormatDate(purchase)
	item.ExpiryDate = expiry.FormatDate(exp)
	if completed.Valid {
		d := expiry.FormatDate(completed.Time)
		item.CompletedDate = &d
	}

	return item, nil
}
