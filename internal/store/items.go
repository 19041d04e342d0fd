package store

import (
	"context"
	"database/sql"
	"fmt"

	"trade-service/internal/models"
	"trade-service/internal/service"
)

// ItemStore implements service.ItemRepository on Postgres
type ItemStore struct {
	store *Store
}

// NewItemStore creates an item repository over the store
func NewItemStore(store *Store) *ItemStore {
	return &ItemStore{store: store}
}

// Create inserts a new item
func (s *ItemStore) Create(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (owner_id, title, category, condition, description, image,
			status, offer_policy, available, unavailable_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return s.store.db.QueryRowxContext(ctx, query,
		item.OwnerID, item.Title, item.Category, item.Condition, item.Description,
		item.Image, item.Status, item.OfferPolicy, item.Available, item.UnavailableReason,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

// GetByID retrieves an item by ID
func (s *ItemStore) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := s.store.db.GetContext(ctx, &item, "SELECT * FROM items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: item %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Update persists every mutable field of the item
func (s *ItemStore) Update(ctx context.Context, item *models.Item) error {
	_, err := s.store.db.ExecContext(ctx, `
		UPDATE items
		SET title = $1, category = $2, condition = $3, description = $4, image = $5,
			status = $6, offer_policy = $7, available = $8, unavailable_reason = $9,
			updated_at = NOW()
		WHERE id = $10`,
		item.Title, item.Category, item.Condition, item.Description, item.Image,
		item.Status, item.OfferPolicy, item.Available, item.UnavailableReason, item.ID)
	return err
}

// Delete removes an item
func (s *ItemStore) Delete(ctx context.Context, id int64) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM items WHERE id = $1", id)
	return err
}

// ByOwner retrieves a user's items, newest first
func (s *ItemStore) ByOwner(ctx context.Context, ownerID int64) ([]models.Item, error) {
	var items []models.Item
	err := s.store.db.SelectContext(ctx, &items,
		"SELECT * FROM items WHERE owner_id = $1 ORDER BY created_at DESC, id DESC", ownerID)
	return items, err
}

// SearchListings retrieves the public feed with simple filters
func (s *ItemStore) SearchListings(ctx context.Context, filter service.ListingFilter) ([]models.Item, error) {
	query := "SELECT * FROM items WHERE status = 'public' AND available = TRUE"
	args := []interface{}{}

	addArg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := addArg("%" + filter.Search + "%")
		query += fmt.Sprintf(" AND (title ILIKE %s OR description ILIKE %s OR category ILIKE %s)", p, p, p)
	}
	if filter.Category != "" {
		query += " AND category = " + addArg(filter.Category)
	}
	if filter.Condition != "" {
		query += " AND condition = " + addArg(filter.Condition)
	}
	if filter.OfferPolicy != "" {
		query += " AND offer_policy = " + addArg(filter.OfferPolicy)
	}
	if filter.ExcludeOwner != 0 {
		query += " AND owner_id <> " + addArg(filter.ExcludeOwner)
	}
	query += " ORDER BY created_at DESC, id DESC"

	var items []models.Item
	err := s.store.db.SelectContext(ctx, &items, query, args...)
	return items, err
}
