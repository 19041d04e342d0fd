package store

import (
	"context"
	"database/sql"
	"fmt"

	"trade-service/internal/models"
)

// OfferStore implements service.OfferRepository on Postgres
type OfferStore struct {
	store *Store
}

// NewOfferStore creates an offer repository over the store
func NewOfferStore(store *Store) *OfferStore {
	return &OfferStore{store: store}
}

// Create inserts a new offer
func (s *OfferStore) Create(ctx context.Context, offer *models.Offer) error {
	query := `
		INSERT INTO offers (listing_id, seller_id, buyer_id, kind, amount,
			collateral_item_id, swap_title, swap_category, swap_condition,
			swap_description, swap_image, offered_for, status, note,
			listing_title, listing_owner_handle)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	return s.store.db.QueryRowxContext(ctx, query,
		offer.ListingID, offer.SellerID, offer.BuyerID, offer.Kind, offer.Amount,
		offer.CollateralItemID, offer.SwapItemSnapshot.Title, offer.SwapItemSnapshot.Category,
		offer.SwapItemSnapshot.Condition, offer.SwapItemSnapshot.Description,
		offer.SwapItemSnapshot.Image, offer.OfferedFor, offer.Status, offer.Note,
		offer.ListingTitle, offer.ListingOwnerHandle,
	).Scan(&offer.ID, &offer.CreatedAt, &offer.UpdatedAt)
}

// GetByID retrieves an offer by ID
func (s *OfferStore) GetByID(ctx context.Context, id int64) (*models.Offer, error) {
	var offer models.Offer
	err := s.store.db.GetContext(ctx, &offer, "SELECT * FROM offers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: offer %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// UpdateStatus updates the offer status
func (s *OfferStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := s.store.db.ExecContext(ctx,
		"UPDATE offers SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	return err
}

// Delete removes an offer
func (s *OfferStore) Delete(ctx context.Context, id int64) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM offers WHERE id = $1", id)
	return err
}

// DeletePendingByBuyerAndListing removes the buyer's Pending offers on a
// listing; used by the supersede rule
func (s *OfferStore) DeletePendingByBuyerAndListing(ctx context.Context, buyerID, listingID int64) (int64, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM offers WHERE buyer_id = $1 AND listing_id = $2 AND status = $3",
		buyerID, listingID, models.OfferStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByItem removes every offer referencing the item as target or
// collateral, regardless of status
func (s *OfferStore) DeleteByItem(ctx context.Context, itemID int64) (int64, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM offers WHERE listing_id = $1 OR collateral_item_id = $1", itemID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PendingByListing retrieves the Pending offers targeting a listing
func (s *OfferStore) PendingByListing(ctx context.Context, listingID int64) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.store.db.SelectContext(ctx, &offers,
		"SELECT * FROM offers WHERE listing_id = $1 AND status = $2 ORDER BY created_at DESC, id DESC",
		listingID, models.OfferStatusPending)
	return offers, err
}

// PendingByCollateral retrieves the Pending offers dangling the item as
// swap collateral
func (s *OfferStore) PendingByCollateral(ctx context.Context, itemID int64) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.store.db.SelectContext(ctx, &offers,
		"SELECT * FROM offers WHERE collateral_item_id = $1 AND status = $2 ORDER BY created_at DESC, id DESC",
		itemID, models.OfferStatusPending)
	return offers, err
}

// HasActiveByItem reports whether any Pending or Accepted offer
// references the item
func (s *OfferStore) HasActiveByItem(ctx context.Context, itemID int64) (bool, error) {
	var exists bool
	err := s.store.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM offers
			WHERE (listing_id = $1 OR collateral_item_id = $1) AND status IN ($2, $3)
		)`,
		itemID, models.OfferStatusPending, models.OfferStatusAccepted)
	return exists, err
}

// ByListing retrieves every offer on a listing, newest first
func (s *OfferStore) ByListing(ctx context.Context, listingID int64) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.store.db.SelectContext(ctx, &offers,
		"SELECT * FROM offers WHERE listing_id = $1 ORDER BY created_at DESC, id DESC", listingID)
	return offers, err
}

// BySeller retrieves a seller's incoming offers, newest first
func (s *OfferStore) BySeller(ctx context.Context, sellerID int64) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.store.db.SelectContext(ctx, &offers,
		"SELECT * FROM offers WHERE seller_id = $1 ORDER BY created_at DESC, id DESC", sellerID)
	return offers, err
}

// ByBuyer retrieves a buyer's outgoing offers, newest first
func (s *OfferStore) ByBuyer(ctx context.Context, buyerID int64) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.store.db.SelectContext(ctx, &offers,
		"SELECT * FROM offers WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC", buyerID)
	return offers, err
}
