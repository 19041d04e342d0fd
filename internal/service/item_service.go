package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trade-service/internal/models"
	"trade-service/internal/util"

	"go.uber.org/zap"
)

// ItemService owns item listing/availability transitions and the
// constraints that gate them. The offer engine drives the same cascade
// rules through it when an offer is accepted.
type ItemService struct {
	items  ItemRepository
	offers OfferRepository
	locks  Locker
	logger *zap.Logger
}

// NewItemService creates a new item service
func NewItemService(items ItemRepository, offers OfferRepository, locks Locker) *ItemService {
	return &ItemService{
		items:  items,
		offers: offers,
		locks:  locks,
		logger: util.GetLogger(),
	}
}

// CreateItemRequest carries the descriptive fields of a new item
type CreateItemRequest struct {
	Title       string `json:"title" binding:"required"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// EditItemRequest carries partial updates; empty fields are left untouched
type EditItemRequest struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// CreateItem creates a private, available item owned by the actor
func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, req *CreateItemRequest) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.CreateItem")
	defer span.End()

	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", models.ErrValidation)
	}

	item := &models.Item{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Category:    defaultString(req.Category, "Misc"),
		Condition:   defaultString(req.Condition, "Good"),
		Description: req.Description,
		Image:       req.Image,
		Status:      models.ListingPrivate,
		OfferPolicy: models.OfferKindBoth,
		Available:   true,
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.logger.Info("Item created",
		zap.Int64("item_id", item.ID),
		zap.Int64("owner_id", ownerID))
	return item, nil
}

// EditItem updates descriptive fields. Editing is forbidden while the
// item is listed or referenced by any live offer, so a buyer can never
// be baited with one description and switched to another.
func (s *ItemService) EditItem(ctx context.Context, itemID, actorID int64, req *EditItemRequest) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.EditItem")
	defer span.End()

	item, err := s.ownedItem(ctx, itemID, actorID)
	if err != nil {
		return nil, err
	}

	if item.Listed() {
		return nil, fmt.Errorf("%w: cannot edit a listed item", models.ErrConflict)
	}
	active, err := s.offers.HasActiveByItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check live offers: %w", err)
	}
	if active {
		return nil, fmt.Errorf("%w: cannot edit an item included in active offers", models.ErrConflict)
	}

	applyIfSet(&item.Title, req.Title)
	applyIfSet(&item.Category, req.Category)
	applyIfSet(&item.Condition, req.Condition)
	applyIfSet(&item.Description, req.Description)
	applyIfSet(&item.Image, req.Image)

	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

// DeleteItem removes a private, available item and every offer that
// references it, as target or as collateral. Sold and swapped items are
// permanent history and cannot be deleted.
func (s *ItemService) DeleteItem(ctx context.Context, itemID, actorID int64) error {
	ctx, span := util.StartSpan(ctx, "ItemService.DeleteItem")
	defer span.End()

	item, err := s.ownedItem(ctx, itemID, actorID)
	if err != nil {
		return err
	}

	if item.Listed() {
		return fmt.Errorf("%w: listed items cannot be deleted, unlist first", models.ErrConflict)
	}
	if !item.Available {
		return fmt.Errorf("%w: sold or swapped items cannot be deleted", models.ErrConflict)
	}

	unlock, err := s.locks.Lock(ctx, itemKey(item.ID))
	if err != nil {
		return fmt.Errorf("failed to lock item: %w", err)
	}
	defer unlock()

	deleted, err := s.offers.DeleteByItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("failed to delete referencing offers: %w", err)
	}
	if err := s.items.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	util.CascadeOffersDeletedTotal.Add(float64(deleted))
	s.logger.Info("Item deleted",
		zap.Int64("item_id", item.ID),
		zap.Int64("offers_removed", deleted))
	return nil
}

// ListItem publishes the item to the marketplace feed with the given
// offer policy
func (s *ItemService) ListItem(ctx context.Context, itemID, actorID int64, offerPolicy string) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.ListItem")
	defer span.End()

	if offerPolicy == "" {
		offerPolicy = models.OfferKindBoth
	}
	if !validOfferKind(offerPolicy) {
		return nil, fmt.Errorf("%w: unknown offer policy %q", models.ErrValidation, offerPolicy)
	}

	item, err := s.ownedItem(ctx, itemID, actorID)
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, fmt.Errorf("%w: unavailable items cannot be listed", models.ErrConflict)
	}

	item.Status = models.ListingPublic
	item.OfferPolicy = offerPolicy
	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to list item: %w", err)
	}

	util.ItemsListedTotal.Inc()
	return item, nil
}

// UnlistItem withdraws the item from the feed. Pending offers targeting
// it are rejected (reversible history for their buyers); pending offers
// using it as collateral are deleted.
func (s *ItemService) UnlistItem(ctx context.Context, itemID, actorID int64) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.UnlistItem")
	defer span.End()

	item, err := s.ownedItem(ctx, itemID, actorID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, itemKey(item.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}
	defer unlock()

	start := time.Now()
	defer func() {
		util.CascadeLatency.Observe(time.Since(start).Seconds())
	}()

	item.Status = models.ListingPrivate
	item.OfferPolicy = models.OfferKindBoth
	item.UnavailableReason = nil
	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to unlist item: %w", err)
	}

	if _, err := rejectPendingTargeting(ctx, s.offers, item.ID, 0); err != nil {
		return nil, fmt.Errorf("failed to reject pending offers: %w", err)
	}
	if _, err := deletePendingCollateral(ctx, s.offers, item.ID, 0); err != nil {
		return nil, fmt.Errorf("failed to delete collateral offers: %w", err)
	}

	util.ItemsUnlistedTotal.Inc()
	return item, nil
}

// SetAvailability freezes or revives the item. Both directions force the
// item private and run the same dependent-offer cascade as UnlistItem;
// reviving also clears the reason and resets the offer policy, but never
// auto-relists.
func (s *ItemService) SetAvailability(ctx context.Context, itemID, actorID int64, available bool, reason string) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.SetAvailability")
	defer span.End()

	item, err := s.ownedItem(ctx, itemID, actorID)
	if err != nil {
		return nil, err
	}

	if !available {
		if reason == "" {
			reason = models.ReasonSold
		}
		if !validReason(reason) {
			return nil, fmt.Errorf("%w: unknown unavailable reason %q", models.ErrValidation, reason)
		}
	}

	unlock, err := s.locks.Lock(ctx, itemKey(item.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}
	defer unlock()

	if _, _, err := s.applyAvailability(ctx, item, available, reason, 0); err != nil {
		return nil, err
	}
	return item, nil
}

// applyAvailability mutates the item and runs the dependent-offer
// cascade. exceptOfferID shields the offer currently being accepted from
// its own sweep. Callers hold the item lock.
func (s *ItemService) applyAvailability(ctx context.Context, item *models.Item, available bool, reason string, exceptOfferID int64) (rejected, deleted []models.Offer, err error) {
	start := time.Now()
	defer func() {
		util.CascadeLatency.Observe(time.Since(start).Seconds())
	}()

	item.Available = available
	item.Status = models.ListingPrivate
	if available {
		item.UnavailableReason = nil
		item.OfferPolicy = models.OfferKindBoth
	} else {
		item.UnavailableReason = &reason
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, nil, fmt.Errorf("failed to update availability: %w", err)
	}

	rejected, err = rejectPendingTargeting(ctx, s.offers, item.ID, exceptOfferID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reject pending offers: %w", err)
	}
	deleted, err = deletePendingCollateral(ctx, s.offers, item.ID, exceptOfferID)
	if err != nil {
		return rejected, nil, fmt.Errorf("failed to delete collateral offers: %w", err)
	}
	return rejected, deleted, nil
}

// MyItems returns the actor's items, newest first
func (s *ItemService) MyItems(ctx context.Context, ownerID int64) ([]models.Item, error) {
	return s.items.ByOwner(ctx, ownerID)
}

// Listings returns the public marketplace feed
func (s *ItemService) Listings(ctx context.Context, filter ListingFilter) ([]models.Item, error) {
	return s.items.SearchListings(ctx, filter)
}

// GetListing returns one item; private items are visible only to their
// owner
func (s *ItemService) GetListing(ctx context.Context, itemID, viewerID int64) (*models.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Listed() && item.OwnerID != viewerID {
		return nil, fmt.Errorf("%w: you do not have access to this item", models.ErrForbidden)
	}
	return item, nil
}

// ownedItem loads the item and verifies ownership. A foreign item is
// reported as missing, not as forbidden, so probing cannot reveal it.
func (s *ItemService) ownedItem(ctx context.Context, itemID, actorID int64) (*models.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != actorID {
		return nil, fmt.Errorf("%w: item %d", models.ErrNotFound, itemID)
	}
	return item, nil
}

func defaultString(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

func applyIfSet(dst *string, val string) {
	if strings.TrimSpace(val) != "" {
		*dst = val
	}
}

func validOfferKind(kind string) bool {
	switch kind {
	case models.OfferKindMoney, models.OfferKindSwap, models.OfferKindBoth:
		return true
	}
	return false
}

func validReason(reason string) bool {
	switch reason {
	case models.ReasonSold, models.ReasonSwapped, models.ReasonOther:
		return true
	}
	return false
}
