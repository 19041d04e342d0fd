package service

import (
	"context"
	"fmt"
	"time"

	"trade-service/internal/models"
	"trade-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OfferService is the offer engine: it validates and creates offers,
// drives the Pending -> {Accepted, Rejected, Canceled} state machine, and
// owns the cascade rules that keep the item and offer collections
// mutually consistent.
type OfferService struct {
	offers    OfferRepository
	items     ItemRepository
	users     UserRepository
	itemSvc   *ItemService
	locks     Locker
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOfferService creates a new offer engine
func NewOfferService(
	offers OfferRepository,
	items ItemRepository,
	users UserRepository,
	itemSvc *ItemService,
	locks Locker,
	publisher EventPublisher,
) *OfferService {
	return &OfferService{
		offers:    offers,
		items:     items,
		users:     users,
		itemSvc:   itemSvc,
		locks:     locks,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateOfferRequest represents a buyer's proposal on a listing
type CreateOfferRequest struct {
	ListingID        int64  `json:"listing_id" binding:"required"`
	Kind             string `json:"kind"`
	Amount           int64  `json:"amount"`
	CollateralItemID *int64 `json:"collateral_item_id,omitempty"`
	Note             string `json:"note"`
}

// CreateOfferResult carries the created offer and the notification batch
// to dispatch after commit
type CreateOfferResult struct {
	Offer         *models.Offer
	Notifications []models.Notification
}

// AcceptOfferResult carries everything the accept cascade changed
type AcceptOfferResult struct {
	Offer          *models.Offer
	Listing        *models.Item
	RejectedOffers []models.Offer
	Notifications  []models.Notification
}

// RejectOfferResult carries the rejected offer and its notification
type RejectOfferResult struct {
	Offer         *models.Offer
	Notifications []models.Notification
}

// Create validates and persists a new Pending offer. Any prior Pending
// offer from the same buyer on the same listing is silently superseded,
// so at most one exists per (buyer, listing) pair.
func (s *OfferService) Create(ctx context.Context, buyerID int64, req *CreateOfferRequest) (*CreateOfferResult, error) {
	ctx, span := util.StartSpan(ctx, "OfferService.Create")
	defer span.End()

	kind := req.Kind
	if kind == "" {
		kind = models.OfferKindMoney
	}
	if !validOfferKind(kind) {
		return nil, fmt.Errorf("%w: unknown offer kind %q", models.ErrValidation, kind)
	}
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", models.ErrValidation)
	}

	listing, err := s.items.GetByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.Listed() || !listing.Available {
		return nil, fmt.Errorf("%w: listing not available", models.ErrConflict)
	}
	if listing.OwnerID == buyerID {
		return nil, fmt.Errorf("%w: cannot make an offer on your own listing", models.ErrValidation)
	}
	if !kindAllowedByPolicy(kind, listing.OfferPolicy) {
		return nil, fmt.Errorf("%w: listing does not accept %s offers", models.ErrConflict, kind)
	}

	var collateral *models.Item
	if kind == models.OfferKindSwap || kind == models.OfferKindBoth {
		if req.CollateralItemID == nil {
			return nil, fmt.Errorf("%w: a swap offer requires a swap item", models.ErrValidation)
		}
	}
	if req.CollateralItemID != nil {
		collateral, err = s.items.GetByID(ctx, *req.CollateralItemID)
		if err != nil || collateral.OwnerID != buyerID {
			return nil, fmt.Errorf("%w: you do not own the swap item", models.ErrValidation)
		}
		if !collateral.Available {
			return nil, fmt.Errorf("%w: swap item not available", models.ErrConflict)
		}
	}

	unlock, err := s.locks.Lock(ctx, itemKey(listing.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock listing: %w", err)
	}
	defer unlock()

	// Re-read under the lock: a racing accept or unlist may have
	// resolved the listing since the checks above.
	listing, err = s.items.GetByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.Listed() || !listing.Available {
		return nil, fmt.Errorf("%w: listing not available", models.ErrConflict)
	}
	if !kindAllowedByPolicy(kind, listing.OfferPolicy) {
		return nil, fmt.Errorf("%w: listing does not accept %s offers", models.ErrConflict, kind)
	}

	superseded, err := s.offers.DeletePendingByBuyerAndListing(ctx, buyerID, listing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to supersede prior offer: %w", err)
	}
	util.OffersSupersededTotal.Add(float64(superseded))

	owner, _ := s.users.GetByID(ctx, listing.OwnerID)

	offer := &models.Offer{
		ListingID:          listing.ID,
		SellerID:           listing.OwnerID,
		BuyerID:            buyerID,
		Kind:               kind,
		Amount:             req.Amount,
		CollateralItemID:   req.CollateralItemID,
		Status:             models.OfferStatusPending,
		Note:               req.Note,
		ListingTitle:       listing.Title,
		ListingOwnerHandle: handleOf(owner),
	}
	if collateral != nil {
		offer.SwapItemSnapshot = models.SwapItemSnapshot{
			Title:       collateral.Title,
			Category:    collateral.Category,
			Condition:   collateral.Condition,
			Description: collateral.Description,
			Image:       collateral.Image,
		}
	}
	offer.OfferedFor = formatOfferedFor(offer)

	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	util.OffersCreatedTotal.Inc()

	notifications := []models.Notification{{
		FromUserID: buyerID,
		ToUserID:   listing.OwnerID,
		Text: fmt.Sprintf("%s made an offer (%s) for your item %q.",
			s.displayName(ctx, buyerID), offer.OfferedFor, listing.Title),
	}}

	s.publishOfferCreated(ctx, offer, notifications)
	s.logger.Info("Offer created",
		zap.Int64("offer_id", offer.ID),
		zap.Int64("listing_id", listing.ID),
		zap.Int64("buyer_id", buyerID),
		zap.Int64("superseded", superseded))

	return &CreateOfferResult{Offer: offer, Notifications: notifications}, nil
}

// Accept moves a Pending offer to Accepted and runs the full cascade:
// the target item becomes unavailable, every competing Pending offer on
// it is rejected, and a promised swap item is locked and pulled out of
// all other negotiations.
func (s *OfferService) Accept(ctx context.Context, offerID, actorID int64, reason string) (*AcceptOfferResult, error) {
	ctx, span := util.StartSpan(ctx, "OfferService.Accept")
	defer span.End()

	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.SellerID != actorID {
		return nil, fmt.Errorf("%w: cannot accept this offer", models.ErrForbidden)
	}
	if offer.Terminal() {
		return nil, fmt.Errorf("%w: only pending offers can be accepted", models.ErrConflict)
	}

	if reason == "" {
		reason = models.ReasonSold
	}
	if !validReason(reason) {
		return nil, fmt.Errorf("%w: unknown unavailable reason %q", models.ErrValidation, reason)
	}

	keys := []string{itemKey(offer.ListingID)}
	if offer.CollateralItemID != nil {
		keys = append(keys, itemKey(*offer.CollateralItemID))
	}
	unlock, err := s.locks.Lock(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock items: %w", err)
	}
	defer unlock()

	// Re-read under the lock: a racing Accept may have resolved it.
	offer, err = s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Terminal() {
		return nil, fmt.Errorf("%w: only pending offers can be accepted", models.ErrConflict)
	}

	listing, err := s.items.GetByID(ctx, offer.ListingID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing no longer exists", models.ErrConflict)
	}

	start := time.Now()
	defer func() {
		util.CascadeLatency.Observe(time.Since(start).Seconds())
	}()

	// Accepted before the sweep so the availability cascade cannot
	// reject the winning offer.
	if err := s.offers.UpdateStatus(ctx, offer.ID, models.OfferStatusAccepted); err != nil {
		return nil, fmt.Errorf("failed to accept offer: %w", err)
	}
	offer.Status = models.OfferStatusAccepted

	rejected, _, err := s.itemSvc.applyAvailability(ctx, listing, false, reason, offer.ID)
	if err != nil {
		return nil, err
	}

	// Guard sweep: reject anything still Pending on this listing.
	more, err := rejectPendingTargeting(ctx, s.offers, listing.ID, offer.ID)
	if err != nil {
		return nil, err
	}
	rejected = append(rejected, more...)

	if offer.CollateralItemID != nil {
		swapItem, err := s.items.GetByID(ctx, *offer.CollateralItemID)
		if err == nil {
			swapRejected, _, err := s.itemSvc.applyAvailability(ctx, swapItem, false, models.ReasonSwapped, offer.ID)
			if err != nil {
				return nil, err
			}
			rejected = append(rejected, swapRejected...)
		} else if _, err := deletePendingCollateral(ctx, s.offers, *offer.CollateralItemID, offer.ID); err != nil {
			return nil, err
		}
	}

	util.OffersAcceptedTotal.Inc()

	actorName := s.displayName(ctx, actorID)
	notifications := []models.Notification{{
		FromUserID: actorID,
		ToUserID:   offer.BuyerID,
		Text: fmt.Sprintf("%s accepted your offer (%s) for item %q.",
			actorName, offer.OfferedFor, listing.Title),
	}}
	for _, r := range rejected {
		// Each rejection names the item the offer actually targeted;
		// the collateral sweep rejects offers on a different listing.
		notifications = append(notifications, models.Notification{
			FromUserID: actorID,
			ToUserID:   r.BuyerID,
			Text: fmt.Sprintf("%s rejected your offer (%s) for item %q.",
				actorName, r.OfferedFor, r.ListingTitle),
		})
	}

	s.publishOfferAccepted(ctx, offer, rejected, notifications)
	s.logger.Info("Offer accepted",
		zap.Int64("offer_id", offer.ID),
		zap.Int64("listing_id", listing.ID),
		zap.Int("rejected", len(rejected)))

	return &AcceptOfferResult{
		Offer:          offer,
		Listing:        listing,
		RejectedOffers: rejected,
		Notifications:  notifications,
	}, nil
}

// Reject moves a Pending offer to Rejected; seller only, no cascade
func (s *OfferService) Reject(ctx context.Context, offerID, actorID int64) (*RejectOfferResult, error) {
	ctx, span := util.StartSpan(ctx, "OfferService.Reject")
	defer span.End()

	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.SellerID != actorID {
		return nil, fmt.Errorf("%w: cannot reject this offer", models.ErrForbidden)
	}
	if offer.Terminal() {
		return nil, fmt.Errorf("%w: only pending offers can be rejected", models.ErrConflict)
	}

	if err := s.offers.UpdateStatus(ctx, offer.ID, models.OfferStatusRejected); err != nil {
		return nil, fmt.Errorf("failed to reject offer: %w", err)
	}
	offer.Status = models.OfferStatusRejected
	util.OffersRejectedTotal.WithLabelValues("seller").Inc()

	notifications := []models.Notification{{
		FromUserID: actorID,
		ToUserID:   offer.BuyerID,
		Text: fmt.Sprintf("%s rejected your offer (%s) for item %q.",
			s.displayName(ctx, actorID), offer.OfferedFor, offer.ListingTitle),
	}}

	s.publishOfferRejected(ctx, offer, notifications)
	return &RejectOfferResult{Offer: offer, Notifications: notifications}, nil
}

// Cancel is the buyer's withdrawal of their own Pending offer. No
// cascade and no notification; the offer simply leaves the seller's
// incoming queue.
func (s *OfferService) Cancel(ctx context.Context, offerID, actorID int64) (*models.Offer, error) {
	ctx, span := util.StartSpan(ctx, "OfferService.Cancel")
	defer span.End()

	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID != actorID {
		return nil, fmt.Errorf("%w: cannot cancel this offer", models.ErrForbidden)
	}
	if offer.Terminal() {
		return nil, fmt.Errorf("%w: only pending offers can be cancelled", models.ErrConflict)
	}

	if err := s.offers.UpdateStatus(ctx, offer.ID, models.OfferStatusCanceled); err != nil {
		return nil, fmt.Errorf("failed to cancel offer: %w", err)
	}
	offer.Status = models.OfferStatusCanceled
	util.OffersCancelledTotal.Inc()
	return offer, nil
}

// Delete removes an offer from the buyer's history. It is a record
// deletion, not a state transition; ownership is the only restriction.
func (s *OfferService) Delete(ctx context.Context, offerID, actorID int64) error {
	ctx, span := util.StartSpan(ctx, "OfferService.Delete")
	defer span.End()

	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.BuyerID != actorID {
		return fmt.Errorf("%w: cannot delete this offer", models.ErrForbidden)
	}
	return s.offers.Delete(ctx, offer.ID)
}

// Incoming returns the offers where the actor is the seller
func (s *OfferService) Incoming(ctx context.Context, actorID int64) ([]models.Offer, error) {
	return s.offers.BySeller(ctx, actorID)
}

// Outgoing returns the offers where the actor is the buyer
func (s *OfferService) Outgoing(ctx context.Context, actorID int64) ([]models.Offer, error) {
	return s.offers.ByBuyer(ctx, actorID)
}

// Get returns one offer; only its buyer or seller may see it
func (s *OfferService) Get(ctx context.Context, offerID, actorID int64) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID != actorID && offer.SellerID != actorID {
		return nil, fmt.Errorf("%w: you do not have access to this offer", models.ErrForbidden)
	}
	return offer, nil
}

// ByListing returns every offer on a listing; owner only
func (s *OfferService) ByListing(ctx context.Context, listingID, actorID int64) ([]models.Offer, error) {
	listing, err := s.items.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != actorID {
		return nil, fmt.Errorf("%w: you do not have access to this item", models.ErrForbidden)
	}
	return s.offers.ByListing(ctx, listingID)
}

func (s *OfferService) publishOfferCreated(ctx context.Context, offer *models.Offer, notifications []models.Notification) {
	if s.publisher == nil {
		return
	}
	event := &models.OfferCreatedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOfferCreated),
		OfferID:       offer.ID,
		ListingID:     offer.ListingID,
		BuyerID:       offer.BuyerID,
		SellerID:      offer.SellerID,
		OfferedFor:    offer.OfferedFor,
		Notifications: notifications,
	}
	if err := s.publisher.PublishOfferCreated(ctx, event); err != nil {
		util.NotificationsFailedTotal.Inc()
		s.logger.Error("Failed to publish OfferCreated event", zap.Error(err))
		return
	}
	util.NotificationsPublishedTotal.Add(float64(len(notifications)))
}

func (s *OfferService) publishOfferAccepted(ctx context.Context, offer *models.Offer, rejected []models.Offer, notifications []models.Notification) {
	if s.publisher == nil {
		return
	}
	rejectedIDs := make([]int64, len(rejected))
	for i, r := range rejected {
		rejectedIDs[i] = r.ID
	}
	event := &models.OfferAcceptedEvent{
		BaseEvent:        newBaseEvent(models.EventTypeOfferAccepted),
		OfferID:          offer.ID,
		ListingID:        offer.ListingID,
		BuyerID:          offer.BuyerID,
		SellerID:         offer.SellerID,
		RejectedOfferIDs: rejectedIDs,
		Notifications:    notifications,
	}
	if err := s.publisher.PublishOfferAccepted(ctx, event); err != nil {
		util.NotificationsFailedTotal.Inc()
		s.logger.Error("Failed to publish OfferAccepted event", zap.Error(err))
		return
	}
	util.NotificationsPublishedTotal.Add(float64(len(notifications)))
}

func (s *OfferService) publishOfferRejected(ctx context.Context, offer *models.Offer, notifications []models.Notification) {
	if s.publisher == nil {
		return
	}
	event := &models.OfferRejectedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOfferRejected),
		OfferID:       offer.ID,
		ListingID:     offer.ListingID,
		BuyerID:       offer.BuyerID,
		SellerID:      offer.SellerID,
		Notifications: notifications,
	}
	if err := s.publisher.PublishOfferRejected(ctx, event); err != nil {
		util.NotificationsFailedTotal.Inc()
		s.logger.Error("Failed to publish OfferRejected event", zap.Error(err))
		return
	}
	util.NotificationsPublishedTotal.Add(float64(len(notifications)))
}

// displayName resolves the user's display name; a missing record renders
// blank rather than failing the surrounding operation
func (s *OfferService) displayName(ctx context.Context, userID int64) string {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Name
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func handleOf(user *models.User) string {
	if user == nil {
		return ""
	}
	return user.Username
}

// kindAllowedByPolicy checks offer kind against the listing's policy. A
// combined offer dangles a swap item, so it needs the policy that allows
// both components.
func kindAllowedByPolicy(kind, policy string) bool {
	switch kind {
	case models.OfferKindMoney:
		return policy == models.OfferKindMoney || policy == models.OfferKindBoth
	case models.OfferKindSwap:
		return policy == models.OfferKindSwap || policy == models.OfferKindBoth
	case models.OfferKindBoth:
		return policy == models.OfferKindBoth
	}
	return false
}

// formatOfferedFor derives the human-readable summary used in
// notifications: "$40", "Old Guitar", or "Old Guitar + $15"
func formatOfferedFor(offer *models.Offer) string {
	switch offer.Kind {
	case models.OfferKindMoney:
		return fmt.Sprintf("$%d", offer.Amount)
	case models.OfferKindSwap:
		if offer.SwapItemSnapshot.Title != "" {
			return offer.SwapItemSnapshot.Title
		}
		return "swap item"
	case models.OfferKindBoth:
		title := offer.SwapItemSnapshot.Title
		if title == "" {
			title = "swap item"
		}
		return fmt.Sprintf("%s + $%d", title, offer.Amount)
	}
	return "your offer"
}
