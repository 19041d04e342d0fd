package service

import (
	"context"

	"trade-service/internal/models"
)

// ListingView is the flattened item returned outward: the stored entity
// combined with the resolved owner profile and the viewer-relative
// isMine flag. Pure projection, no side effects.
type ListingView struct {
	ID                int64   `json:"id"`
	Owner             string  `json:"owner"`
	OwnerName         string  `json:"owner_name"`
	OwnerPhoto        string  `json:"owner_photo"`
	Title             string  `json:"title"`
	Category          string  `json:"category"`
	Condition         string  `json:"condition"`
	Description       string  `json:"description"`
	Image             string  `json:"image"`
	Status            string  `json:"status"`
	OfferPolicy       string  `json:"offer_policy"`
	Available         bool    `json:"available"`
	UnavailableReason *string `json:"unavailable_reason,omitempty"`
	IsMine            bool    `json:"is_mine"`
}

// OfferView is the flattened offer: stored fields, snapshots, and both
// resolved parties
type OfferView struct {
	ID               int64                    `json:"id"`
	ListingID        int64                    `json:"listing_id"`
	ListingTitle     string                   `json:"listing_title"`
	SellerHandle     string                   `json:"seller_handle"`
	Buyer            *Profile                 `json:"buyer,omitempty"`
	Seller           *Profile                 `json:"seller,omitempty"`
	Kind             string                   `json:"kind"`
	Amount           int64                    `json:"amount"`
	CollateralItemID *int64                   `json:"collateral_item_id,omitempty"`
	Swap             *models.SwapItemSnapshot `json:"swap_item_snapshot,omitempty"`
	OfferedFor       string                   `json:"offered_for"`
	Status           string                   `json:"status"`
	Note             string                   `json:"note"`
	CreatedAt        string                   `json:"created_at"`
	IsMine           bool                     `json:"is_mine"`
}

// ChatView is a conversation with the other participant resolved and the
// latest message inlined
type ChatView struct {
	ID            int64    `json:"id"`
	Participant   *Profile `json:"participant,omitempty"`
	LastMessage   string   `json:"last_message"`
	LastMessageAt string   `json:"last_message_at"`
}

// ViewBuilder assembles outward projections, enriching entities with
// resolved profiles. Missing profiles render blank, never fail.
type ViewBuilder struct {
	identity      *IdentityClient
	notifications *NotificationService
}

// NewViewBuilder creates a view builder
func NewViewBuilder(identity *IdentityClient, notifications *NotificationService) *ViewBuilder {
	return &ViewBuilder{identity: identity, notifications: notifications}
}

// Listing builds the flattened listing for a viewer
func (vb *ViewBuilder) Listing(ctx context.Context, item *models.Item, viewerID int64) *ListingView {
	view := &ListingView{
		ID:                item.ID,
		Title:             item.Title,
		Category:          item.Category,
		Condition:         item.Condition,
		Description:       item.Description,
		Image:             item.Image,
		Status:            item.Status,
		OfferPolicy:       item.OfferPolicy,
		Available:         item.Available,
		UnavailableReason: item.UnavailableReason,
		IsMine:            viewerID != 0 && item.OwnerID == viewerID,
	}
	if owner, err := vb.identity.Resolve(ctx, item.OwnerID); err == nil && owner != nil {
		view.Owner = owner.Username
		view.OwnerName = owner.Name
		view.OwnerPhoto = owner.Photo
	}
	return view
}

// Listings builds a feed page
func (vb *ViewBuilder) Listings(ctx context.Context, items []models.Item, viewerID int64) []*ListingView {
	views := make([]*ListingView, 0, len(items))
	for i := range items {
		views = append(views, vb.Listing(ctx, &items[i], viewerID))
	}
	return views
}

// Offer builds the flattened offer for a viewer
func (vb *ViewBuilder) Offer(ctx context.Context, offer *models.Offer, viewerID int64) *OfferView {
	view := &OfferView{
		ID:               offer.ID,
		ListingID:        offer.ListingID,
		ListingTitle:     offer.ListingTitle,
		SellerHandle:     offer.ListingOwnerHandle,
		Kind:             offer.Kind,
		Amount:           offer.Amount,
		CollateralItemID: offer.CollateralItemID,
		OfferedFor:       offer.OfferedFor,
		Status:           offer.Status,
		Note:             offer.Note,
		CreatedAt:        offer.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		IsMine:           viewerID != 0 && offer.BuyerID == viewerID,
	}
	if offer.CollateralItemID != nil {
		swap := offer.SwapItemSnapshot
		view.Swap = &swap
	}
	if buyer, err := vb.identity.Resolve(ctx, offer.BuyerID); err == nil {
		view.Buyer = buyer
	}
	if seller, err := vb.identity.Resolve(ctx, offer.SellerID); err == nil {
		view.Seller = seller
	}
	return view
}

// Offers builds a list page
func (vb *ViewBuilder) Offers(ctx context.Context, offers []models.Offer, viewerID int64) []*OfferView {
	views := make([]*OfferView, 0, len(offers))
	for i := range offers {
		views = append(views, vb.Offer(ctx, &offers[i], viewerID))
	}
	return views
}

// Chats builds the conversation list for a viewer
func (vb *ViewBuilder) Chats(ctx context.Context, chats []models.Chat, viewerID int64) []*ChatView {
	views := make([]*ChatView, 0, len(chats))
	for i := range chats {
		chat := &chats[i]
		view := &ChatView{
			ID:            chat.ID,
			LastMessageAt: chat.LastMessageAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		if other, err := vb.identity.Resolve(ctx, chat.Other(viewerID)); err == nil {
			view.Participant = other
		}
		if vb.notifications != nil {
			if last, err := vb.notifications.LastMessage(ctx, chat.ID); err == nil && last != nil {
				view.LastMessage = last.Body
			}
		}
		views = append(views, view)
	}
	return views
}
