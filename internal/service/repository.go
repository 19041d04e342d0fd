package service

import (
	"context"

	"trade-service/internal/models"
)

// ListingFilter narrows the public marketplace feed. Search is a plain
// substring match; there is no ranking or indexing behind it.
type ListingFilter struct {
	Search       string
	Category     string
	Condition    string
	OfferPolicy  string
	ExcludeOwner int64
}

// ItemRepository persists items. Implementations return
// models.ErrNotFound for missing rows.
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id int64) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id int64) error
	ByOwner(ctx context.Context, ownerID int64) ([]models.Item, error)
	SearchListings(ctx context.Context, filter ListingFilter) ([]models.Item, error)
}

// OfferRepository persists offers. List methods return newest-first,
// ties broken by insertion order.
type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	GetByID(ctx context.Context, id int64) (*models.Offer, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error

	// DeletePendingByBuyerAndListing removes any Pending offer the buyer
	// already holds on the listing (the supersede rule).
	DeletePendingByBuyerAndListing(ctx context.Context, buyerID, listingID int64) (int64, error)
	// DeleteByItem removes every offer, regardless of status, that
	// references the item as target or collateral.
	DeleteByItem(ctx context.Context, itemID int64) (int64, error)

	PendingByListing(ctx context.Context, listingID int64) ([]models.Offer, error)
	PendingByCollateral(ctx context.Context, itemID int64) ([]models.Offer, error)
	// HasActiveByItem reports whether any Pending or Accepted offer
	// references the item as target or collateral.
	HasActiveByItem(ctx context.Context, itemID int64) (bool, error)

	ByListing(ctx context.Context, listingID int64) ([]models.Offer, error)
	BySeller(ctx context.Context, sellerID int64) ([]models.Offer, error)
	ByBuyer(ctx context.Context, buyerID int64) ([]models.Offer, error)
}

// UserRepository persists accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// ChatRepository persists two-party conversations
type ChatRepository interface {
	GetOrCreate(ctx context.Context, userA, userB int64) (*models.Chat, error)
	GetByID(ctx context.Context, id int64) (*models.Chat, error)
	ByUser(ctx context.Context, userID int64) ([]models.Chat, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	Messages(ctx context.Context, chatID int64) ([]models.Message, error)
	LastMessage(ctx context.Context, chatID int64) (*models.Message, error)
}

// Locker serializes cascades per item. Every engine operation takes the
// lock over the target (and collateral) item keys before mutating the
// dependent-offer set, so two racing Accept calls cannot both succeed.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (func(), error)
}

// EventPublisher emits trade events after a state transition commits.
// Publishing is best-effort; failures are logged and swallowed.
type EventPublisher interface {
	PublishOfferCreated(ctx context.Context, event *models.OfferCreatedEvent) error
	PublishOfferAccepted(ctx context.Context, event *models.OfferAcceptedEvent) error
	PublishOfferRejected(ctx context.Context, event *models.OfferRejectedEvent) error
}
