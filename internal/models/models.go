package models

import "time"

// Listing states for Item.Status
const (
	ListingPublic  = "public"
	ListingPrivate = "private"
)

// Offer kinds; an item's OfferPolicy uses the same vocabulary
const (
	OfferKindMoney = "money"
	OfferKindSwap  = "swap"
	OfferKindBoth  = "both"
)

// Unavailable reasons
const (
	ReasonSold    = "sold"
	ReasonSwapped = "swapped"
	ReasonOther   = "other"
)

// Offer statuses; Pending is the only non-terminal state
const (
	OfferStatusPending  = "Pending"
	OfferStatusAccepted = "Accepted"
	OfferStatusRejected = "Rejected"
	OfferStatusCanceled = "Canceled"
)

// User represents a marketplace account
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Photo        string    `db:"photo" json:"photo"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Item is a tradeable good owned by exactly one user. Status and
// Available together gate every offer operation that references it.
type Item struct {
	ID                int64     `db:"id" json:"id"`
	OwnerID           int64     `db:"owner_id" json:"owner_id"`
	Title             string    `db:"title" json:"title"`
	Category          string    `db:"category" json:"category"`
	Condition         string    `db:"condition" json:"condition"`
	Description       string    `db:"description" json:"description"`
	Image             string    `db:"image" json:"image"`
	Status            string    `db:"status" json:"status"`
	OfferPolicy       string    `db:"offer_policy" json:"offer_policy"`
	Available         bool      `db:"available" json:"available"`
	UnavailableReason *string   `db:"unavailable_reason" json:"unavailable_reason,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Listed reports whether the item is visible in the open marketplace feed.
func (i *Item) Listed() bool {
	return i.Status == ListingPublic
}

// SwapItemSnapshot is a point-in-time copy of the collateral item's
// descriptive fields, captured when the offer is created so the offer
// display survives later edits or deletion of the source item.
type SwapItemSnapshot struct {
	Title       string `db:"swap_title" json:"title"`
	Category    string `db:"swap_category" json:"category"`
	Condition   string `db:"swap_condition" json:"condition"`
	Description string `db:"swap_description" json:"description"`
	Image       string `db:"swap_image" json:"image"`
}

// Offer is a buyer's proposal on a listed item. ListingTitle and
// ListingOwnerHandle are snapshots taken at creation; they are never
// updated afterwards.
type Offer struct {
	ID                 int64     `db:"id" json:"id"`
	ListingID          int64     `db:"listing_id" json:"listing_id"`
	SellerID           int64     `db:"seller_id" json:"seller_id"`
	BuyerID            int64     `db:"buyer_id" json:"buyer_id"`
	Kind               string    `db:"kind" json:"kind"`
	Amount             int64     `db:"amount" json:"amount"`
	CollateralItemID   *int64    `db:"collateral_item_id" json:"collateral_item_id,omitempty"`
	SwapItemSnapshot   `json:"-"`
	OfferedFor         string    `db:"offered_for" json:"offered_for"`
	Status             string    `db:"status" json:"status"`
	Note               string    `db:"note" json:"note"`
	ListingTitle       string    `db:"listing_title" json:"listing_title"`
	ListingOwnerHandle string    `db:"listing_owner_handle" json:"listing_owner_handle"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the offer has reached a final state.
func (o *Offer) Terminal() bool {
	return o.Status != OfferStatusPending
}

// Chat is a two-party conversation. UserAID always holds the smaller of
// the two user IDs so each pair maps to exactly one chat row.
type Chat struct {
	ID            int64     `db:"id" json:"id"`
	UserAID       int64     `db:"user_a_id" json:"user_a_id"`
	UserBID       int64     `db:"user_b_id" json:"user_b_id"`
	LastMessageAt time.Time `db:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Involves reports whether the given user is one of the two participants.
func (c *Chat) Involves(userID int64) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Other returns the participant that is not the given user.
func (c *Chat) Other(userID int64) int64 {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// Message is one entry in a chat. Trade notifications are plain messages
// authored by the acting user.
type Message struct {
	ID       int64     `db:"id" json:"id"`
	ChatID   int64     `db:"chat_id" json:"chat_id"`
	SenderID int64     `db:"sender_id" json:"sender_id"`
	Body     string    `db:"body" json:"body"`
	SentAt   time.Time `db:"sent_at" json:"sent_at"`
}
