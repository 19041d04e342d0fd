package models

import "time"

// Event types
const (
	EventTypeOfferCreated  = "OFFER_CREATED"
	EventTypeOfferAccepted = "OFFER_ACCEPTED"
	EventTypeOfferRejected = "OFFER_REJECTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification is a system-authored chat message to be appended to the
// conversation between the two users. Delivery is best-effort: a failed
// append never rolls back the trade transition that produced it.
type Notification struct {
	FromUserID int64  `json:"from_user_id"`
	ToUserID   int64  `json:"to_user_id"`
	Text       string `json:"text"`
}

// OfferCreatedEvent published when a buyer makes an offer
type OfferCreatedEvent struct {
	BaseEvent
	OfferID       int64          `json:"offer_id"`
	ListingID     int64          `json:"listing_id"`
	BuyerID       int64          `json:"buyer_id"`
	SellerID      int64          `json:"seller_id"`
	OfferedFor    string         `json:"offered_for"`
	Notifications []Notification `json:"notifications"`
}

// OfferAcceptedEvent published when a seller accepts an offer. Carries the
// rejection notices for every competing offer swept by the cascade.
type OfferAcceptedEvent struct {
	BaseEvent
	OfferID          int64          `json:"offer_id"`
	ListingID        int64          `json:"listing_id"`
	BuyerID          int64          `json:"buyer_id"`
	SellerID         int64          `json:"seller_id"`
	RejectedOfferIDs []int64        `json:"rejected_offer_ids"`
	Notifications    []Notification `json:"notifications"`
}

// OfferRejectedEvent published when a seller rejects a single offer
type OfferRejectedEvent struct {
	BaseEvent
	OfferID       int64          `json:"offer_id"`
	ListingID     int64          `json:"listing_id"`
	BuyerID       int64          `json:"buyer_id"`
	SellerID      int64          `json:"seller_id"`
	Notifications []Notification `json:"notifications"`
}
