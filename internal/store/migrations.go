package store

import (
	"context"
	"fmt"
)

// schema is applied idempotently at startup; there is no separate
// migration tool in this deployment.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		photo TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'Misc',
		condition TEXT NOT NULL DEFAULT 'Good',
		description TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'private',
		offer_policy TEXT NOT NULL DEFAULT 'both',
		available BOOLEAN NOT NULL DEFAULT TRUE,
		unavailable_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_owner ON items (owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_feed ON items (status, available)`,
	`CREATE TABLE IF NOT EXISTS offers (
		id BIGSERIAL PRIMARY KEY,
		listing_id BIGINT NOT NULL,
		seller_id BIGINT NOT NULL,
		buyer_id BIGINT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'money',
		amount BIGINT NOT NULL DEFAULT 0,
		collateral_item_id BIGINT,
		swap_title TEXT NOT NULL DEFAULT '',
		swap_category TEXT NOT NULL DEFAULT '',
		swap_condition TEXT NOT NULL DEFAULT '',
		swap_description TEXT NOT NULL DEFAULT '',
		swap_image TEXT NOT NULL DEFAULT '',
		offered_for TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Pending',
		note TEXT NOT NULL DEFAULT '',
		listing_title TEXT NOT NULL DEFAULT '',
		listing_owner_handle TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_listing_status ON offers (listing_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_buyer ON offers (buyer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_seller ON offers (seller_id)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_collateral ON offers (collateral_item_id)`,
	`CREATE TABLE IF NOT EXISTS chats (
		id BIGSERIAL PRIMARY KEY,
		user_a_id BIGINT NOT NULL,
		user_b_id BIGINT NOT NULL,
		last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_a_id, user_b_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		chat_id BIGINT NOT NULL,
		sender_id BIGINT NOT NULL,
		body TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id, sent_at)`,
}

// Bootstrap creates the schema if it does not exist
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
