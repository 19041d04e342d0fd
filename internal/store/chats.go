package store

import (
	"context"
	"database/sql"
	"fmt"

	"trade-service/internal/models"
)

// ChatStore implements service.ChatRepository on Postgres
type ChatStore struct {
	store *Store
}

// NewChatStore creates a chat repository over the store
func NewChatStore(store *Store) *ChatStore {
	return &ChatStore{store: store}
}

// GetOrCreate returns the conversation for a user pair, creating it on
// first contact. The pair is stored smaller-ID-first so each pair maps
// to one row.
func (s *ChatStore) GetOrCreate(ctx context.Context, userA, userB int64) (*models.Chat, error) {
	if userA > userB {
		userA, userB = userB, userA
	}

	var chat models.Chat
	err := s.store.db.GetContext(ctx, &chat,
		"SELECT * FROM chats WHERE user_a_id = $1 AND user_b_id = $2", userA, userB)
	if err == nil {
		return &chat, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	query := `
		INSERT INTO chats (user_a_id, user_b_id)
		VALUES ($1, $2)
		ON CONFLICT (user_a_id, user_b_id) DO UPDATE SET user_a_id = EXCLUDED.user_a_id
		RETURNING id, user_a_id, user_b_id, last_message_at, created_at`

	err = s.store.db.GetContext(ctx, &chat, query, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return &chat, nil
}

// GetByID retrieves a chat by ID
func (s *ChatStore) GetByID(ctx context.Context, id int64) (*models.Chat, error) {
	var chat models.Chat
	err := s.store.db.GetContext(ctx, &chat, "SELECT * FROM chats WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: chat %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ByUser retrieves a user's chats, most recently active first
func (s *ChatStore) ByUser(ctx context.Context, userID int64) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.store.db.SelectContext(ctx, &chats,
		"SELECT * FROM chats WHERE user_a_id = $1 OR user_b_id = $1 ORDER BY last_message_at DESC", userID)
	return chats, err
}

// AppendMessage inserts a message and bumps the chat's activity stamp
func (s *ChatStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (chat_id, sender_id, body, sent_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	if err := s.store.db.QueryRowxContext(ctx, query,
		msg.ChatID, msg.SenderID, msg.Body, msg.SentAt).Scan(&msg.ID); err != nil {
		return err
	}

	_, err := s.store.db.ExecContext(ctx,
		"UPDATE chats SET last_message_at = $1 WHERE id = $2", msg.SentAt, msg.ChatID)
	return err
}

// Messages retrieves a chat's messages, oldest first
func (s *ChatStore) Messages(ctx context.Context, chatID int64) ([]models.Message, error) {
	var messages []models.Message
	err := s.store.db.SelectContext(ctx, &messages,
		"SELECT * FROM messages WHERE chat_id = $1 ORDER BY sent_at ASC, id ASC", chatID)
	return messages, err
}

// LastMessage retrieves the newest message in a chat, nil when empty
func (s *ChatStore) LastMessage(ctx context.Context, chatID int64) (*models.Message, error) {
	var msg models.Message
	err := s.store.db.GetContext(ctx, &msg,
		"SELECT * FROM messages WHERE chat_id = $1 ORDER BY sent_at DESC, id DESC LIMIT 1", chatID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
