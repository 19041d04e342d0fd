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

// NotificationService is the notification sink: an append-only messaging
// channel between two users. Trade notifications land in the same
// conversation as ordinary messages.
type NotificationService struct {
	chats  ChatRepository
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(chats ChatRepository) *NotificationService {
	return &NotificationService{
		chats:  chats,
		logger: util.GetLogger(),
	}
}

// Deliver appends one notification to the conversation between its two
// users, creating the chat on first contact
func (ns *NotificationService) Deliver(ctx context.Context, n models.Notification) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.Deliver")
	defer span.End()

	if n.FromUserID == 0 || n.ToUserID == 0 {
		return fmt.Errorf("%w: notification requires both participants", models.ErrValidation)
	}

	chat, err := ns.chats.GetOrCreate(ctx, n.FromUserID, n.ToUserID)
	if err != nil {
		return fmt.Errorf("failed to resolve chat: %w", err)
	}

	msg := &models.Message{
		ChatID:   chat.ID,
		SenderID: n.FromUserID,
		Body:     n.Text,
		SentAt:   time.Now(),
	}
	if err := ns.chats.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

// DeliverAll appends a notification batch. Delivery is best-effort:
// individual failures are logged and the rest of the batch proceeds.
func (ns *NotificationService) DeliverAll(ctx context.Context, notifications []models.Notification) {
	for _, n := range notifications {
		if err := ns.Deliver(ctx, n); err != nil {
			util.NotificationsFailedTotal.Inc()
			ns.logger.Error("Failed to deliver notification",
				zap.Int64("to_user_id", n.ToUserID),
				zap.Error(err))
		}
	}
}

// Chats returns the actor's conversations, most recently active first
func (ns *NotificationService) Chats(ctx context.Context, actorID int64) ([]models.Chat, error) {
	return ns.chats.ByUser(ctx, actorID)
}

// Messages returns a conversation's messages, oldest first; participants
// only
func (ns *NotificationService) Messages(ctx context.Context, chatID, actorID int64) (*models.Chat, []models.Message, error) {
	chat, err := ns.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	if !chat.Involves(actorID) {
		return nil, nil, fmt.Errorf("%w: you are not part of this chat", models.ErrForbidden)
	}
	messages, err := ns.chats.Messages(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	return chat, messages, nil
}

// Send appends a user-authored message to an existing conversation
func (ns *NotificationService) Send(ctx context.Context, chatID, actorID int64, body string) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: message body is required", models.ErrValidation)
	}

	chat, err := ns.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.Involves(actorID) {
		return nil, fmt.Errorf("%w: you are not part of this chat", models.ErrForbidden)
	}

	msg := &models.Message{
		ChatID:   chat.ID,
		SenderID: actorID,
		Body:     body,
		SentAt:   time.Now(),
	}
	if err := ns.chats.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return msg, nil
}

// LastMessage returns the newest message in a chat, nil when empty
func (ns *NotificationService) LastMessage(ctx context.Context, chatID int64) (*models.Message, error) {
	return ns.chats.LastMessage(ctx, chatID)
}
