package chat

import (
	"context"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Conversation, int, error)
	Touch(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*Message, error)
}
