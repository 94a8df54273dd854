package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation maps to the conversations table.
type Conversation struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	PatientID *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Title     string     `db:"title" json:"title"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Message maps to the messages table. Role is one of the gateway roles:
// system, user, assistant or tool.
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	Role           string    `db:"role" json:"role"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// titleLimit caps conversation titles derived from the first user message.
const titleLimit = 50

// TitleFromMessage derives a conversation title from the first user message.
func TitleFromMessage(content string) string {
	title := strings.TrimSpace(content)
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return "New conversation"
	}
	if len(title) > titleLimit {
		title = strings.TrimSpace(title[:titleLimit])
	}
	return title
}
