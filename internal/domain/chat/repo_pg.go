package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Conversation Repository ===========

type conversationRepoPG struct{ pool *pgxpool.Pool }

func NewConversationRepoPG(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepoPG{pool: pool}
}

const convCols = `id, user_id, patient_id, title, created_at, updated_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.PatientID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *conversationRepoPG) Create(ctx context.Context, c *Conversation) error {
	c.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversations (id, user_id, patient_id, title)
		VALUES ($1,$2,$3,$4)`,
		c.ID, c.UserID, c.PatientID, c.Title)
	return err
}

func (r *conversationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	return scanConversation(r.pool.QueryRow(ctx, `SELECT `+convCols+` FROM conversations WHERE id = $1`, id))
}

func (r *conversationRepoPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Conversation, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+convCols+` FROM conversations
		WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

func (r *conversationRepoPG) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE conversations SET updated_at=NOW() WHERE id = $1`, id)
	return err
}

func (r *conversationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	return err
}

// =========== Message Repository ===========

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

func (r *messageRepoPG) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content)
		VALUES ($1,$2,$3,$4)`,
		m.ID, m.ConversationID, m.Role, m.Content)
	return err
}

func (r *messageRepoPG) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, nil
}
