package repository

import (
	"context"

	"pixelcanvas/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m *domain.ChatMessage) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO chats (id, from_uid, from_name, text)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, m.ID, m.From, m.FromName, m.Text).Scan(&m.CreatedAt)
}

// RecentMessages returns the newest messages, oldest first.
func (r *ChatRepository) RecentMessages(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, from_uid, from_name, text, created_at
		FROM (
			SELECT * FROM chats ORDER BY created_at DESC LIMIT $1
		) recent
		ORDER BY created_at ASC
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.From, &m.FromName, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
