package postgres

import (
	"database/sql"
	"fmt"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
)

type MessageRepo struct {
	DB *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{DB: db}
}

// CreateMessage inserts one chat message and returns it with timestamps filled
func (r *MessageRepo) CreateMessage(id, ideaID, role, content string) (*domain.ChatMessage, error) {
	query := `
	INSERT INTO chat_messages (id, idea_id, role, content)
	VALUES ($1, $2, $3, $4)
	RETURNING id, idea_id, role, content, created_at;
	`
	var msg domain.ChatMessage
	err := r.DB.QueryRow(query, id, ideaID, role, content).Scan(
		&msg.ID,
		&msg.IdeaID,
		&msg.Role,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %v", err)
	}
	return &msg, nil
}

// ListMessagesByIdea returns an idea's chat history in chronological order
func (r *MessageRepo) ListMessagesByIdea(ideaID string, limit int) ([]domain.ChatMessage, error) {
	query := `
	SELECT id, idea_id, role, content, created_at
	FROM chat_messages
	WHERE idea_id = $1
	ORDER BY created_at ASC
	LIMIT $2;
	`
	rows, err := r.DB.Query(query, ideaID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %v", err)
	}
	defer rows.Close()

	messages := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.IdeaID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %v", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %v", err)
	}

	return messages, nil
}
