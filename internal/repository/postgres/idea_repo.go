package postgres

import (
	"database/sql"
	"fmt"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
)

type IdeaRepo struct {
	DB *sql.DB
}

func NewIdeaRepo(db *sql.DB) *IdeaRepo {
	return &IdeaRepo{DB: db}
}

const ideaSelectFields = `id, user_id, title, COALESCE(description, '') as description, archived, created_at, updated_at`

func scanIdea(row interface{ Scan(dest ...any) error }) (*domain.Idea, error) {
	var idea domain.Idea
	err := row.Scan(
		&idea.ID,
		&idea.UserID,
		&idea.Title,
		&idea.Description,
		&idea.Archived,
		&idea.CreatedAt,
		&idea.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &idea, nil
}

// CreateIdea inserts a new idea and returns it
func (r *IdeaRepo) CreateIdea(id string, userID int64, title, description string) (*domain.Idea, error) {
	query := `
	INSERT INTO ideas (id, user_id, title, description)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + ideaSelectFields + `;
	`
	idea, err := scanIdea(r.DB.QueryRow(query, id, userID, title, description))
	if err != nil {
		return nil, fmt.Errorf("failed to create idea: %v", err)
	}
	return idea, nil
}

// GetIdeaByID retrieves a single idea
func (r *IdeaRepo) GetIdeaByID(id string) (*domain.Idea, error) {
	query := `SELECT ` + ideaSelectFields + ` FROM ideas WHERE id = $1;`
	idea, err := scanIdea(r.DB.QueryRow(query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get idea: %v", err)
	}
	return idea, nil
}

// ListIdeasByUser returns a user's ideas, newest first
func (r *IdeaRepo) ListIdeasByUser(userID int64, includeArchived bool) ([]domain.Idea, error) {
	query := `
	SELECT ` + ideaSelectFields + `
	FROM ideas
	WHERE user_id = $1 AND (archived = FALSE OR $2)
	ORDER BY updated_at DESC;
	`
	rows, err := r.DB.Query(query, userID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to query ideas: %v", err)
	}
	defer rows.Close()

	ideas := make([]domain.Idea, 0)
	for rows.Next() {
		var idea domain.Idea
		if err := rows.Scan(
			&idea.ID,
			&idea.UserID,
			&idea.Title,
			&idea.Description,
			&idea.Archived,
			&idea.CreatedAt,
			&idea.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan idea row: %v", err)
		}
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate idea rows: %v", err)
	}

	return ideas, nil
}

// CountIdeasByUser returns the number of non-archived ideas a user has
func (r *IdeaRepo) CountIdeasByUser(userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM ideas WHERE user_id = $1 AND archived = FALSE;`
	var count int
	if err := r.DB.QueryRow(query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ideas: %v", err)
	}
	return count, nil
}

// UpdateIdea updates title/description and bumps updated_at
func (r *IdeaRepo) UpdateIdea(id string, title, description string) error {
	query := `
	UPDATE ideas
	SET title = $2, description = $3, updated_at = CURRENT_TIMESTAMP
	WHERE id = $1;
	`
	_, err := r.DB.Exec(query, id, title, description)
	if err != nil {
		return fmt.Errorf("failed to update idea: %v", err)
	}
	return nil
}

// SetArchived toggles the archived flag
func (r *IdeaRepo) SetArchived(id string, archived bool) error {
	query := `UPDATE ideas SET archived = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1;`
	_, err := r.DB.Exec(query, id, archived)
	if err != nil {
		return fmt.Errorf("failed to archive idea: %v", err)
	}
	return nil
}

// DeleteIdea removes an idea and (via FK cascade) its chat history
func (r *IdeaRepo) DeleteIdea(id string) error {
	query := `DELETE FROM ideas WHERE id = $1;`
	_, err := r.DB.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete idea: %v", err)
	}
	return nil
}

// TouchIdea bumps updated_at so recently discussed ideas sort first
func (r *IdeaRepo) TouchIdea(id string) error {
	query := `UPDATE ideas SET updated_at = CURRENT_TIMESTAMP WHERE id = $1;`
	_, err := r.DB.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to touch idea: %v", err)
	}
	return nil
}
