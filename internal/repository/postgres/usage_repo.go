package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
)

type UsageRepo struct {
	DB *sql.DB
}

func NewUsageRepo(db *sql.DB) *UsageRepo {
	return &UsageRepo{DB: db}
}

// IncrementReplies adds one consumed reply for the user on the given day and
// returns the new total. The upsert makes day rollover implicit: a new day
// simply starts a new row.
func (r *UsageRepo) IncrementReplies(userID int64, day time.Time) (int, error) {
	query := `
	INSERT INTO reply_usage (user_id, day, replies_used)
	VALUES ($1, $2, 1)
	ON CONFLICT (user_id, day)
	DO UPDATE SET replies_used = reply_usage.replies_used + 1
	RETURNING replies_used;
	`
	var used int
	err := r.DB.QueryRow(query, userID, day.UTC().Truncate(24*time.Hour)).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("failed to increment reply usage: %v", err)
	}
	return used, nil
}

// GetRepliesUsed returns how many replies the user consumed on the given day
func (r *UsageRepo) GetRepliesUsed(userID int64, day time.Time) (int, error) {
	query := `SELECT COALESCE(replies_used, 0) FROM reply_usage WHERE user_id = $1 AND day = $2;`
	var used int
	err := r.DB.QueryRow(query, userID, day.UTC().Truncate(24*time.Hour)).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get reply usage: %v", err)
	}
	return used, nil
}

// ResetUserUsage clears a user's reply counters, used on plan upgrade
func (r *UsageRepo) ResetUserUsage(userID int64) error {
	query := `DELETE FROM reply_usage WHERE user_id = $1;`
	_, err := r.DB.Exec(query, userID)
	if err != nil {
		return fmt.Errorf("failed to reset reply usage: %v", err)
	}
	return nil
}

// RecordTokenUsage stores per-exchange token accounting for cost reporting
func (r *UsageRepo) RecordTokenUsage(id string, userID int64, ideaID, model string, usage domain.Usage) error {
	query := `
	INSERT INTO token_usage (id, user_id, idea_id, model, prompt_tokens, completion_tokens, total_tokens)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.DB.Exec(query, id, userID, ideaID, model,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
	if err != nil {
		return fmt.Errorf("failed to record token usage: %v", err)
	}
	return nil
}

// CleanupOldUsage deletes usage rows older than the retention window
func (r *UsageRepo) CleanupOldUsage(olderThanDays int) (int64, error) {
	query := `
	DELETE FROM reply_usage
	WHERE day < NOW() - INTERVAL '1 day' * $1;
	`
	result, err := r.DB.Exec(query, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup reply usage: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %v", err)
	}

	return rowsAffected, nil
}
