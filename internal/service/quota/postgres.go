package quota

import (
	"context"
	"time"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/internal/repository/postgres"
)

// PostgresStore counts consumed replies in the reply_usage table, one row per
// user per UTC day. Period rollover is implicit: a new day starts at zero.
type PostgresStore struct {
	repo *postgres.UsageRepo
	now  func() time.Time
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(repo *postgres.UsageRepo) *PostgresStore {
	return &PostgresStore{repo: repo, now: time.Now}
}

func (s *PostgresStore) Consume(_ context.Context, userID int64, plan domain.Plan) (int, error) {
	if plan.Unlimited() {
		return domain.Unbounded, nil
	}

	today := s.now().UTC()

	used, err := s.repo.GetRepliesUsed(userID, today)
	if err != nil {
		return 0, err
	}
	if used >= plan.RepliesPerDay {
		return 0, domain.ErrQuotaExceeded
	}

	used, err = s.repo.IncrementReplies(userID, today)
	if err != nil {
		return 0, err
	}

	remaining := plan.RepliesPerDay - used
	if remaining < 0 {
		// Concurrent sends can overshoot the check above; the booked usage
		// stands but the reported allowance floors at zero.
		remaining = 0
	}
	return remaining, nil
}

func (s *PostgresStore) Remaining(_ context.Context, userID int64, plan domain.Plan) (int, error) {
	if plan.Unlimited() {
		return domain.Unbounded, nil
	}

	used, err := s.repo.GetRepliesUsed(userID, s.now().UTC())
	if err != nil {
		return 0, err
	}

	remaining := plan.RepliesPerDay - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *PostgresStore) Reset(_ context.Context, userID int64) error {
	return s.repo.ResetUserUsage(userID)
}
