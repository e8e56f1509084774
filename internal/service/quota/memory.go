package quota

import (
	"context"
	"sync"
	"time"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
)

// MemoryStore is an in-memory Store with daily reset, used in tests and
// single-node development setups.
type MemoryStore struct {
	mu    sync.Mutex
	users map[int64]*userUsage
	now   func() time.Time
}

type userUsage struct {
	Used    int
	ResetAt time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]*userUsage),
		now:   time.Now,
	}
}

func (s *MemoryStore) Consume(_ context.Context, userID int64, plan domain.Plan) (int, error) {
	if plan.Unlimited() {
		return domain.Unbounded, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.usage(userID)
	if u.Used >= plan.RepliesPerDay {
		return 0, domain.ErrQuotaExceeded
	}

	u.Used++
	return plan.RepliesPerDay - u.Used, nil
}

func (s *MemoryStore) Remaining(_ context.Context, userID int64, plan domain.Plan) (int, error) {
	if plan.Unlimited() {
		return domain.Unbounded, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := plan.RepliesPerDay - s.usage(userID).Used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *MemoryStore) Reset(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

// usage returns the live counter for a user, rolling it over at midnight UTC.
// Caller must hold s.mu.
func (s *MemoryStore) usage(userID int64) *userUsage {
	u, ok := s.users[userID]
	if !ok {
		u = &userUsage{ResetAt: s.nextMidnightUTC()}
		s.users[userID] = u
	}
	if s.now().UTC().After(u.ResetAt) {
		u.Used = 0
		u.ResetAt = s.nextMidnightUTC()
	}
	return u
}

func (s *MemoryStore) nextMidnightUTC() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}
