package quota

import (
	"context"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
)

// Store is the server-side authority for reply allowances. Clients mirror
// the remaining counts it reports; they never compute them.
type Store interface {
	// Consume spends one AI reply for the user under the given plan and
	// returns the remaining allowance for the current period. Returns
	// domain.ErrQuotaExceeded when the plan's cap is already spent.
	// Unlimited plans always succeed and report domain.Unbounded.
	Consume(ctx context.Context, userID int64, plan domain.Plan) (int, error)

	// Remaining reports the allowance left in the current period without
	// consuming anything.
	Remaining(ctx context.Context, userID int64, plan domain.Plan) (int, error)

	// Reset clears the user's counters, used on plan upgrade.
	Reset(ctx context.Context, userID int64) error
}
