package apiclient_test

import (
	"testing"

	"github.com/sparkpad-app/sparkpad/backend/pkg/apiclient"
	"github.com/stretchr/testify/assert"
)

func exchangeWith(remaining int) *apiclient.SendMessageResult {
	return &apiclient.SendMessageResult{RemainingReplies: remaining}
}

func TestLedgerMirrorsServerValue(t *testing.T) {
	l := apiclient.NewLedger()
	l.Sync(10)
	assert.Equal(t, 10, l.Remaining())

	// The server's value is adopted verbatim, even when it jumps: the
	// ledger never derives the count by local arithmetic.
	l.ApplyExchangeResult(exchangeWith(7))
	assert.Equal(t, 7, l.Remaining())
	l.ApplyExchangeResult(exchangeWith(9))
	assert.Equal(t, 9, l.Remaining())
}

func TestLedgerNeverNegative(t *testing.T) {
	l := apiclient.NewLedger()
	l.Sync(1)

	// Negative wire values mean unlimited, never a negative count.
	l.ApplyExchangeResult(exchangeWith(-3))
	assert.Equal(t, apiclient.Unlimited, l.Remaining())
	assert.False(t, l.IsExhausted(), "an unlimited allowance never reads as exhausted")

	l.ApplyExchangeResult(exchangeWith(0))
	assert.Equal(t, 0, l.Remaining())
	assert.True(t, l.IsExhausted())
}

func TestLedgerFreePlanRunsOut(t *testing.T) {
	var events []int
	l := apiclient.NewLedger(apiclient.WithLowQuotaHandler(func(remaining int) {
		events = append(events, remaining)
	}))
	l.Sync(2)

	// Exchange 1: server reports 1 left.
	l.ApplyExchangeResult(exchangeWith(1))
	assert.Equal(t, 1, l.Remaining())
	assert.Empty(t, events)

	// Exchange 2: allowance runs out, the upgrade-prompt event fires.
	l.ApplyExchangeResult(exchangeWith(0))
	assert.Equal(t, 0, l.Remaining())
	assert.Equal(t, []int{0}, events)

	// Exchange 3 is rejected with a quota failure: state stays at zero
	// and the event does not fire a second time.
	l.MarkExhausted()
	assert.Equal(t, 0, l.Remaining())
	assert.True(t, l.IsExhausted())
	assert.Equal(t, []int{0}, events)
}

func TestLedgerExhaustedIsTerminalUntilSync(t *testing.T) {
	l := apiclient.NewLedger()
	l.Sync(5)

	l.MarkExhausted()
	assert.Equal(t, 0, l.Remaining())

	// Exchange results cannot resurrect a ledger that saw a 402; only an
	// external reset (plan upgrade, period rollover) via Sync can.
	assert.True(t, l.IsExhausted())

	l.Sync(5)
	assert.Equal(t, 5, l.Remaining())
	assert.False(t, l.IsExhausted())
}

func TestLedgerLowQuotaThreshold(t *testing.T) {
	var events []int
	l := apiclient.NewLedger(
		apiclient.WithLowQuotaThreshold(2),
		apiclient.WithLowQuotaHandler(func(remaining int) {
			events = append(events, remaining)
		}),
	)
	l.Sync(5)

	l.ApplyExchangeResult(exchangeWith(3))
	assert.Empty(t, events)

	// Crossing down to the threshold fires once.
	l.ApplyExchangeResult(exchangeWith(2))
	assert.Equal(t, []int{2}, events)

	// Still low: no repeat fire.
	l.ApplyExchangeResult(exchangeWith(1))
	assert.Equal(t, []int{2}, events)

	// Refill and run low again: a new crossing fires again.
	l.Sync(5)
	l.ApplyExchangeResult(exchangeWith(2))
	assert.Equal(t, []int{2, 2}, events)
}

func TestLedgerUnlimitedNeverFiresLowQuota(t *testing.T) {
	var fired bool
	l := apiclient.NewLedger(apiclient.WithLowQuotaHandler(func(int) {
		fired = true
	}))

	l.Sync(apiclient.Unlimited)
	l.ApplyExchangeResult(exchangeWith(apiclient.Unlimited))
	assert.Equal(t, apiclient.Unlimited, l.Remaining())
	assert.False(t, fired)
	assert.False(t, l.IsExhausted())
}
