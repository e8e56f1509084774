package apiclient

import (
	"sync"
)

// Unlimited is the allowance sentinel for plans with no reply cap.
const Unlimited = -1

const defaultLowQuotaThreshold = 0

// Ledger mirrors the server's remaining-reply allowance so the app can
// gate sends and raise upgrade prompts without a round trip. It is a cache
// of server truth, never an authority: every update comes from a server
// response, and no remaining value is ever computed by local arithmetic.
type Ledger struct {
	mu        sync.Mutex
	remaining int
	exhausted bool
	threshold int

	// onLowQuota fires when the allowance crosses down to the threshold
	// (or straight to zero). It fires once per crossing, not per update.
	onLowQuota func(remaining int)
}

type LedgerOption func(*Ledger)

// WithLowQuotaThreshold sets the remaining count at or below which the
// low-quota event fires. Default 0: the event fires when the allowance
// runs out.
func WithLowQuotaThreshold(n int) LedgerOption {
	return func(l *Ledger) {
		l.threshold = n
	}
}

// WithLowQuotaHandler registers the upgrade-prompt hook.
func WithLowQuotaHandler(fn func(remaining int)) LedgerOption {
	return func(l *Ledger) {
		l.onLowQuota = fn
	}
}

// NewLedger starts with an unlimited allowance; call Sync with a server
// value before gating on it.
func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		remaining: Unlimited,
		threshold: defaultLowQuotaThreshold,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Remaining returns the cached allowance: a non-negative count, or
// Unlimited. Once a quota failure has been observed it reports 0 until the
// next Sync.
func (l *Ledger) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.exhausted {
		return 0
	}
	return l.remaining
}

// IsExhausted reports whether the allowance is bounded and spent.
func (l *Ledger) IsExhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exhausted || l.remaining == 0
}

// ApplyExchangeResult adopts the allowance the server reported for a
// completed exchange. The server's value is taken verbatim (negative
// values mean unlimited); nothing is decremented locally.
func (l *Ledger) ApplyExchangeResult(result *SendMessageResult) {
	l.update(result.RemainingReplies)
}

// Sync adopts a server-reported allowance from outside an exchange, e.g.
// a quota fetch on session load or after a plan upgrade. It also clears a
// terminal exhausted state.
func (l *Ledger) Sync(remaining int) {
	l.mu.Lock()
	l.exhausted = false
	l.mu.Unlock()
	l.update(remaining)
}

// MarkExhausted records a quota failure (402). The state is terminal for
// the ledger: Remaining reports 0 until an external Sync.
func (l *Ledger) MarkExhausted() {
	l.mu.Lock()
	wasLow := l.low()
	l.exhausted = true
	l.remaining = 0
	fire := !wasLow && l.onLowQuota != nil
	l.mu.Unlock()

	if fire {
		l.onLowQuota(0)
	}
}

func (l *Ledger) update(remaining int) {
	if remaining < 0 {
		remaining = Unlimited
	}

	l.mu.Lock()
	wasLow := l.low()
	l.remaining = remaining
	isLow := l.low()
	fire := isLow && !wasLow && l.onLowQuota != nil
	l.mu.Unlock()

	if fire {
		l.onLowQuota(remaining)
	}
}

// low reports whether the bounded allowance is at or below the threshold.
// Callers hold l.mu.
func (l *Ledger) low() bool {
	if l.exhausted {
		return true
	}
	return l.remaining != Unlimited && l.remaining <= l.threshold
}
