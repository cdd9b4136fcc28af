// Package budget implements the shared spend ledger and cost estimation.
//
// DESIGN: One Ledger is shared by every session in the process and is the
// single synchronization point for spend. The check-then-increment of TryDebit
// is indivisible under the ledger mutex; without that, two requests racing on
// a nearly exhausted budget could each see room and jointly overspend.
//
// Monetary values are nano-dollars (USD * 1e9) stored in int64, so thousands
// of accumulated debits never drift the way float64 accumulation would.
package budget

import (
	"sync"
)

// Snapshot is a consistent point-in-time view of the ledger.
type Snapshot struct {
	CeilingNano   int64
	SpentNano     int64
	RemainingNano int64
	TokensUsed    int64
}

// CeilingUSD returns the ceiling in dollars.
func (s Snapshot) CeilingUSD() float64 { return float64(s.CeilingNano) / 1e9 }

// SpentUSD returns cumulative spend in dollars.
func (s Snapshot) SpentUSD() float64 { return float64(s.SpentNano) / 1e9 }

// RemainingUSD returns remaining budget in dollars.
func (s Snapshot) RemainingUSD() float64 { return float64(s.RemainingNano) / 1e9 }

// Ledger is the process-wide budget authority.
//
// The ceiling is fixed at construction. Spent and token counters only grow
// until an explicit Reset. Callers never touch the counters directly; the
// only mutating entry points are TryDebit and Reset.
type Ledger struct {
	mu          sync.Mutex
	ceilingNano int64
	spentNano   int64
	tokensUsed  int64
}

// NewLedger creates a ledger with the given ceiling in nano-dollars.
func NewLedger(ceilingNano int64) *Ledger {
	if ceilingNano < 0 {
		ceilingNano = 0
	}
	return &Ledger{ceilingNano: ceilingNano}
}

// TryDebit attempts to spend amountNano and record tokens consumed.
// It commits iff spent + amount stays within the ceiling; otherwise the
// ledger is left untouched and false is returned. Check and increment are
// a single critical section: no caller observes an intermediate state.
func (l *Ledger) TryDebit(amountNano, tokens int64) bool {
	if amountNano < 0 || tokens < 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.spentNano+amountNano > l.ceilingNano {
		return false
	}
	l.spentNano += amountNano
	l.tokensUsed += tokens
	return true
}

// Snapshot returns a consistent view of ceiling, spend, and token usage.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Snapshot{
		CeilingNano:   l.ceilingNano,
		SpentNano:     l.spentNano,
		RemainingNano: l.ceilingNano - l.spentNano,
		TokensUsed:    l.tokensUsed,
	}
}

// RemainingNano returns ceiling - spent.
func (l *Ledger) RemainingNano() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ceilingNano - l.spentNano
}

// Reset zeroes spend and token usage; the ceiling is untouched.
// A reset racing an in-flight debit may land before or after it. The ledger
// exists for visibility and admission control, not exact accounting, so
// either interleaving is accepted.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spentNano = 0
	l.tokensUsed = 0
}
