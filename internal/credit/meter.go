// Package credit meters how many enrichments may still be performed.
package credit

import (
	"sync"

	"github.com/rotisserie/eris"
)

// Meter is a non-negative credit balance. It is safe for concurrent use.
type Meter struct {
	mu      sync.Mutex
	balance int
}

// NewMeter returns a meter seeded with balance (negative values clamp to 0).
func NewMeter(balance int) *Meter {
	if balance < 0 {
		balance = 0
	}
	return &Meter{balance: balance}
}

// Balance returns the current balance.
func (m *Meter) Balance() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance
}

// Consume removes up to n credits, saturating at zero, and returns how many
// were actually taken. It never blocks and never fails.
func (m *Meter) Consume(n int) int {
	if n <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.balance {
		n = m.balance
	}
	m.balance -= n
	return n
}

// TopUp adds n credits and returns the new balance.
func (m *Meter) TopUp(n int) (int, error) {
	if n <= 0 {
		return 0, eris.Errorf("credit: top-up amount must be positive, got %d", n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance += n
	return m.balance, nil
}

// Set replaces the balance, used when rehydrating persisted state.
func (m *Meter) Set(n int) {
	if n < 0 {
		n = 0
	}
	m.mu.Lock()
	m.balance = n
	m.mu.Unlock()
}
