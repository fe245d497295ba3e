// Package store provides RateStore implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/casualpay/schedule1-engine/schedule1"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds rate codes and amounts in process memory. IDs are assigned
// on insert, starting at 1.
type Memory struct {
	mu      sync.RWMutex
	codes   []schedule1.RateCodeRow
	amounts map[int64][]schedule1.RateAmountRow // keyed by rate code ID
	nextID  int64
}

func NewMemory() *Memory {
	return &Memory{
		amounts: make(map[int64][]schedule1.RateAmountRow),
		nextID:  1,
	}
}

// InsertRateCode stores a rate-code definition and returns its assigned ID.
func (m *Memory) InsertRateCode(_ context.Context, code schedule1.RateCodeRow) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code.ID = m.nextID
	m.nextID++
	m.codes = append(m.codes, code)
	return code.ID, nil
}

// InsertRateAmount stores an amount row under its rate code.
func (m *Memory) InsertRateAmount(_ context.Context, amount schedule1.RateAmountRow) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	amount.ID = m.nextID
	m.nextID++
	m.amounts[amount.RateCodeID] = append(m.amounts[amount.RateCodeID], amount)
	return amount.ID, nil
}

func (m *Memory) FindRateCode(_ context.Context, code string) (*schedule1.RateCodeRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.codes {
		if c.Code == code {
			row := c
			return &row, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindRateCodesByCategory(_ context.Context, category schedule1.TaskCategory) ([]schedule1.RateCodeRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []schedule1.RateCodeRow
	for _, c := range m.codes {
		if c.TaskCategory == category {
			result = append(result, c)
		}
	}
	return result, nil
}

// FindActiveAmounts returns every amount row for the code, most recently
// started first. Date filtering is left to the caller's effectivity
// checks so that out-of-window rows remain available as fallbacks.
func (m *Memory) FindActiveAmounts(_ context.Context, rateCodeID int64, _ time.Time) ([]schedule1.RateAmountRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]schedule1.RateAmountRow, len(m.amounts[rateCodeID]))
	copy(rows, m.amounts[rateCodeID])
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].EffectiveFrom.After(rows[j].EffectiveFrom)
	})
	return rows, nil
}
