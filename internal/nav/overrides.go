package nav

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

// OverrideMap holds unit prices discovered during one valuation run, keyed by
// chain and lower-cased token address. Resolved NAVs land here so later tokens can use them.
type OverrideMap struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewOverrideMap creates an empty override map.
func NewOverrideMap() *OverrideMap {
	return &OverrideMap{prices: make(map[string]decimal.Decimal)}
}

// Get returns the override price for address on chainID.
func (m *OverrideMap) Get(chainID int64, address string) (decimal.Decimal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prices[domain.TokenKey(chainID, address)]
	return p, ok
}

// Set records the price for address on chainID, replacing any previous value.
func (m *OverrideMap) Set(chainID int64, address string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[domain.TokenKey(chainID, address)] = price
}

// Len returns the number of overrides.
func (m *OverrideMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.prices)
}
