// Package balance implements C3, the Balance Monitor (spec.md §4.5): a
// cached ERC-20 balance reader with a 30-second TTL, sufficiency checks
// against an estimated cost, and an optimistic debit applied right after
// a successful response so the next concurrent request sees an
// up-to-date (if approximate) balance without waiting on a fresh RPC
// round trip. Grounded on internal/payment/cache.go's TTL-cache shape.
package balance

import (
	"context"
	"math/big"
	"sync"
	"time"
)

// ErcClient abstracts an on-chain ERC-20 balance read so the monitor
// stays RPC-provider-agnostic (spec.md §9's explicit interface
// boundary: "ErcClient { balanceOf(addr) -> uint256 }").
type ErcClient interface {
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
}

// Monitor holds one cached balance (smallest ERC-20 unit) per wallet
// address, refreshed lazily when stale.
type Monitor struct {
	mu            sync.Mutex
	client        ErcClient
	ttl           time.Duration
	lowThreshold  *big.Int
	zeroThreshold *big.Int
	cached        map[string]cachedBalance
	now           func() time.Time
}

type cachedBalance struct {
	value     *big.Int
	fetchedAt time.Time
}

// NewMonitor builds a Monitor. low/zeroThreshold are in the asset's
// smallest unit (e.g. USDC's 6-decimal base units).
func NewMonitor(client ErcClient, ttl time.Duration, lowThreshold, zeroThreshold *big.Int) *Monitor {
	return &Monitor{
		client:        client,
		ttl:           ttl,
		lowThreshold:  lowThreshold,
		zeroThreshold: zeroThreshold,
		cached:        make(map[string]cachedBalance),
		now:           time.Now,
	}
}

// Balance returns address's cached balance, refreshing it first if the
// cache entry is missing or older than the TTL.
func (m *Monitor) Balance(ctx context.Context, address string) (*big.Int, error) {
	m.mu.Lock()
	entry, ok := m.cached[address]
	stale := !ok || m.now().Sub(entry.fetchedAt) > m.ttl
	m.mu.Unlock()

	if !stale {
		return new(big.Int).Set(entry.value), nil
	}

	val, err := m.client.BalanceOf(ctx, address)
	if err != nil {
		// Serve the stale cached value rather than fail the request
		// outright if the RPC call errors but a prior reading exists.
		if ok {
			return new(big.Int).Set(entry.value), nil
		}
		return nil, err
	}

	m.mu.Lock()
	m.cached[address] = cachedBalance{value: new(big.Int).Set(val), fetchedAt: m.now()}
	m.mu.Unlock()

	return val, nil
}

// Sufficient reports whether address's balance covers estimatedCost ×
// safetyMultiplier (spec.md §4.9 step 10 uses 1.5).
func (m *Monitor) Sufficient(ctx context.Context, address string, estimatedCost *big.Int, safetyMultiplier float64) (bool, error) {
	bal, err := m.Balance(ctx, address)
	if err != nil {
		return false, err
	}
	required := new(big.Float).Mul(new(big.Float).SetInt(estimatedCost), big.NewFloat(safetyMultiplier))
	requiredInt, _ := required.Int(nil)
	return bal.Cmp(requiredInt) >= 0, nil
}

// IsLow reports whether address's cached balance is at or below the low
// threshold (but above zero).
func (m *Monitor) IsLow(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cached[address]
	if !ok {
		return false
	}
	return entry.value.Cmp(m.lowThreshold) <= 0 && entry.value.Cmp(m.zeroThreshold) > 0
}

// IsEmpty reports whether address's cached balance is at or below the
// zero threshold.
func (m *Monitor) IsEmpty(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cached[address]
	if !ok {
		return false
	}
	return entry.value.Cmp(m.zeroThreshold) <= 0
}

// DeductEstimated optimistically subtracts amount from address's cached
// balance immediately after a successful response, so concurrent
// in-flight requests see a conservative balance without waiting on a
// fresh RPC read. The next TTL-driven refresh reconciles against the
// real on-chain value.
func (m *Monitor) DeductEstimated(address string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cached[address]
	if !ok {
		return
	}
	newVal := new(big.Int).Sub(entry.value, amount)
	if newVal.Sign() < 0 {
		newVal.SetInt64(0)
	}
	m.cached[address] = cachedBalance{value: newVal, fetchedAt: entry.fetchedAt}
}
