package token

import (
	"errors"
	"fmt"
	"sync"
)

// Unit is one whole token expressed in base units.
const Unit uint64 = 1_000_000_000_000_000_000

var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger tracks spendable and staked balances.
// TotalSupply always equals the sum of both maps.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]uint64
	staked   map[string]uint64
	supply   uint64
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]uint64),
		staked:   make(map[string]uint64),
	}
}

// Allocate mints the genesis allocations.
func (l *Ledger) Allocate(allocations map[string]uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for addr, amt := range allocations {
		l.balances[addr] += amt
		l.supply += amt
	}
}

// Mint credits addr and grows the supply.
func (l *Ledger) Mint(addr string, amt uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] += amt
	l.supply += amt
}

// Transfer moves amt from one address to another. It returns false and changes
// nothing when the sender cannot cover amt.
func (l *Ledger) Transfer(from, to string, amt uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amt {
		return false
	}
	l.balances[from] -= amt
	l.balances[to] += amt
	return true
}

// Stake locks amt of the balance of addr.
func (l *Ledger) Stake(addr string, amt uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[addr] < amt {
		return false
	}
	l.balances[addr] -= amt
	l.staked[addr] += amt
	return true
}

// Unstake releases amt of the stake of addr back to its balance.
func (l *Ledger) Unstake(addr string, amt uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.staked[addr] < amt {
		return false
	}
	l.staked[addr] -= amt
	l.balances[addr] += amt
	return true
}

func (l *Ledger) Balance(addr string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr]
}

func (l *Ledger) Staked(addr string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.staked[addr]
}

func (l *Ledger) TotalSupply() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

// CheckInvariant verifies that the supply matches the recorded balances.
func (l *Ledger) CheckInvariant() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var sum uint64
	for _, v := range l.balances {
		sum += v
	}
	for _, v := range l.staked {
		sum += v
	}
	if sum != l.supply {
		return fmt.Errorf("supply %d does not match balances %d", l.supply, sum)
	}
	return nil
}
