package consensus

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/luca-patrignani/resonance/identity"
)

// Registry tracks the witness pool and the currently active subset.
type Registry struct {
	mu       sync.RWMutex
	minStake uint64
	pool     []*Witness
	active   []*Witness
}

func NewRegistry(minStake uint64) *Registry {
	return &Registry{minStake: minStake}
}

// Register admits id to the pool if stake meets the minimum. New witnesses
// start with full participation. The active set is not changed until the
// next SelectActive.
func (r *Registry) Register(id *identity.Identity, stake uint64) (*Witness, error) {
	if stake < r.minStake {
		return nil, fmt.Errorf("%w: %d < %d", ErrStakeTooLow, stake, r.minStake)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.pool {
		if w.Address() == id.Address() {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, id.Address())
		}
	}
	w := &Witness{Identity: id, Stake: stake, Participation: 1.0}
	r.pool = append(r.pool, w)
	return w, nil
}

// SelectActive recomputes the active set: the whole pool when it holds at most
// limit witnesses, otherwise the limit witnesses with the largest stake times
// participation. Ties keep registration order.
func (r *Registry) SelectActive(limit int) []*Witness {
	r.mu.Lock()
	defer r.mu.Unlock()

	ranked := slices.Clone(r.pool)
	if limit > 0 && len(ranked) > limit {
		slices.SortStableFunc(ranked, func(a, b *Witness) int {
			wa, wb := a.weight(), b.weight()
			switch {
			case wa > wb:
				return -1
			case wa < wb:
				return 1
			}
			return 0
		})
		ranked = ranked[:limit]
	}
	r.active = ranked
	return slices.Clone(r.active)
}

func (r *Registry) Active() []*Witness {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.active)
}

func (r *Registry) Pool() []*Witness {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.pool)
}

// Lookup returns the registered witness with the given address.
func (r *Registry) Lookup(addr string) (*Witness, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.pool {
		if w.Address() == addr {
			return w, true
		}
	}
	return nil, false
}

// Proposer picks the witness for the block at the given height, round robin
// over the active set.
func Proposer(active []*Witness, height int) (*Witness, error) {
	if len(active) == 0 {
		return nil, ErrNoWitnesses
	}
	return active[height%len(active)], nil
}

// computeQuorum returns the smallest number of accepting votes out of n whose
// share reaches threshold.
func computeQuorum(n int, threshold float64) int {
	if n <= 0 {
		return 0
	}
	k := int(math.Ceil(threshold*float64(n) - 1e-9))
	return max(1, min(k, n))
}
