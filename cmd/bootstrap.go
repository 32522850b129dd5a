package main

import (
	"context"
	"fmt"

	"github.com/luca-patrignani/resonance/application"
	"github.com/luca-patrignani/resonance/config"
	"github.com/luca-patrignani/resonance/domain/token"
	"github.com/luca-patrignani/resonance/identity"
)

// founderAllocation is the genesis balance of each founding witness.
const founderAllocation = 10 * token.Unit

// bootstrap creates n founders, credits them at genesis and registers each
// as a witness staking the configured minimum.
func bootstrap(ctx context.Context, cfg config.Config, n int, opts ...application.Option) (*application.Orchestrator, []*identity.Identity, error) {
	founders := make([]*identity.Identity, n)
	alloc := make(map[string]uint64, n)
	for i := range founders {
		id, err := identity.New()
		if err != nil {
			return nil, nil, err
		}
		founders[i] = id
		alloc[id.Address()] = max(founderAllocation, cfg.Consensus.MinimumStake)
	}

	o, err := application.New(ctx, cfg, alloc, opts...)
	if err != nil {
		return nil, nil, err
	}
	for i, id := range founders {
		if _, err := o.RegisterWitness(id, cfg.Consensus.MinimumStake); err != nil {
			return nil, nil, fmt.Errorf("founder %d: %w", i, err)
		}
	}
	return o, founders, nil
}
