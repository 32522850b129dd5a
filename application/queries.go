package application

import (
	"fmt"
	"slices"
	"time"

	"github.com/luca-patrignani/resonance/consensus"
	"github.com/luca-patrignani/resonance/domain/event"
	"github.com/luca-patrignani/resonance/domain/graph"
	"github.com/luca-patrignani/resonance/domain/token"
	"github.com/luca-patrignani/resonance/ledger"
)

type ChainStats struct {
	Height             uint64  `json:"height"`
	TotalNodes         int     `json:"total_nodes"`
	GlobalCoherence    float64 `json:"global_coherence"`
	TotalSupply        uint64  `json:"total_supply"`
	ActiveWitnessCount int     `json:"active_witness_count"`
	PendingEventCount  int     `json:"pending_event_count"`
	NextDifficulty     int     `json:"next_difficulty"`
}

type ContentResult struct {
	ID              string  `json:"id"`
	Content         string  `json:"content"`
	Creator         string  `json:"creator"`
	Coherence       float64 `json:"coherence"`
	ConnectionCount int     `json:"connection_count"`
}

type BlockSummary struct {
	Height     uint64    `json:"height"`
	Timestamp  time.Time `json:"timestamp"`
	Witness    string    `json:"witness"`
	EventCount int       `json:"event_count"`
	Hash       string    `json:"hash"`
}

func (o *Orchestrator) Stats() ChainStats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return ChainStats{
		Height:             o.chain.GetLatest().Height,
		TotalNodes:         o.state.Len(),
		GlobalCoherence:    o.state.GlobalCoherence(),
		TotalSupply:        o.tokens.TotalSupply(),
		ActiveWitnessCount: len(o.witnesses.Active()),
		PendingEventCount:  len(o.pending),
		NextDifficulty:     o.difficulty.Next(o.chain.Tail(o.difficulty.Window)),
	}
}

// Graph returns the graph state of the latest block.
func (o *Orchestrator) Graph() graph.Graph {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// QueryContent searches committed content, highest coherence first.
func (o *Orchestrator) QueryContent(text string, threshold float64) []ContentResult {
	nodes := o.Graph().Query(text, threshold)
	out := make([]ContentResult, len(nodes))
	for i, n := range nodes {
		out[i] = ContentResult{
			ID:              n.ID,
			Content:         n.Content,
			Creator:         n.Creator,
			Coherence:       n.Coherence,
			ConnectionCount: n.EdgeCount(),
		}
	}
	return out
}

func (o *Orchestrator) Block(height uint64) (ledger.Block, error) {
	return o.chain.GetByIndex(height)
}

// RecentBlocks summarizes up to limit blocks, newest first.
func (o *Orchestrator) RecentBlocks(limit int) []BlockSummary {
	blocks := o.chain.Recent(limit)
	out := make([]BlockSummary, len(blocks))
	for i, b := range blocks {
		out[i] = BlockSummary{
			Height:     b.Height,
			Timestamp:  time.Unix(0, b.Timestamp).UTC(),
			Witness:    b.Witness,
			EventCount: len(b.Events),
			Hash:       b.Hash,
		}
	}
	return out
}

func (o *Orchestrator) ChainLength() int { return o.chain.Len() }

// Verify checks the integrity of the whole chain.
func (o *Orchestrator) Verify() error { return o.chain.Verify() }

func (o *Orchestrator) Pending() []event.Event {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.pending)
}

// RemovePending drops a pending event. It reports whether the event was found.
func (o *Orchestrator) RemovePending(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.pendingID[id]; !ok {
		return false
	}
	delete(o.pendingID, id)
	o.pending = slices.DeleteFunc(o.pending, func(e event.Event) bool { return e.ID == id })
	o.metrics.SetPending(len(o.pending))
	return true
}

func (o *Orchestrator) ActiveWitnesses() []*consensus.Witness { return o.witnesses.Active() }

// Witness returns the registered witness with the given address, active or not.
func (o *Orchestrator) Witness(addr string) (*consensus.Witness, bool) {
	return o.witnesses.Lookup(addr)
}

func (o *Orchestrator) Balance(addr string) uint64 { return o.tokens.Balance(addr) }

func (o *Orchestrator) StakedBalance(addr string) uint64 { return o.tokens.Staked(addr) }

func (o *Orchestrator) TotalSupply() uint64 { return o.tokens.TotalSupply() }

func (o *Orchestrator) Transfer(from, to string, amt uint64) error {
	if !o.tokens.Transfer(from, to, amt) {
		return fmt.Errorf("transfer %d from %s: %w", amt, from, token.ErrInsufficientBalance)
	}
	return nil
}

func (o *Orchestrator) Stake(addr string, amt uint64) error {
	if !o.tokens.Stake(addr, amt) {
		return fmt.Errorf("stake %d for %s: %w", amt, addr, token.ErrInsufficientBalance)
	}
	return nil
}

// Unstake returns staked tokens to the balance. Stake backing a registered
// witness is not protected.
func (o *Orchestrator) Unstake(addr string, amt uint64) error {
	if !o.tokens.Unstake(addr, amt) {
		return fmt.Errorf("unstake %d for %s: %w", amt, addr, token.ErrInsufficientBalance)
	}
	return nil
}

// Mint credits new tokens outside of block rewards, as the faucet for new
// participants.
func (o *Orchestrator) Mint(addr string, amt uint64) {
	o.tokens.Mint(addr, amt)
	o.metrics.SetSupply(o.tokens.TotalSupply())
	o.log.Debug("minted", "address", addr, "amount", amt)
}
