package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/luca-patrignani/resonance/domain/event"
	"github.com/luca-patrignani/resonance/domain/graph"
)

// GenesisWitness is the witness recorded in the genesis block.
const GenesisWitness = "genesis"

// GenesisPrevHash is the previous hash of the genesis block.
var GenesisPrevHash = strings.Repeat("0", MaxDifficulty)

var ErrInvalidBlock = errors.New("invalid block")

type Blockchain struct {
	mu     sync.RWMutex
	blocks []Block

	// eligible reports whether a voter may certify blocks. Nil admits any
	// correctly signed voter.
	eligible func(voter string) bool
}

// NewBlockchain creates a chain holding only a genesis block mined at the given
// difficulty. The genesis block carries an empty graph and no events.
func NewBlockchain(ctx context.Context, at time.Time, difficulty int) (*Blockchain, error) {
	genesis := Block{
		Height:    0,
		Timestamp: at.UnixNano(),
		PrevHash:  GenesisPrevHash,
		Witness:   GenesisWitness,
		Events:    []event.Event{},
		Votes:     []Vote{},
		Graph:     graph.New(),
	}
	if err := genesis.Mine(ctx, difficulty); err != nil {
		return nil, fmt.Errorf("mining genesis: %w", err)
	}
	return &Blockchain{blocks: []Block{genesis}}, nil
}

// RestrictVoters limits the votes counted toward a block's quorum, on Append
// and on Verify, to voters for which eligible returns true.
func (bc *Blockchain) RestrictVoters(eligible func(voter string) bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.eligible = eligible
}

// Append validates b against the current tip and adds it to the chain.
func (bc *Blockchain) Append(b Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	latest := bc.blocks[len(bc.blocks)-1]
	if err := validateBlock(b, latest, bc.eligible); err != nil {
		return err
	}
	bc.blocks = append(bc.blocks, b.detached())
	return nil
}

// GetLatest returns the most recently added block in the blockchain.
func (bc *Blockchain) GetLatest() Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.blocks[len(bc.blocks)-1].detached()
}

// GetByIndex retrieves a block by its height. Returns an error if the height
// is out of range.
func (bc *Blockchain) GetByIndex(height uint64) (Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if height >= uint64(len(bc.blocks)) {
		return Block{}, fmt.Errorf("height %d out of range", height)
	}
	return bc.blocks[height].detached(), nil
}

// Len returns the number of blocks including genesis.
func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.blocks)
}

// Recent returns up to limit blocks, newest first.
func (bc *Blockchain) Recent(limit int) []Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if limit <= 0 {
		return nil
	}
	limit = min(limit, len(bc.blocks))
	out := make([]Block, 0, limit)
	for i := len(bc.blocks) - 1; i >= len(bc.blocks)-limit; i-- {
		out = append(out, bc.blocks[i].detached())
	}
	return out
}

// Tail returns the last n blocks, oldest first.
func (bc *Blockchain) Tail(n int) []Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	n = max(0, min(n, len(bc.blocks)))
	out := make([]Block, 0, n)
	for _, b := range bc.blocks[len(bc.blocks)-n:] {
		out = append(out, b.detached())
	}
	return out
}

// Verify validates the integrity of the entire chain: the genesis block and
// the hash, height and linkage of every block after it.
func (bc *Blockchain) Verify() error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return fmt.Errorf("%w: empty blockchain", ErrInvalidBlock)
	}

	genesis := bc.blocks[0]
	if genesis.Height != 0 || genesis.PrevHash != GenesisPrevHash {
		return fmt.Errorf("%w: invalid genesis block", ErrInvalidBlock)
	}
	if genesis.Hash != genesis.ComputeHash() || !MeetsDifficulty(genesis.Hash, genesis.Difficulty) {
		return fmt.Errorf("%w: invalid genesis hash", ErrInvalidBlock)
	}

	for i := 1; i < len(bc.blocks); i++ {
		if err := validateBlock(bc.blocks[i], bc.blocks[i-1], bc.eligible); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}
	return nil
}

// validateBlock checks current against previous: height continuity, hash
// linkage, hash integrity, proof of work and the vote certificate.
func validateBlock(current, previous Block, eligible func(string) bool) error {
	if current.Height != previous.Height+1 {
		return fmt.Errorf("%w: expected height %d, got %d", ErrInvalidBlock, previous.Height+1, current.Height)
	}

	// Verifica prev hash
	if current.PrevHash != previous.Hash {
		return fmt.Errorf("%w: expected prev hash %s, got %s", ErrInvalidBlock, previous.Hash, current.PrevHash)
	}

	expected := current.ComputeHash()
	if current.Hash != expected {
		return fmt.Errorf("%w: expected hash %s, got %s", ErrInvalidBlock, expected, current.Hash)
	}

	if !MeetsDifficulty(current.Hash, current.Difficulty) {
		return fmt.Errorf("%w: hash %s does not meet difficulty %d", ErrInvalidBlock, current.Hash, current.Difficulty)
	}

	if accepted := countAccepts(current, eligible); accepted < current.Metadata.Quorum {
		return fmt.Errorf("%w: insufficient votes: got %d, need %d", ErrInvalidBlock, accepted, current.Metadata.Quorum)
	}
	return nil
}

// countAccepts counts distinct eligible voters with a valid signed ACCEPT
// for b.
func countAccepts(b Block, eligible func(string) bool) int {
	seen := make(map[string]struct{}, len(b.Votes))
	for _, v := range b.Votes {
		if v.Value != VoteAccept || v.BlockHash != b.Hash {
			continue
		}
		if _, dup := seen[v.VoterID]; dup {
			continue
		}
		if eligible != nil && !eligible(v.VoterID) {
			continue
		}
		if ok, err := v.VerifySignature(); err != nil || !ok {
			continue
		}
		seen[v.VoterID] = struct{}{}
	}
	return len(seen)
}
