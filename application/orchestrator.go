package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/luca-patrignani/resonance/config"
	"github.com/luca-patrignani/resonance/consensus"
	"github.com/luca-patrignani/resonance/domain/event"
	"github.com/luca-patrignani/resonance/domain/graph"
	"github.com/luca-patrignani/resonance/domain/token"
	"github.com/luca-patrignani/resonance/identity"
	"github.com/luca-patrignani/resonance/ledger"
	"github.com/luca-patrignani/resonance/metrics"
)

var (
	ErrEmptyPool      = errors.New("no pending events")
	ErrDuplicateEvent = errors.New("event already submitted")
)

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithClock sets the clock used for event, block and genesis timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator owns the ledger state: the pending pool, the current graph,
// the chain, token balances and the witness registry.
//
// SubmitEvent may be called concurrently with everything else. CreateBlock
// calls are serialized; mining and voting run without holding the state
// lock, and the block is committed atomically afterwards.
type Orchestrator struct {
	cfg     config.Config
	log     *slog.Logger
	clock   clock.Clock
	metrics *metrics.Collector

	blockMu sync.Mutex // serializes CreateBlock

	mu        sync.RWMutex // guards the fields below and the chain tail
	pending   []event.Event
	pendingID map[string]struct{}
	committed map[string]struct{}
	state     graph.Graph

	chain      *ledger.Blockchain
	tokens     *token.Ledger
	witnesses  *consensus.Registry
	quorum     consensus.Quorum
	difficulty ledger.DifficultyPolicy
}

// New mines the genesis block, credits the genesis allocations and returns a
// ready orchestrator with an empty witness pool.
func New(ctx context.Context, cfg config.Config, allocations map[string]uint64, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:       cfg,
		log:       slog.Default(),
		clock:     clock.New(),
		pendingID: make(map[string]struct{}),
		committed: make(map[string]struct{}),
		tokens:    token.NewLedger(),
		witnesses: consensus.NewRegistry(cfg.Consensus.MinimumStake),
		quorum: consensus.Quorum{
			Threshold: cfg.Consensus.Threshold,
			Tolerance: cfg.Consensus.CoherenceTolerance,
			Strict:    cfg.Graph.StrictValidate,
		},
		difficulty: ledger.DifficultyPolicy{
			Window:          cfg.Mining.AdjustmentWindow,
			TargetBlockTime: cfg.Mining.TargetBlockTime,
			Initial:         cfg.Mining.InitialDifficulty,
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	chain, err := ledger.NewBlockchain(ctx, o.clock.Now(), cfg.Mining.InitialDifficulty)
	if err != nil {
		return nil, err
	}
	chain.RestrictVoters(func(voter string) bool {
		_, ok := o.witnesses.Lookup(voter)
		return ok
	})
	o.chain = chain
	o.state = chain.GetLatest().Graph
	o.tokens.Allocate(allocations)

	o.metrics.SetSupply(o.tokens.TotalSupply())
	o.log.Info("genesis created", "hash", chain.GetLatest().Hash, "accounts", len(allocations))
	return o, nil
}

// CreateIdentity returns a fresh identity. The ledger keeps no record of it
// until it sends an event or receives tokens.
func (o *Orchestrator) CreateIdentity() (*identity.Identity, error) {
	id, err := identity.New()
	if err != nil {
		return nil, err
	}
	o.log.Debug("identity created", "address", id.Address())
	return id, nil
}

// RegisterWitness moves stake from id's balance into its staked balance and
// admits it to the witness pool, then refreshes the active set.
func (o *Orchestrator) RegisterWitness(id *identity.Identity, stake uint64) (*consensus.Witness, error) {
	if !o.tokens.Stake(id.Address(), stake) {
		return nil, fmt.Errorf("stake %d for %s: %w", stake, id.Address(), token.ErrInsufficientBalance)
	}
	w, err := o.witnesses.Register(id, stake)
	if err != nil {
		o.tokens.Unstake(id.Address(), stake)
		return nil, err
	}
	o.SelectActiveWitnesses()
	o.log.Info("witness registered", "address", id.Address(), "stake", stake)
	return w, nil
}

// SelectActiveWitnesses recomputes and returns the active witness set.
func (o *Orchestrator) SelectActiveWitnesses() []*consensus.Witness {
	return o.witnesses.SelectActive(o.cfg.Consensus.MaxWitnesses)
}

// SubmitEvent validates a signed event and adds it to the pending pool.
// A rejected event leaves the pool untouched.
func (o *Orchestrator) SubmitEvent(e event.Event) error {
	if err := e.Validate(); err != nil {
		o.metrics.RecordEvent(string(e.Kind()), false)
		o.log.Warn("event rejected", "id", e.ID, "sender", e.Sender, "error", err)
		return err
	}

	o.mu.Lock()
	_, pending := o.pendingID[e.ID]
	_, done := o.committed[e.ID]
	if pending || done {
		o.mu.Unlock()
		o.metrics.RecordEvent(string(e.Kind()), false)
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, e.ID)
	}
	o.pending = append(o.pending, e)
	o.pendingID[e.ID] = struct{}{}
	n := len(o.pending)
	o.mu.Unlock()

	o.metrics.RecordEvent(string(e.Kind()), true)
	o.metrics.SetPending(n)
	o.log.Debug("event accepted", "id", e.ID, "kind", e.Kind(), "sender", e.Sender)
	return nil
}

// Submit builds an event from p, signs it with id and submits it.
func (o *Orchestrator) Submit(id *identity.Identity, p event.Payload) (event.Event, error) {
	e := event.New(id, p, o.clock.Now())
	if err := e.Sign(id); err != nil {
		return event.Event{}, err
	}
	return e, o.SubmitEvent(e)
}

// CreateBlock turns the pending pool into a block: the next witness in round
// robin proposes it, it is mined at the current difficulty and put to the
// active witnesses. On acceptance the block is appended, the graph state
// replaced, rewards minted and the included events removed from the pool;
// the new height is returned. Any failure leaves chain, balances, graph and
// pool as they were.
func (o *Orchestrator) CreateBlock(ctx context.Context) (uint64, error) {
	o.blockMu.Lock()
	defer o.blockMu.Unlock()

	o.mu.RLock()
	events := slices.Clone(o.pending)
	o.mu.RUnlock()
	if len(events) == 0 {
		o.metrics.RecordRejection("empty_pool")
		return 0, ErrEmptyPool
	}

	active := o.witnesses.Active()
	proposer, err := consensus.Proposer(active, o.chain.Len())
	if err != nil {
		o.metrics.RecordRejection("no_witnesses")
		return 0, err
	}

	prev := o.chain.GetLatest()
	candidate, err := consensus.Propose(proposer, prev, events, o.clock.Now(), o.quorum.Strict)
	if err != nil {
		o.metrics.RecordRejection("apply_failed")
		o.log.Warn("proposal failed", "height", prev.Height+1, "error", err)
		return 0, err
	}

	difficulty := o.difficulty.Next(o.chain.Tail(o.difficulty.Window))
	start := o.clock.Now()
	if err := candidate.Mine(ctx, difficulty); err != nil {
		o.metrics.RecordRejection("mining_aborted")
		return 0, fmt.Errorf("mining block %d: %w", candidate.Height, err)
	}
	o.metrics.ObserveMining(o.clock.Since(start))

	tally, err := o.quorum.Collect(ctx, active, candidate, prev)
	if err != nil {
		o.metrics.RecordRejection("vote_failed")
		return 0, err
	}
	if !tally.Accepted() {
		o.metrics.RecordRejection("quorum")
		o.log.Warn("block rejected", "height", candidate.Height, "accepts", tally.Accepts, "required", tally.Required, "reasons", tally.Reasons())
		return 0, fmt.Errorf("%w: %d/%d accepts: %s", consensus.ErrRejected, tally.Accepts, tally.Required, strings.Join(tally.Reasons(), "; "))
	}
	candidate.Votes = tally.Votes
	candidate.Metadata.Quorum = tally.Required

	rewards := Rewards(candidate, o.cfg.Rewards.Resonance)

	o.mu.Lock()
	if err := o.chain.Append(candidate); err != nil {
		o.mu.Unlock()
		o.metrics.RecordRejection("append_failed")
		return 0, err
	}
	o.state = candidate.Graph
	for addr, amt := range rewards {
		o.tokens.Mint(addr, amt)
	}
	o.removeIncluded(candidate.Events)
	pendingLeft := len(o.pending)
	o.mu.Unlock()

	o.metrics.RecordBlock(candidate.Height, o.tokens.TotalSupply(), candidate.Coherence)
	o.metrics.SetPending(pendingLeft)
	o.log.Info("block created",
		"height", candidate.Height,
		"hash", candidate.Hash,
		"witness", candidate.Witness,
		"events", len(candidate.Events),
		"difficulty", difficulty,
		"coherence", candidate.Coherence,
	)
	return candidate.Height, nil
}

// removeIncluded drops the events of a committed block from the pool. Events
// submitted while the block was being built stay pending. Callers hold mu.
func (o *Orchestrator) removeIncluded(included []event.Event) {
	done := make(map[string]struct{}, len(included))
	for _, e := range included {
		done[e.ID] = struct{}{}
		o.committed[e.ID] = struct{}{}
		delete(o.pendingID, e.ID)
	}
	o.pending = slices.DeleteFunc(o.pending, func(e event.Event) bool {
		_, ok := done[e.ID]
		return ok
	})
}

// Rewards returns the tokens minted for an accepted block, by address: reward
// for the witness and for every event sender, and half of it to the creator of
// the node each Validate event targets. A Validate event on a node missing
// from the block's graph earns nothing.
func Rewards(b ledger.Block, reward uint64) map[string]uint64 {
	out := map[string]uint64{b.Witness: reward}
	for _, e := range b.Events {
		if v, ok := e.Payload.(event.Validate); ok {
			n, found := b.Graph.Node(v.NodeID)
			if !found {
				continue
			}
			out[n.Creator] += reward / 2
		}
		out[e.Sender] += reward
	}
	return out
}
