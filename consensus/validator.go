package consensus

import (
	"fmt"
	"slices"
	"time"

	"github.com/luca-patrignani/resonance/domain/event"
	"github.com/luca-patrignani/resonance/ledger"
)

// Propose applies events in order to a copy of prev's graph and returns the
// resulting unmined block. prev is never modified.
func Propose(w *Witness, prev ledger.Block, events []event.Event, at time.Time, strict bool) (ledger.Block, error) {
	g := prev.Graph.Clone()
	if err := event.ApplyAll(&g, events, strict); err != nil {
		return ledger.Block{}, err
	}
	return ledger.Block{
		Height:    prev.Height + 1,
		Timestamp: at.UnixNano(),
		PrevHash:  prev.Hash,
		Witness:   w.Address(),
		Events:    slices.Clone(events),
		Coherence: g.GlobalCoherence(),
		Graph:     g,
	}, nil
}

// Validate is the check each witness runs on a mined candidate. It reads
// candidate and prev only.
func (q Quorum) Validate(candidate, prev ledger.Block) error {
	if candidate.PrevHash != prev.Hash || candidate.Height != prev.Height+1 {
		return ErrBrokenLink
	}
	for _, e := range candidate.Events {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	if candidate.Hash != candidate.ComputeHash() || !ledger.MeetsDifficulty(candidate.Hash, candidate.Difficulty) {
		return ErrBadProof
	}

	g := prev.Graph.Clone()
	if err := event.ApplyAll(&g, candidate.Events, q.Strict); err != nil {
		return err
	}
	if got := g.GlobalCoherence(); got != candidate.Coherence || g.Len() != candidate.Graph.Len() {
		return fmt.Errorf("%w: coherence %v, claimed %v", ErrStateMismatch, got, candidate.Coherence)
	}

	if candidate.Coherence < prev.Coherence-q.Tolerance {
		return fmt.Errorf("%w: %.4f < %.4f", ErrCoherenceRegression, candidate.Coherence, prev.Coherence)
	}
	return nil
}
