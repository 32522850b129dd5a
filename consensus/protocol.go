package consensus

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/luca-patrignani/resonance/ledger"
)

// Quorum holds the voting rules shared by all witnesses.
type Quorum struct {
	// Threshold is the share of active witnesses that must accept.
	Threshold float64
	// Tolerance is the coherence drop allowed between consecutive blocks.
	Tolerance float64
	// Strict makes a Validate event on an unknown node invalidate the block.
	Strict bool
}

// Required returns the number of accepting votes needed out of n.
func (q Quorum) Required(n int) int { return computeQuorum(n, q.Threshold) }

// Collect asks every active witness to validate candidate against prev and
// gathers their signed votes. Witnesses vote in parallel and the round stops
// early once the outcome is decided, so Votes may hold fewer than len(active)
// entries.
func (q Quorum) Collect(ctx context.Context, active []*Witness, candidate, prev ledger.Block) (Tally, error) {
	n := len(active)
	if n == 0 {
		return Tally{}, ErrNoWitnesses
	}
	need := q.Required(n)

	decided, stop := context.WithCancel(ctx)
	defer stop()

	var accepts, rejects atomic.Int32
	votes := make([]*ledger.Vote, n)
	g := new(errgroup.Group)
	for i, w := range active {
		i, w := i, w
		g.Go(func() error {
			if decided.Err() != nil {
				return nil
			}
			v, err := q.vote(w, candidate, prev)
			if err != nil {
				return err
			}
			votes[i] = &v
			if v.Value == ledger.VoteAccept {
				if int(accepts.Add(1)) >= need {
					stop()
				}
			} else if n-int(rejects.Add(1)) < need {
				stop()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Tally{}, err
	}
	if err := ctx.Err(); err != nil {
		return Tally{}, err
	}

	t := Tally{Active: n, Required: need}
	for _, v := range votes {
		if v == nil {
			continue
		}
		t.Votes = append(t.Votes, *v)
		if v.Value == ledger.VoteAccept {
			t.Accepts++
		} else {
			t.Rejects++
		}
	}
	return t, nil
}

func (q Quorum) vote(w *Witness, candidate, prev ledger.Block) (ledger.Vote, error) {
	v := ledger.Vote{BlockHash: candidate.Hash, Value: ledger.VoteAccept}
	if err := q.Validate(candidate, prev); err != nil {
		v.Value = ledger.VoteReject
		v.Reason = reason(err)
	}
	if err := v.Sign(w.Identity); err != nil {
		return ledger.Vote{}, err
	}
	return v, nil
}

func reason(err error) string {
	for _, known := range []error{ErrBrokenLink, ErrBadProof, ErrStateMismatch, ErrCoherenceRegression} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
