package consensus

import (
	"errors"

	"github.com/luca-patrignani/resonance/identity"
	"github.com/luca-patrignani/resonance/ledger"
)

var (
	ErrRejected          = errors.New("block rejected by witnesses")
	ErrNoWitnesses       = errors.New("no active witnesses")
	ErrStakeTooLow       = errors.New("stake below witness minimum")
	ErrAlreadyRegistered = errors.New("witness already registered")

	// Reasons a witness rejects a candidate.
	ErrBrokenLink          = errors.New("candidate does not extend previous block")
	ErrBadProof            = errors.New("candidate hash is not a valid proof of work")
	ErrStateMismatch       = errors.New("candidate state does not match its events")
	ErrCoherenceRegression = errors.New("coherence regression")
)

// Witness is a staked participant allowed to propose and vote on blocks.
type Witness struct {
	Identity      *identity.Identity
	Stake         uint64
	Participation float64
}

func (w *Witness) Address() string { return w.Identity.Address() }

func (w *Witness) weight() float64 { return float64(w.Stake) * w.Participation }

// Tally is the outcome of a vote round on one candidate.
type Tally struct {
	Votes    []ledger.Vote
	Accepts  int
	Rejects  int
	Active   int
	Required int
}

// Accepted reports whether enough witnesses approved the candidate.
func (t Tally) Accepted() bool { return t.Active > 0 && t.Accepts >= t.Required }

// Reasons returns the distinct rejection reasons, in vote order.
func (t Tally) Reasons() []string {
	var out []string
	seen := map[string]bool{}
	for _, v := range t.Votes {
		if v.Value == ledger.VoteReject && !seen[v.Reason] {
			seen[v.Reason] = true
			out = append(out, v.Reason)
		}
	}
	return out
}
