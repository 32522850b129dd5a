package consensus

import (
	"context"
	"testing"
	"time"

	"github.com/luca-patrignani/resonance/domain/event"
	"github.com/luca-patrignani/resonance/identity"
	"github.com/luca-patrignani/resonance/ledger"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.New()
	if err != nil {
		t.Fatalf("failed to create identity: %v", err)
	}
	return id
}

func newWitnesses(t *testing.T, n int) []*Witness {
	t.Helper()
	r := NewRegistry(1)
	for i := 0; i < n; i++ {
		if _, err := r.Register(newIdentity(t), 1); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return r.SelectActive(n)
}

func genesisBlock(t *testing.T) ledger.Block {
	t.Helper()
	bc, err := ledger.NewBlockchain(context.Background(), epoch, 1)
	if err != nil {
		t.Fatalf("failed to create blockchain: %v", err)
	}
	return bc.GetLatest()
}

func signedEvent(t *testing.T, id *identity.Identity, p event.Payload, at time.Time) event.Event {
	t.Helper()
	e := event.New(id, p, at)
	if err := e.Sign(id); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return e
}

// minedCandidate proposes and mines the block following prev.
func minedCandidate(t *testing.T, w *Witness, prev ledger.Block, events []event.Event, strict bool) ledger.Block {
	t.Helper()
	b, err := Propose(w, prev, events, time.Unix(0, prev.Timestamp).Add(5*time.Second), strict)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if err := b.Mine(context.Background(), 1); err != nil {
		t.Fatalf("Mine failed: %v", err)
	}
	return b
}
