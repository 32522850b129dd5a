package ledger

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/luca-patrignani/resonance/domain/event"
	"github.com/luca-patrignani/resonance/domain/graph"
	"github.com/luca-patrignani/resonance/identity"
)

// MaxDifficulty is the length of a hex encoded block hash.
const MaxDifficulty = 64

// Block bundles the events of one round with the graph state they produce.
type Block struct {
	Height     uint64        `json:"height"`
	Timestamp  int64         `json:"timestamp"`
	PrevHash   string        `json:"prev_hash"`
	Hash       string        `json:"hash"`
	Witness    string        `json:"witness"`
	Events     []event.Event `json:"events"`
	Coherence  float64       `json:"coherence"`
	Nonce      uint64        `json:"nonce"`
	Difficulty int           `json:"difficulty"`
	Votes      []Vote        `json:"votes"`    // Quorum votes
	Metadata   Metadata      `json:"metadata"` // Not covered by Hash
	Graph      graph.Graph   `json:"-"`        // Resulting graph snapshot
}

type Metadata struct {
	Quorum int               `json:"quorum"`
	Extra  map[string]string `json:"extra,omitempty"`
}

type header struct {
	Height     uint64            `json:"height"`
	PrevHash   string            `json:"prev_hash"`
	Witness    string            `json:"witness"`
	Timestamp  int64             `json:"timestamp"`
	Nonce      uint64            `json:"nonce"`
	Difficulty int               `json:"difficulty"`
	Coherence  float64           `json:"coherence"`
	Events     []json.RawMessage `json:"events"`
}

// ComputeHash returns the sha3-256 of the block header and the canonical form
// of its events. It depends only on the field values.
func (b *Block) ComputeHash() string {
	return b.hashWith(b.canonicalEvents())
}

func (b *Block) canonicalEvents() []json.RawMessage {
	out := make([]json.RawMessage, len(b.Events))
	for i, e := range b.Events {
		out[i], _ = e.Canonical()
	}
	return out
}

func (b *Block) hashWith(events []json.RawMessage) string {
	data, _ := json.Marshal(header{
		Height:     b.Height,
		PrevHash:   b.PrevHash,
		Witness:    b.Witness,
		Timestamp:  b.Timestamp,
		Nonce:      b.Nonce,
		Difficulty: b.Difficulty,
		Coherence:  b.Coherence,
		Events:     events,
	})
	return identity.Digest(data)
}

// Mine searches for a nonce whose hash starts with difficulty zeros.
// It blocks until it finds one or ctx is done.
func (b *Block) Mine(ctx context.Context, difficulty int) error {
	events := b.canonicalEvents()
	b.Difficulty = difficulty
	b.Nonce = 0
	for {
		b.Hash = b.hashWith(events)
		if MeetsDifficulty(b.Hash, difficulty) {
			return nil
		}
		b.Nonce++
		if b.Nonce%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

// MeetsDifficulty reports whether hash has at least difficulty leading zero digits.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	return len(hash) >= difficulty && strings.Count(hash[:difficulty], "0") == difficulty
}

// detached returns a copy of b sharing no mutable memory with it. The graph
// is persistent and is shared as is.
func (b Block) detached() Block {
	out := b
	out.Events = make([]event.Event, len(b.Events))
	for i, e := range b.Events {
		out.Events[i] = e.Clone()
	}
	out.Votes = make([]Vote, len(b.Votes))
	for i, v := range b.Votes {
		v.Signature = slices.Clone(v.Signature)
		out.Votes[i] = v
	}
	out.Metadata.Extra = maps.Clone(b.Metadata.Extra)
	return out
}
