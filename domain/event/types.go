package event

import "github.com/luca-patrignani/resonance/domain/graph"

type Kind string

const (
	KindContribute Kind = "contribute"
	KindValidate   Kind = "validate"
	KindEvolve     Kind = "evolve"
	KindAnchor     Kind = "anchor"
)

// AnchorPrefix marks nodes created by anchoring events.
const AnchorPrefix = "ANCHOR: "

// Payload is one of Contribute, Validate, Evolve or Anchor.
type Payload interface {
	Kind() Kind
	sealed()
}

// Contribute adds new content to the graph, optionally linked to existing nodes.
type Contribute struct {
	Content string       `json:"content" validate:"required"`
	Context string       `json:"context"`
	Edges   []graph.Edge `json:"edges" validate:"dive"`
}

// Validate scores an existing node.
type Validate struct {
	NodeID string  `json:"node_id" validate:"required"`
	Proof  string  `json:"proof"`
	Score  float64 `json:"score" validate:"gte=0,lte=1"`
}

// Evolve derives new content from a parent node.
type Evolve struct {
	ParentID       string `json:"parent_id" validate:"required"`
	MutationPrompt string `json:"mutation_prompt"`
	NewContent     string `json:"new_content" validate:"required"`
}

// Anchor attests an external artifact by its hash.
type Anchor struct {
	Summary      string `json:"summary" validate:"required"`
	ExternalHash string `json:"external_hash"`
}

func (Contribute) Kind() Kind { return KindContribute }
func (Validate) Kind() Kind   { return KindValidate }
func (Evolve) Kind() Kind     { return KindEvolve }
func (Anchor) Kind() Kind     { return KindAnchor }

func (Contribute) sealed() {}
func (Validate) sealed()   {}
func (Evolve) sealed()     {}
func (Anchor) sealed()     {}
