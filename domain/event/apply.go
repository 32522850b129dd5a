package event

import (
	"errors"
	"fmt"

	"github.com/luca-patrignani/resonance/domain/graph"
)

// ApplyError reports the event that could not be applied to a graph.
type ApplyError struct {
	EventID string
	Kind    Kind
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s event %s: %v", e.Kind, e.EventID, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Apply mutates g according to the event variant.
//
// With strict unset, a Validate event that names an unknown node is a no-op.
func Apply(g *graph.Graph, e Event, strict bool) error {
	var err error
	switch p := e.Payload.(type) {
	case Contribute:
		_, err = g.AddNode(p.Content, e.Sender, e.Timestamp, p.Edges)
	case Validate:
		err = g.ValidateNode(p.NodeID, p.Score)
		if !strict && errors.Is(err, graph.ErrNodeNotFound) {
			err = nil
		}
	case Evolve:
		_, err = g.EvolveNode(p.ParentID, p.NewContent, e.Sender, e.Timestamp)
	case Anchor:
		_, err = g.AddNode(AnchorPrefix+p.Summary, e.Sender, e.Timestamp, nil)
	default:
		err = fmt.Errorf("%w: missing payload", ErrInvalidEvent)
	}
	if err != nil {
		return &ApplyError{EventID: e.ID, Kind: e.Kind(), Err: err}
	}
	return nil
}

// ApplyAll applies events in order and stops at the first failure.
func ApplyAll(g *graph.Graph, events []Event, strict bool) error {
	for _, e := range events {
		if err := Apply(g, e, strict); err != nil {
			return err
		}
	}
	return nil
}
