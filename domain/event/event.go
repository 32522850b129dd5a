package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/luca-patrignani/resonance/domain/graph"
	"github.com/luca-patrignani/resonance/identity"
)

var ErrInvalidEvent = errors.New("invalid event")

var structValidator = validator.New()

// Event is a signed ledger operation.
type Event struct {
	ID        string
	Sender    string
	PublicKey string
	Timestamp int64
	Payload   Payload
	Signature []byte
}

type wire struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Sender    string          `json:"sender"`
	PublicKey string          `json:"public_key"`
	Timestamp int64           `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
	Signature []byte          `json:"sig,omitempty"`
}

// New builds an unsigned event sent by id at time at.
func New(id *identity.Identity, p Payload, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Sender:    id.Address(),
		PublicKey: id.PublicKey(),
		Timestamp: at.UnixNano(),
		Payload:   p,
	}
}

// Kind returns the payload kind, or "" when the payload is missing.
func (e Event) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

// Canonical returns the bytes covered by the signature.
func (e Event) Canonical() ([]byte, error) {
	w, err := e.toWire()
	if err != nil {
		return nil, err
	}
	w.Signature = nil
	return json.Marshal(w)
}

func (e Event) toWire() (wire, error) {
	if e.Payload == nil {
		return wire{}, fmt.Errorf("%w: missing payload", ErrInvalidEvent)
	}
	p, err := json.Marshal(e.Payload)
	if err != nil {
		return wire{}, err
	}
	return wire{
		ID:        e.ID,
		Kind:      e.Payload.Kind(),
		Sender:    e.Sender,
		PublicKey: e.PublicKey,
		Timestamp: e.Timestamp,
		Payload:   p,
		Signature: e.Signature,
	}, nil
}

// Sign signs the canonical form with id, which must be the sender.
func (e *Event) Sign(id *identity.Identity) error {
	if id.Address() != e.Sender {
		return fmt.Errorf("%w: signer %s is not sender %s", ErrInvalidEvent, id.Address(), e.Sender)
	}
	b, err := e.Canonical()
	if err != nil {
		return err
	}
	sig, err := id.Sign(b)
	if err != nil {
		return err
	}
	e.Signature = sig
	return nil
}

// Validate checks structure, sender address and signature. It never mutates e.
func (e Event) Validate() error {
	switch e.Payload.(type) {
	case Contribute, Validate, Evolve, Anchor:
	case nil:
		return fmt.Errorf("%w: missing payload", ErrInvalidEvent)
	default:
		return fmt.Errorf("%w: unsupported payload %T", ErrInvalidEvent, e.Payload)
	}
	if len(e.Signature) == 0 {
		return fmt.Errorf("%w: missing signature", ErrInvalidEvent)
	}
	if e.ID == "" || e.Sender == "" {
		return fmt.Errorf("%w: missing id or sender", ErrInvalidEvent)
	}
	if err := structValidator.Struct(e.Payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidEvent, e.Payload.Kind(), err)
	}
	addr, err := identity.DeriveAddress(e.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if addr != e.Sender {
		return fmt.Errorf("%w: public key does not match sender %s", ErrInvalidEvent, e.Sender)
	}
	b, err := e.Canonical()
	if err != nil {
		return err
	}
	if !identity.Verify(e.PublicKey, b, e.Signature) {
		return fmt.Errorf("%w: bad signature", ErrInvalidEvent)
	}
	return nil
}

// Clone returns a copy of e that shares no slices with it.
func (e Event) Clone() Event {
	e.Signature = slices.Clone(e.Signature)
	if c, ok := e.Payload.(Contribute); ok {
		c.Edges = slices.Clone(c.Edges)
		e.Payload = c
	}
	return e
}

// ResultNodeID returns the id of the node the event creates when applied.
func (e Event) ResultNodeID() (string, bool) {
	switch p := e.Payload.(type) {
	case Contribute:
		return graph.NodeID(e.Sender, p.Content, e.Timestamp), true
	case Evolve:
		return graph.NodeID(e.Sender, p.NewContent, e.Timestamp), true
	case Anchor:
		return graph.NodeID(e.Sender, AnchorPrefix+p.Summary, e.Timestamp), true
	}
	return "", false
}

func (e Event) MarshalJSON() ([]byte, error) {
	w, err := e.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	p, err := decodePayload(w.Kind, w.Payload)
	if err != nil {
		return err
	}
	*e = Event{
		ID:        w.ID,
		Sender:    w.Sender,
		PublicKey: w.PublicKey,
		Timestamp: w.Timestamp,
		Payload:   p,
		Signature: w.Signature,
	}
	return nil
}

func decodePayload(k Kind, raw json.RawMessage) (Payload, error) {
	switch k {
	case KindContribute:
		var p Contribute
		err := json.Unmarshal(raw, &p)
		return p, err
	case KindValidate:
		var p Validate
		err := json.Unmarshal(raw, &p)
		return p, err
	case KindEvolve:
		var p Evolve
		err := json.Unmarshal(raw, &p)
		return p, err
	case KindAnchor:
		var p Anchor
		err := json.Unmarshal(raw, &p)
		return p, err
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, k)
}
