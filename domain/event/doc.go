// Package event defines the signed operations that mutate the content graph.
//
// # Kinds
//
//   - Contribute adds a node, optionally linked to existing ones.
//   - Validate scores an existing node.
//   - Evolve derives a child node fully linked to its parent.
//   - Anchor records a summary of an external artifact.
//
// # Lifecycle
//
// An Event is built with New, signed with Sign and checked with Validate.
// Validate is pure: it checks the payload fields and the signature over the
// canonical encoding, which excludes the signature itself. Apply then folds
// an event into a graph. An Evolve naming an unknown parent always fails with
// an ApplyError. A Validate naming an unknown node fails only in strict mode
// and is skipped otherwise.
package event
