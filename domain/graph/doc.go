// Package graph holds the content graph: nodes of text linked by weighted,
// bidirectional edges, each carrying a coherence score raised by validations.
//
// A Graph is a persistent value. Copies and Clone share structure, and
// mutating one copy never affects another, so a block can keep the graph it
// produced while the next candidate is built from it.
package graph
