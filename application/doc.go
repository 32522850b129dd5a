// Package application wires the ledger components into a single node.
//
// The Orchestrator owns all mutable state. Clients create identities, sign
// events and submit them to the pending pool; a surrounding loop calls
// CreateBlock to turn the pool into a block:
//
//  1. the next active witness in round robin proposes a block on a copy of
//     the current graph
//  2. the block is mined at the difficulty the recent block times call for
//  3. active witnesses validate it in parallel and sign their votes
//  4. once the quorum accepts, the block is appended and rewards are minted
//
// A block that fails at any step leaves no trace.
package application
