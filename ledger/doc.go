// Package ledger implements the append-only chain of blocks recording every
// accepted round of events.
//
// # Core Components
//
// Blockchain: An append-only sequence of blocks starting from a mined genesis
// block, with hash chaining for tamper detection.
//
// Block: The events of one round, the graph state they produce, the proof of
// work nonce and the witness votes that accepted it.
//
// Vote: A signed witness decision about a candidate block hash.
//
// DifficultyPolicy: Retargets the number of leading zero hex digits required
// of a block hash from the mean interval of recent blocks.
//
// # Security Properties
//
// The chain provides:
//   - Verifiability: Verify recomputes every hash and checks every link
//   - Tamper detection: Any modification of a hashed field breaks the chain
//   - Accountability: Each block carries the signed votes of its quorum
//
// Votes and metadata are not covered by the block hash, so a block hash can be
// voted on before the votes are attached.
package ledger
