// Package consensus implements witness based block finalization.
//
// Witnesses are staked participants. The active set is drawn from the pool by
// stake times participation, the proposer for each height is chosen round
// robin, and a mined candidate is appended only when enough active witnesses
// accept it.
//
// # Core Components
//
// Registry: The witness pool and its active subset.
//
// Propose: Applies pending events to a copy of the previous graph snapshot.
//
// Quorum: The voting rules. Validate is the read-only check a witness runs on
// a candidate; Collect runs it for every active witness in parallel and
// returns the signed votes.
//
// # Validation
//
// A witness rejects a candidate that does not extend the previous block,
// carries an event with a bad signature, fails its proof of work, claims a
// state its events do not produce, or lowers global coherence by more than the
// configured tolerance.
//
// Only majority voting is modeled. There is no protection against witnesses
// that lie about their vote.
package consensus
