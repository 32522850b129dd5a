// Package identity provides the key material of ledger participants.
//
// An identity holds an Ed25519 secret scalar, the matching public key and an
// address, which is the first 40 hex characters of the sha3-256 digest of the
// public key. Events and witness votes are signed with Schnorr signatures over
// the Ed25519 group, so any party can verify them from the public key alone.
//
// The package also keeps the legacy integrity tag, digest(secret ‖ data), for
// callers that only need to check their own payloads.
package identity
