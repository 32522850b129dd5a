package ledger

import (
	"encoding/json"
	"errors"

	"github.com/luca-patrignani/resonance/identity"
)

type VoteValue string

const (
	VoteAccept VoteValue = "ACCEPT"
	VoteReject VoteValue = "REJECT"
)

// Vote is a witness decision about a candidate block.
type Vote struct {
	BlockHash string    `json:"block_hash"`
	VoterID   string    `json:"voter_id"`
	PublicKey string    `json:"public_key"`
	Value     VoteValue `json:"value"`
	Reason    string    `json:"reason,omitempty"`
	Signature []byte    `json:"signature"`
}

// serialize returns the JSON form of the vote with the signature cleared.
func (v *Vote) serialize() ([]byte, error) {
	tmp := *v
	tmp.Signature = nil
	return json.Marshal(tmp)
}

// Sign fills in the voter fields from id and signs the vote.
func (v *Vote) Sign(id *identity.Identity) error {
	v.VoterID = id.Address()
	v.PublicKey = id.PublicKey()
	b, err := v.serialize()
	if err != nil {
		return err
	}
	v.Signature, err = id.Sign(b)
	return err
}

// VerifySignature checks the signature and that the public key belongs to the voter.
func (v *Vote) VerifySignature() (bool, error) {
	if len(v.Signature) == 0 {
		return false, errors.New("missing signature")
	}
	addr, err := identity.DeriveAddress(v.PublicKey)
	if err != nil {
		return false, err
	}
	if addr != v.VoterID {
		return false, nil
	}
	b, err := v.serialize()
	if err != nil {
		return false, err
	}
	return identity.Verify(v.PublicKey, b, v.Signature), nil
}
