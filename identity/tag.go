package identity

import "crypto/subtle"

// Tag computes the integrity tag digest(secret ‖ data).
//
// The tag is deterministic and can only be checked by a holder of the secret,
// so it is not a signature. Events and votes use Sign/Verify instead.
func (id *Identity) Tag(data []byte) string {
	s, _ := id.secret.MarshalBinary()
	return Digest(s, data)
}

// VerifyTag recomputes the tag of data and compares it with tag.
func (id *Identity) VerifyTag(tag string, data []byte) bool {
	return subtle.ConstantTimeCompare([]byte(tag), []byte(id.Tag(data))) == 1
}
