package identity

import (
	"encoding/hex"
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/sign/schnorr"
	"go.dedis.ch/kyber/v4/suites"
	"golang.org/x/crypto/sha3"
)

// AddressLength is the number of hex characters kept from the public key digest.
const AddressLength = 40

var suite suites.Suite = suites.MustFind("Ed25519")

var ErrInvalidKey = errors.New("invalid key material")

// Identity is the key material of a ledger participant. It is immutable once created.
type Identity struct {
	secret  kyber.Scalar
	public  kyber.Point
	pubHex  string
	address string
}

// New creates an identity from a fresh random secret.
func New() (*Identity, error) {
	return fromScalar(suite.Scalar().Pick(suite.RandomStream()))
}

// FromSecret restores an identity from the hex encoding returned by Secret.
func FromSecret(secretHex string) (*Identity, error) {
	b, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	s := suite.Scalar()
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return fromScalar(s)
}

func fromScalar(s kyber.Scalar) (*Identity, error) {
	pub := suite.Point().Mul(s, nil)
	pb, err := pub.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &Identity{
		secret:  s,
		public:  pub,
		pubHex:  hex.EncodeToString(pb),
		address: addressOf(pb),
	}, nil
}

// Address returns the stable address derived from the public key.
func (id *Identity) Address() string { return id.address }

// PublicKey returns the hex encoded public key.
func (id *Identity) PublicKey() string { return id.pubHex }

// Secret returns the hex encoded secret scalar.
// Warning: handle with care, anyone holding it can sign as this identity.
func (id *Identity) Secret() string {
	b, _ := id.secret.MarshalBinary()
	return hex.EncodeToString(b)
}

// Sign produces a Schnorr signature of data.
func (id *Identity) Sign(data []byte) ([]byte, error) {
	return schnorr.Sign(suite, id.secret, data)
}

// Verify reports whether sig is a valid signature of data under the hex encoded public key.
func Verify(publicKey string, data, sig []byte) bool {
	if len(sig) == 0 {
		return false
	}
	pub, err := parsePoint(publicKey)
	if err != nil {
		return false
	}
	return schnorr.Verify(suite, pub, data, sig) == nil
}

// DeriveAddress computes the address belonging to a hex encoded public key.
func DeriveAddress(publicKey string) (string, error) {
	p, err := parsePoint(publicKey)
	if err != nil {
		return "", err
	}
	b, err := p.MarshalBinary()
	if err != nil {
		return "", err
	}
	return addressOf(b), nil
}

func parsePoint(publicKey string) (kyber.Point, error) {
	b, err := hex.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	p := suite.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return p, nil
}

func addressOf(pub []byte) string {
	return Digest(pub)[:AddressLength]
}

// Digest returns the hex encoded sha3-256 of the concatenated parts.
func Digest(parts ...[]byte) string {
	h := sha3.New256()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
