package identity

import (
	"strings"
	"testing"
)

func TestSignAndVerify(t *testing.T) {
	id, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	data := []byte(`{"kind":"contribute"}`)
	sig, err := id.Sign(data)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if !Verify(id.PublicKey(), data, sig) {
		t.Fatalf("signature verification failed")
	}
}

func TestVerifyFailsIfTampered(t *testing.T) {
	id, _ := New()
	sig, err := id.Sign([]byte("score=0.8"))
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if Verify(id.PublicKey(), []byte("score=0.9"), sig) {
		t.Fatalf("tampered payload should not verify")
	}
	other, _ := New()
	if Verify(other.PublicKey(), []byte("score=0.8"), sig) {
		t.Fatalf("signature should not verify under another key")
	}
	if Verify(id.PublicKey(), []byte("score=0.8"), nil) {
		t.Fatalf("missing signature should not verify")
	}
	if Verify("not-hex", []byte("score=0.8"), sig) {
		t.Fatalf("malformed public key should not verify")
	}
}

// TestAddressIsStable verifies that the address is a deterministic function of the
// public key and survives a round trip through the exported secret.
func TestAddressIsStable(t *testing.T) {
	id, _ := New()
	if len(id.Address()) != AddressLength {
		t.Fatalf("address should have %d chars, got %d", AddressLength, len(id.Address()))
	}
	derived, err := DeriveAddress(id.PublicKey())
	if err != nil {
		t.Fatalf("DeriveAddress failed: %v", err)
	}
	if derived != id.Address() {
		t.Fatalf("derived address %s differs from %s", derived, id.Address())
	}

	restored, err := FromSecret(id.Secret())
	if err != nil {
		t.Fatalf("FromSecret failed: %v", err)
	}
	if restored.Address() != id.Address() || restored.PublicKey() != id.PublicKey() {
		t.Fatalf("restored identity differs from original")
	}
}

func TestDistinctIdentities(t *testing.T) {
	a, _ := New()
	b, _ := New()
	if a.Address() == b.Address() {
		t.Fatalf("two fresh identities share address %s", a.Address())
	}
}

func TestFromSecretRejectsGarbage(t *testing.T) {
	if _, err := FromSecret("zz"); err == nil {
		t.Fatal("expected error for non-hex secret")
	}
	if _, err := FromSecret("abcd"); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestTag(t *testing.T) {
	id, _ := New()
	data := []byte("anchor")
	tag := id.Tag(data)
	if tag != id.Tag(data) {
		t.Fatal("tag should be deterministic")
	}
	if !id.VerifyTag(tag, data) {
		t.Fatal("tag should verify")
	}
	if id.VerifyTag(tag, []byte("anchor!")) {
		t.Fatal("tag of different data should not verify")
	}
	other, _ := New()
	if other.VerifyTag(tag, data) {
		t.Fatal("tag should not verify under another secret")
	}
}

func TestDigest(t *testing.T) {
	d := Digest([]byte("a"), []byte("b"))
	if d != Digest([]byte("ab")) {
		t.Fatal("digest should hash the concatenation")
	}
	if len(d) != 64 || strings.ToLower(d) != d {
		t.Fatalf("unexpected digest format %q", d)
	}
}
