package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("admin123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "admin123" || !strings.HasPrefix(digest, "$2") {
		t.Fatalf("digest does not look like bcrypt: %q", digest)
	}

	ok, err := h.Verify("admin123", digest)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("correct password rejected")
	}

	ok, err = h.Verify("admin124", digest)
	if err != nil {
		t.Fatalf("Verify mismatch should not error: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestBcryptHasherDistinctDigests(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	a, err := h.Hash("secret-password")
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Hash("secret-password")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ by salt")
	}
}

func TestBcryptHasherMalformedDigest(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	ok, err := h.Verify("whatever", "not-a-bcrypt-digest")
	if err == nil {
		t.Fatal("malformed digest must surface an error")
	}
	if ok {
		t.Fatal("malformed digest must never verify")
	}
}

func TestBcryptHasherCostClamped(t *testing.T) {
	// Out-of-range costs fall back instead of failing at hash time.
	for _, cost := range []int{-1, 0, 99} {
		h := NewBcryptHasher(cost)
		if _, err := h.Hash("pw"); err != nil {
			t.Fatalf("cost %d: %v", cost, err)
		}
	}
}
