package token

import (
	"testing"
	"time"
)

func TestIssueParseRoundTrip(t *testing.T) {
	j := &JWTer{Secret: []byte("s3cr3t"), Issuer: "fleet", TTL: time.Hour}

	tok, err := j.Issue("u-1", "admin", "ADMIN")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := j.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UID != "u-1" || claims.Username != "admin" || claims.Role != "ADMIN" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("missing jti, revocation needs it")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	a := &JWTer{Secret: []byte("aaa"), Issuer: "fleet", TTL: time.Hour}
	b := &JWTer{Secret: []byte("bbb"), Issuer: "fleet", TTL: time.Hour}

	tok, err := a.Issue("u-1", "admin", "ADMIN")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Parse(tok); err == nil {
		t.Fatal("token signed with another secret parsed")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	a := &JWTer{Secret: []byte("s"), Issuer: "other-app", TTL: time.Hour}
	b := &JWTer{Secret: []byte("s"), Issuer: "fleet", TTL: time.Hour}

	tok, err := a.Issue("u-1", "admin", "ADMIN")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Parse(tok); err == nil {
		t.Fatal("token from another issuer parsed")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	j := &JWTer{Secret: []byte("s"), Issuer: "fleet", TTL: -5 * time.Minute}
	tok, err := j.Issue("u-1", "admin", "ADMIN")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Parse(tok); err == nil {
		t.Fatal("expired token parsed")
	}
}

func TestDistinctTokenIDs(t *testing.T) {
	j := &JWTer{Secret: []byte("s"), Issuer: "fleet", TTL: time.Hour}
	t1, _ := j.Issue("u-1", "admin", "ADMIN")
	t2, _ := j.Issue("u-1", "admin", "ADMIN")
	c1, err := j.Parse(t1)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := j.Parse(t2)
	if err != nil {
		t.Fatal(err)
	}
	if c1.ID == c2.ID {
		t.Fatal("two sessions share a jti; revoking one would revoke both")
	}
}
