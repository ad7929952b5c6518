package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"
)

func testCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	codec, err := NewCodecFromKey(key, opts...)
	if err != nil {
		t.Fatalf("NewCodecFromKey: %v", err)
	}
	return codec
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	codec := testCodec(t)

	token, err := codec.Issue(Identity{
		Subject: "alice",
		Roles:   []string{"ROLE_USER", "ROLE_ADMIN", "ROLE_USER"},
	}, 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	identity, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.Subject != "alice" {
		t.Fatalf("unexpected subject: %s", identity.Subject)
	}
	if len(identity.Roles) != 2 {
		t.Fatalf("expected deduplicated roles, got %v", identity.Roles)
	}
	if !identity.HasRole("ROLE_USER") || !identity.HasRole("ROLE_ADMIN") {
		t.Fatalf("roles not preserved: %v", identity.Roles)
	}
}

func TestVerifyExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	codec := testCodec(t, WithClock(func() time.Time { return clock }))

	token, err := codec.Issue(Identity{Subject: "alice", Roles: []string{"ROLE_USER"}}, 10*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock = now.Add(9 * time.Minute)
	if _, err := codec.Verify(token); err != nil {
		t.Fatalf("token should still verify inside its lifetime: %v", err)
	}

	clock = now.Add(11 * time.Minute)
	if _, err := codec.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	codec := testCodec(t)
	token, err := codec.Issue(Identity{Subject: "alice", Roles: []string{"ROLE_USER"}}, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := codec.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	if _, err := codec.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	codec := testCodec(t)
	other := testCodec(t)

	token, err := other.Issue(Identity{Subject: "mallory", Roles: []string{"ROLE_USER"}}, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	issuerA, _ := NewCodecFromKey(key, WithIssuer("issuer-a"))
	issuerB, _ := NewCodecFromKey(key, WithIssuer("issuer-b"))

	token, err := issuerA.Issue(Identity{Subject: "alice", Roles: []string{"ROLE_USER"}}, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuerB.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyMalformedClaims(t *testing.T) {
	codec := testCodec(t)

	// A token issued with no roles carries an empty roles claim, which is a
	// malformed-claims failure on verify, never an anonymous identity.
	token, err := codec.Issue(Identity{Subject: "alice"}, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Verify(token); !errors.Is(err, ErrMalformedClaims) {
		t.Fatalf("expected ErrMalformedClaims, got %v", err)
	}
}

func TestIssueValidatesArguments(t *testing.T) {
	codec := testCodec(t)
	if _, err := codec.Issue(Identity{Subject: "  "}, time.Minute); err == nil {
		t.Fatal("expected error for blank subject")
	}
	if _, err := codec.Issue(Identity{Subject: "alice", Roles: []string{"ROLE_USER"}}, 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

func TestNewCodecRequiresKeyMaterial(t *testing.T) {
	if _, err := NewCodec("", ""); err == nil {
		t.Fatal("expected error for missing PEM material")
	}
	if _, err := NewCodec("garbage", "garbage"); err == nil {
		t.Fatal("expected error for unparseable PEM material")
	}
}
