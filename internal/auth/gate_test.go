package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDirectory map[string]Credentials

func (d fakeDirectory) LookupHandle(_ context.Context, handle string) (Credentials, error) {
	creds, ok := d[handle]
	if !ok {
		return Credentials{}, errors.New("not found")
	}
	return creds, nil
}

func TestGateLogin(t *testing.T) {
	codec := testCodec(t)
	hash, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	dir := fakeDirectory{
		"alice": {Subject: "alice", PasswordHash: hash, Roles: []string{"ROLE_USER", "ROLE_USER", "ROLE_ADMIN"}},
	}
	gate, err := NewGate(dir, codec, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	token, expiresAt, err := gate.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	identity, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.Subject != "alice" {
		t.Fatalf("unexpected subject: %s", identity.Subject)
	}
	if len(identity.Roles) != 2 {
		t.Fatalf("expected role names deduplicated in the token, got %v", identity.Roles)
	}
}

func TestGateLoginRejections(t *testing.T) {
	codec := testCodec(t)
	hash, _ := HashPassword("pw1")
	dir := fakeDirectory{
		"alice": {Subject: "alice", PasswordHash: hash, Roles: []string{"ROLE_USER"}},
	}
	gate, err := NewGate(dir, codec, 0)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	if gate.TTL() != defaultTokenTTL {
		t.Fatalf("expected default ttl, got %v", gate.TTL())
	}

	cases := []struct{ handle, password string }{
		{"alice", "wrong"},
		{"nobody", "pw1"},
		{"", "pw1"},
		{"alice", ""},
	}
	for _, tc := range cases {
		if _, _, err := gate.Login(context.Background(), tc.handle, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login(%q, %q): expected ErrInvalidCredentials, got %v", tc.handle, tc.password, err)
		}
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := VerifyPassword(hash, "s3cret"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "other"); err == nil {
		t.Fatal("expected mismatch error")
	}
}
