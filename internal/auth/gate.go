package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Credentials is what the gate needs to know about a stored account.
type Credentials struct {
	Subject      string
	PasswordHash string
	Roles        []string
}

// Directory resolves a login handle to stored credentials. Implemented by
// the account service; the gate never touches the store directly.
type Directory interface {
	LookupHandle(ctx context.Context, handle string) (Credentials, error)
}

// Gate terminates the login handshake. It is the only path in the system
// that mints tokens.
type Gate struct {
	dir   Directory
	codec *Codec
	ttl   time.Duration
}

const defaultTokenTTL = 30 * time.Minute

// NewGate wires the gate to a directory and a codec. A non-positive ttl
// falls back to the default.
func NewGate(dir Directory, codec *Codec, ttl time.Duration) (*Gate, error) {
	if dir == nil {
		return nil, errors.New("auth: directory is required")
	}
	if codec == nil {
		return nil, errors.New("auth: codec is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Gate{dir: dir, codec: codec, ttl: ttl}, nil
}

// TTL reports the configured token lifetime.
func (g *Gate) TTL() time.Duration { return g.ttl }

// Login validates the handle/password pair and issues a token carrying the
// account's current role names. Unknown handle and wrong password are
// indistinguishable to the caller.
func (g *Gate) Login(ctx context.Context, handle, rawPassword string) (string, time.Time, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" || rawPassword == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}
	creds, err := g.dir.LookupHandle(ctx, handle)
	if err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(creds.PasswordHash, rawPassword); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	identity := Identity{Subject: creds.Subject, Roles: dedupeRoles(creds.Roles)}
	token, err := g.codec.Issue(identity, g.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, g.codec.now().UTC().Add(g.ttl), nil
}
