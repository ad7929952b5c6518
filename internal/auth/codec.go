package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "tourney"

// Claims is the wire shape of a token. Roles is a single space-joined
// string, not an array.
type Claims struct {
	Roles string `json:"roles"`
	jwt.RegisteredClaims
}

// Codec issues and verifies RS256-signed identity tokens. Verification is
// pure: no revocation list is consulted, expiry is the only invalidation.
type Codec struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	issuer  string
	now     func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithIssuer overrides the issuer claim stamped into and expected from tokens.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		if trimmed := strings.TrimSpace(issuer); trimmed != "" {
			c.issuer = trimmed
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec parses PEM key material and builds a codec. Missing or broken
// keys fail here, at startup, never per request.
func NewCodec(privatePEM, publicPEM string, opts ...CodecOption) (*Codec, error) {
	privatePEM = strings.TrimSpace(privatePEM)
	publicPEM = strings.TrimSpace(publicPEM)
	if privatePEM == "" || publicPEM == "" {
		return nil, errors.New("auth: both private and public keys are required")
	}
	priv, err := parseRSAPrivateKey(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("auth: parse private key: %w", err)
	}
	pub, err := parseRSAPublicKey(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	return newCodec(priv, pub, opts...), nil
}

// NewCodecFromKey builds a codec from an in-memory key pair. Used by the dev
// bootstrap path and by tests.
func NewCodecFromKey(private *rsa.PrivateKey, opts ...CodecOption) (*Codec, error) {
	if private == nil {
		return nil, errors.New("auth: private key is required")
	}
	return newCodec(private, &private.PublicKey, opts...), nil
}

func newCodec(priv *rsa.PrivateKey, pub *rsa.PublicKey, opts ...CodecOption) *Codec {
	c := &Codec{
		private: priv,
		public:  pub,
		issuer:  defaultIssuer,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs a token for the identity with the given lifetime. The role set
// is joined with single spaces; duplicates are dropped.
func (c *Codec) Issue(identity Identity, ttl time.Duration) (string, error) {
	subject := strings.TrimSpace(identity.Subject)
	if subject == "" {
		return "", errors.New("auth: subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("auth: ttl must be greater than zero")
	}
	now := c.now().UTC()
	claims := Claims{
		Roles: strings.Join(dedupeRoles(identity.Roles), " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(c.private)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes the token, checks the signature and expiry, and rebuilds
// the identity from the claims. Failures are reported as ErrInvalidToken,
// ErrExpiredToken or ErrMalformedClaims; a bad token never degrades to an
// anonymous identity.
func (c *Codec) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodRS256 {
			return nil, ErrInvalidToken
		}
		return c.public, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Identity{}, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, ErrExpiredToken
		default:
			return Identity{}, ErrInvalidToken
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Issuer != c.issuer {
		return Identity{}, ErrInvalidToken
	}
	if claims.IssuedAt != nil && claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(claims.IssuedAt.Time) {
		return Identity{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, fmt.Errorf("%w: subject missing", ErrMalformedClaims)
	}
	roles := strings.Fields(claims.Roles)
	if len(roles) == 0 {
		return Identity{}, fmt.Errorf("%w: roles missing", ErrMalformedClaims)
	}
	return Identity{Subject: strings.TrimSpace(claims.Subject), Roles: dedupeRoles(roles)}, nil
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid PEM private key")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("unsupported private key type")
	default:
		return nil, fmt.Errorf("unsupported private key type %s", block.Type)
	}
}

func parseRSAPublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid PEM public key")
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if rsaKey, ok := key.(*rsa.PublicKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("unsupported public key type")
	default:
		return nil, fmt.Errorf("unsupported public key type %s", block.Type)
	}
}
