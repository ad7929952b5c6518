package auth

import (
	"context"
	"strings"
)

// Identity is the authenticated subject plus its role names, reconstructed
// from a verified token. It lives for one request and is never persisted.
type Identity struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the identity carries the named role.
func (i Identity) HasRole(role string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type identityContextKey struct{}

// ContextWithIdentity attaches the request identity to the context.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	identity.Subject = strings.TrimSpace(identity.Subject)
	identity.Roles = dedupeRoles(identity.Roles)
	return context.WithValue(ctx, identityContextKey{}, &identity)
}

// IdentityFromContext extracts the request identity, if one was installed.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || v == nil || v.Subject == "" {
		return Identity{}, false
	}
	return *v, true
}

// dedupeRoles drops blank and repeated role names while keeping order.
// Persisted role lists may carry duplicates; identities never do.
func dedupeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	var out []string
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
