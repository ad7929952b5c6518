package auth

import "context"

// Policy is the declarative access requirement attached to one exposed
// operation. The zero value is Public.
type Policy struct {
	authenticated bool
	role          string
}

var (
	// Public operations run with or without an identity.
	Public = Policy{}
	// Authenticated operations require any installed identity.
	Authenticated = Policy{authenticated: true}
)

// HasRole requires an identity carrying the named role.
func HasRole(role string) Policy {
	return Policy{authenticated: true, role: role}
}

// String renders the requirement for introspection output.
func (p Policy) String() string {
	switch {
	case p.role != "":
		return "role:" + p.role
	case p.authenticated:
		return "authenticated"
	default:
		return "public"
	}
}

// Check evaluates the policy against the identity installed on the context.
// It returns ErrUnauthorized when an identity is required but absent, and
// ErrForbidden when the identity lacks the required role.
func (p Policy) Check(ctx context.Context) error {
	if !p.authenticated {
		return nil
	}
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if p.role != "" && !identity.HasRole(p.role) {
		return ErrForbidden
	}
	return nil
}
