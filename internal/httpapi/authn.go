package httpapi

import (
	"net/http"
	"strings"

	"tourney.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/api/login",
	"/api/register",
	"/api/schema",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth inspects the bearer credential once per request, before any
// operation dispatch. An absent header or a wrong scheme passes through
// anonymous; a present, well-formed credential that fails verification is
// rejected here and never reaches a handler. Per-operation requirements
// are the policy table's job, not the gate's.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.codec == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(authHeader)
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		// Exact, case-sensitive scheme match. Anything else is not a
		// bearer credential and stays anonymous.
		if !strings.HasPrefix(header, bearer) {
			next.ServeHTTP(w, r)
			return
		}
		token := header[len(bearer):]
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := a.codec.Verify(token)
		if err != nil {
			writeError(w, r, http.StatusForbidden, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), identity)))
	})
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
