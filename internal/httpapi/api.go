package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"tourney.org/internal/account"
	"tourney.org/internal/auth"
	"tourney.org/internal/obs"
	"tourney.org/internal/tournament"
)

const serviceName = "tourney-api"

// ReadyProbe checks backing-store liveness for /readyz and the gRPC
// health service. A nil DB always reports ready (in-memory mode).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// operation binds one exposed endpoint to its access policy. The table is
// static; policy evaluation happens after the method is resolved and before
// the handler body runs.
type operation struct {
	Name   string
	Kind   string
	Method string
	Path   string
	Policy auth.Policy

	handler http.HandlerFunc
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	accounts    *account.Service
	tournaments *tournament.Service
	gate        *auth.Gate
	codec       *auth.Codec
	readyProbe  ReadyProbe
	version     string
	ops         []operation
}

func New(accounts *account.Service, tournaments *tournament.Service, gate *auth.Gate, codec *auth.Codec, rp ReadyProbe, version string) *API {
	a := &API{
		mux:         http.NewServeMux(),
		accounts:    accounts,
		tournaments: tournaments,
		gate:        gate,
		codec:       codec,
		readyProbe:  rp,
		version:     version,
	}

	a.ops = []operation{
		{Name: "login", Kind: "mutation", Method: http.MethodPost, Path: "/api/login", Policy: auth.Public, handler: a.handleLogin},
		{Name: "registerAccount", Kind: "mutation", Method: http.MethodPost, Path: "/api/register", Policy: auth.Public, handler: a.handleRegister},
		{Name: "getUsers", Kind: "query", Method: http.MethodGet, Path: "/api/users", Policy: auth.Public, handler: a.handleUsers},
		{Name: "getUser", Kind: "query", Method: http.MethodGet, Path: "/api/users/", Policy: auth.Public, handler: a.handleGetUser},
		{Name: "editAccount", Kind: "mutation", Method: http.MethodPost, Path: "/api/users/edit", Policy: auth.Authenticated, handler: a.handleEditAccount},
		{Name: "createRole", Kind: "mutation", Method: http.MethodPost, Path: "/api/roles", Policy: auth.HasRole(account.RoleAdmin), handler: a.handleCreateRole},
		{Name: "assignRole", Kind: "mutation", Method: http.MethodPost, Path: "/api/roles/assign", Policy: auth.HasRole(account.RoleAdmin), handler: a.handleAssignRole},
		{Name: "tournaments", Kind: "query", Method: http.MethodGet, Path: "/api/tournaments", Policy: auth.Public, handler: a.handleTournaments},
		{Name: "getTournament", Kind: "query", Method: http.MethodGet, Path: "/api/tournaments/", Policy: auth.Public, handler: a.handleGetTournament},
		{Name: "joinedTournaments", Kind: "query", Method: http.MethodGet, Path: "/api/tournaments/joined", Policy: auth.Authenticated, handler: a.handleJoinedTournaments},
		{Name: "createdTournaments", Kind: "query", Method: http.MethodGet, Path: "/api/tournaments/created", Policy: auth.Authenticated, handler: a.handleCreatedTournaments},
		{Name: "createTournament", Kind: "mutation", Method: http.MethodPost, Path: "/api/tournaments", Policy: auth.Authenticated, handler: a.handleCreateTournament},
		{Name: "join", Kind: "mutation", Method: http.MethodPost, Path: "/api/tournaments/join", Policy: auth.Authenticated, handler: a.handleJoin},
		{Name: "unjoin", Kind: "mutation", Method: http.MethodPost, Path: "/api/tournaments/unjoin", Policy: auth.Authenticated, handler: a.handleUnjoin},
		{Name: "edit", Kind: "mutation", Method: http.MethodPost, Path: "/api/tournaments/edit", Policy: auth.Authenticated, handler: a.handleEditTournament},
	}

	// Paths can carry more than one operation (GET list / POST create);
	// group before registering so the mux sees each pattern once.
	byPath := make(map[string][]operation)
	order := make([]string, 0, len(a.ops))
	for _, op := range a.ops {
		if _, seen := byPath[op.Path]; !seen {
			order = append(order, op.Path)
		}
		byPath[op.Path] = append(byPath[op.Path], op)
	}
	for _, path := range order {
		a.mux.Handle(path, a.guard(byPath[path]))
	}

	a.mux.HandleFunc("/api/schema", a.Schema)

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full HTTP stack: metrics instrumentation wrapping
// the token gate wrapping the mux.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}

// guard resolves the operation by method, evaluates its policy and only
// then runs the handler.
func (a *API) guard(ops []operation) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, op := range ops {
			if r.Method != op.Method {
				continue
			}
			if err := op.Policy.Check(r.Context()); err != nil {
				handlePolicyError(w, r, err)
				return
			}
			op.handler(w, r)
			return
		}
		allowed := make([]string, 0, len(ops))
		for _, op := range ops {
			allowed = append(allowed, op.Method)
		}
		methodNotAllowed(w, r, allowed...)
	})
}

// --- infra handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// Schema lists the exposed operations and their access requirements.
func (a *API) Schema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	type opDoc struct {
		Name   string `json:"name"`
		Kind   string `json:"kind"`
		Method string `json:"method"`
		Path   string `json:"path"`
		Policy string `json:"policy"`
	}
	docs := make([]opDoc, 0, len(a.ops))
	for _, op := range a.ops {
		docs = append(docs, opDoc{
			Name:   op.Name,
			Kind:   op.Kind,
			Method: op.Method,
			Path:   op.Path,
			Policy: op.Policy.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    serviceName,
		"version":    a.version,
		"operations": docs,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeFieldError(w, r, code, msg, "")
}

// writeFieldError attaches the offending field name when a domain error
// points at one specific input value.
func writeFieldError(w http.ResponseWriter, r *http.Request, code int, msg, field string) {
	payload := map[string]any{
		"error_message": msg,
	}
	if field != "" {
		payload["field"] = field
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func handlePolicyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "insufficient role")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
