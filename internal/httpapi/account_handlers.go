package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tourney.org/internal/account"
	"tourney.org/internal/audit"
	"tourney.org/internal/auth"
)

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type createRoleRequest struct {
	Name string `json:"name"`
}

type assignRoleRequest struct {
	Handle string `json:"handle"`
	Role   string `json:"role"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, expiresAt, err := a.gate.Login(r.Context(), req.Handle, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"handle":     strings.TrimSpace(req.Handle),
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := a.accounts.Register(r.Context(), in)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "account.register", map[string]any{
		"account_id": acc.ID,
		"handle":     acc.Handle,
	})

	w.Header().Set("Location", "/api/users/"+acc.ID)
	writeJSON(w, http.StatusCreated, acc)
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	list, err := a.accounts.Accounts(r.Context())
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": list,
	})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	acc, err := a.accounts.ByID(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) handleEditAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var in account.EditInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := a.accounts.Edit(r.Context(), in, identity.Subject)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "account.edit", map[string]any{
		"account_id": acc.ID,
	})

	writeJSON(w, http.StatusOK, acc)
}

func (a *API) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	role, err := a.accounts.CreateRole(r.Context(), req.Name)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "role.create", map[string]any{
		"role_id": role.ID,
		"name":    role.Name,
	})

	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Handle = strings.TrimSpace(req.Handle)
	req.Role = strings.TrimSpace(req.Role)
	if req.Handle == "" || req.Role == "" {
		writeError(w, r, http.StatusBadRequest, "handle and role are required")
		return
	}

	acc, err := a.accounts.AssignRole(r.Context(), req.Handle, req.Role)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "role.assign", map[string]any{
		"account_id": acc.ID,
		"role":       req.Role,
	})

	writeJSON(w, http.StatusOK, acc)
}

func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrDuplicateHandle):
		writeFieldError(w, r, http.StatusConflict, err.Error(), "handle")
	case errors.Is(err, account.ErrNotOwner):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, account.ErrRoleNotFound):
		writeFieldError(w, r, http.StatusNotFound, err.Error(), "role")
	case errors.Is(err, account.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
