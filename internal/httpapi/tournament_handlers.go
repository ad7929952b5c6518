package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tourney.org/internal/account"
	"tourney.org/internal/audit"
	"tourney.org/internal/auth"
	"tourney.org/internal/tournament"
)

type tournamentIDRequest struct {
	TournamentID string `json:"tournament_id"`
}

type editTournamentRequest struct {
	TournamentID string `json:"tournament_id"`
	tournament.EditPatch
}

// caller resolves the authenticated identity back to its account document.
// The token subject is the login handle, not the account id.
func (a *API) caller(w http.ResponseWriter, r *http.Request) (account.Account, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return account.Account{}, false
	}
	acc, err := a.accounts.ByHandle(r.Context(), identity.Subject)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, r, http.StatusForbidden, "account no longer exists")
			return account.Account{}, false
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return account.Account{}, false
	}
	return acc, true
}

func (a *API) handleTournaments(w http.ResponseWriter, r *http.Request) {
	list, err := a.tournaments.List(r.Context())
	if err != nil {
		handleTournamentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": list,
	})
}

func (a *API) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/tournaments/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	t, err := a.tournaments.Get(r.Context(), id)
	if err != nil {
		handleTournamentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) handleJoinedTournaments(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.caller(w, r)
	if !ok {
		return
	}
	list, err := a.tournaments.Joined(r.Context(), acc.ID)
	if err != nil {
		handleTournamentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": list,
	})
}

func (a *API) handleCreatedTournaments(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.caller(w, r)
	if !ok {
		return
	}
	list, err := a.tournaments.Created(r.Context(), acc.ID)
	if err != nil {
		handleTournamentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": list,
	})
}

func (a *API) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.caller(w, r)
	if !ok {
		return
	}

	var in tournament.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t, err := a.tournaments.Create(r.Context(), in, acc.ID)
	if err != nil {
		handleTournamentError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "tournament.create", map[string]any{
		"tournament_id": t.ID,
		"owner_id":      acc.ID,
	})

	w.Header().Set("Location", "/api/tournaments/"+t.ID)
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) handleJoin(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.caller(w, r)
	if !ok {
		return
	}

	var req tournamentIDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.TournamentID = strings.TrimSpace(req.TournamentID)
	if req.TournamentID == "" {
		writeError(w, r, http.StatusBadRequest, "tournament_id is required")
		return
	}

	t, err := a.tournaments.Join(r.Context(), req.TournamentID, acc.ID)
	if err != nil {
		handleTournamentError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "tournament.join", map[string]any{
		"tournament_id": t.ID,
		"account_id":    acc.ID,
	})

	writeJSON(w, http.StatusOK, t)
}

func (a *API) handleUnjoin(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.caller(w, r)
	if !ok {
		return
	}

	var req tournamentIDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.TournamentID = strings.TrimSpace(req.TournamentID)
	if req.TournamentID == "" {
		writeError(w, r, http.StatusBadRequest, "tournament_id is required")
		return
	}

	t, err := a.tournaments.Unjoin(r.Context(), req.TournamentID, acc.ID)
	if err != nil {
		handleTournamentError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "tournament.unjoin", map[string]any{
		"tournament_id": t.ID,
		"account_id":    acc.ID,
	})

	writeJSON(w, http.StatusOK, t)
}

func (a *API) handleEditTournament(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.caller(w, r)
	if !ok {
		return
	}

	var req editTournamentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.TournamentID = strings.TrimSpace(req.TournamentID)
	if req.TournamentID == "" {
		writeError(w, r, http.StatusBadRequest, "tournament_id is required")
		return
	}

	t, err := a.tournaments.Edit(r.Context(), req.TournamentID, req.EditPatch, acc.ID)
	if err != nil {
		handleTournamentError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "tournament.edit", map[string]any{
		"tournament_id": t.ID,
	})

	writeJSON(w, http.StatusOK, t)
}

func handleTournamentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tournament.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, tournament.ErrAlreadyJoined):
		writeFieldError(w, r, http.StatusConflict, err.Error(), "account_id")
	case errors.Is(err, tournament.ErrNotJoined):
		writeFieldError(w, r, http.StatusConflict, err.Error(), "account_id")
	case errors.Is(err, tournament.ErrNotOwner):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, tournament.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, account.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
