package tournament

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tourney.org/internal/account"
)

// Service enforces the roster invariants: a tournament's roster and each
// member account's tournament-id list are two denormalized views that this
// service keeps consistent on every join and unjoin.
//
// Cross-entity writes are two separate saves with no transaction. If the
// second save fails the first stays committed and the error is surfaced to
// the caller as-is; there is no retry or compensation.
type Service struct {
	tournaments Store
	accounts    account.Store
}

// NewService wires the service to the tournament and account stores.
func NewService(tournaments Store, accounts account.Store) (*Service, error) {
	if tournaments == nil || accounts == nil {
		return nil, errors.New("tournament: both stores are required")
	}
	return &Service{tournaments: tournaments, accounts: accounts}, nil
}

// Create persists a tournament owned by ownerID with an empty roster, then
// records the new id on the owner account.
func (s *Service) Create(ctx context.Context, in CreateInput, ownerID string) (Tournament, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Tournament{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(ownerID) == "" {
		return Tournament{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	t := Tournament{
		Name:        strings.TrimSpace(in.Name),
		Game:        in.Game,
		Prize:       in.Prize,
		Currency:    in.Currency,
		TeamSize:    in.TeamSize,
		BracketType: in.BracketType,
		ScheduledAt: in.ScheduledAt,
		Region:      in.Region,
		OwnerID:     ownerID,
		Roster:      []string{},
	}
	saved, err := s.tournaments.Save(ctx, t)
	if err != nil {
		return Tournament{}, err
	}
	if err := s.addToAccount(ctx, ownerID, saved.ID); err != nil {
		return Tournament{}, err
	}
	return saved, nil
}

// Join appends the account to the roster and mirrors the tournament id onto
// the account. Joining twice fails before anything is written.
func (s *Service) Join(ctx context.Context, tournamentID, accountID string) (Tournament, error) {
	t, err := s.tournaments.FindByID(ctx, tournamentID)
	if err != nil {
		return Tournament{}, err
	}
	if t.InRoster(accountID) {
		return Tournament{}, ErrAlreadyJoined
	}
	t.Roster = append(t.Roster, accountID)
	saved, err := s.tournaments.Save(ctx, t)
	if err != nil {
		return Tournament{}, err
	}
	if err := s.addToAccount(ctx, accountID, saved.ID); err != nil {
		return Tournament{}, err
	}
	return saved, nil
}

// Unjoin removes the account from the roster and drops the tournament id
// from the account. Leaving a tournament never joined fails before anything
// is written.
func (s *Service) Unjoin(ctx context.Context, tournamentID, accountID string) (Tournament, error) {
	t, err := s.tournaments.FindByID(ctx, tournamentID)
	if err != nil {
		return Tournament{}, err
	}
	if !t.InRoster(accountID) {
		return Tournament{}, ErrNotJoined
	}
	roster := make([]string, 0, len(t.Roster)-1)
	for _, id := range t.Roster {
		if id != accountID {
			roster = append(roster, id)
		}
	}
	t.Roster = roster
	saved, err := s.tournaments.Save(ctx, t)
	if err != nil {
		return Tournament{}, err
	}
	if err := s.removeFromAccount(ctx, accountID, saved.ID); err != nil {
		return Tournament{}, err
	}
	return saved, nil
}

// Edit applies the patch to the tournament. Only the owner may edit; nil
// patch fields leave the stored values untouched.
func (s *Service) Edit(ctx context.Context, tournamentID string, patch EditPatch, actingAccountID string) (Tournament, error) {
	t, err := s.tournaments.FindByID(ctx, tournamentID)
	if err != nil {
		return Tournament{}, err
	}
	if t.OwnerID != actingAccountID {
		return Tournament{}, ErrNotOwner
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Game != nil {
		t.Game = *patch.Game
	}
	if patch.Prize != nil {
		t.Prize = *patch.Prize
	}
	if patch.Currency != nil {
		t.Currency = *patch.Currency
	}
	if patch.TeamSize != nil {
		t.TeamSize = *patch.TeamSize
	}
	if patch.BracketType != nil {
		t.BracketType = *patch.BracketType
	}
	if patch.ScheduledAt != nil {
		t.ScheduledAt = *patch.ScheduledAt
	}
	if patch.Region != nil {
		t.Region = *patch.Region
	}
	return s.tournaments.Save(ctx, t)
}

// Get loads one tournament by id.
func (s *Service) Get(ctx context.Context, id string) (Tournament, error) {
	return s.tournaments.FindByID(ctx, id)
}

// List returns every tournament.
func (s *Service) List(ctx context.Context) ([]Tournament, error) {
	return s.tournaments.FindAll(ctx)
}

// Joined returns the tournaments whose roster contains the account.
func (s *Service) Joined(ctx context.Context, accountID string) ([]Tournament, error) {
	return s.tournaments.FindByRosterMember(ctx, accountID)
}

// Created returns the tournaments owned by the account.
func (s *Service) Created(ctx context.Context, ownerID string) ([]Tournament, error) {
	return s.tournaments.FindByOwner(ctx, ownerID)
}

func (s *Service) addToAccount(ctx context.Context, accountID, tournamentID string) error {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	acc.TournamentIDs = append(acc.TournamentIDs, tournamentID)
	_, err = s.accounts.Save(ctx, acc)
	return err
}

func (s *Service) removeFromAccount(ctx context.Context, accountID, tournamentID string) error {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(acc.TournamentIDs))
	for _, id := range acc.TournamentIDs {
		if id != tournamentID {
			kept = append(kept, id)
		}
	}
	acc.TournamentIDs = kept
	_, err = s.accounts.Save(ctx, acc)
	return err
}
