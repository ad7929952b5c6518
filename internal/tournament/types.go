package tournament

import (
	"context"
	"errors"
	"time"
)

// Tournament is the persisted tournament document. OwnerID never changes
// after creation. Roster holds joined account ids, each at most once.
// Prize is in minor units of Currency; no floats.
type Tournament struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Game        string    `json:"game"`
	Prize       int64     `json:"prize"`
	Currency    string    `json:"currency"`
	TeamSize    int       `json:"team_size"`
	BracketType string    `json:"bracket_type"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Region      string    `json:"region"`
	OwnerID     string    `json:"owner_id"`
	Roster      []string  `json:"roster"`
}

// InRoster reports whether the account id has joined.
func (t Tournament) InRoster(accountID string) bool {
	for _, id := range t.Roster {
		if id == accountID {
			return true
		}
	}
	return false
}

// CreateInput carries the fields of a new tournament. The owner and an
// empty roster are set by the service.
type CreateInput struct {
	Name        string    `json:"name"`
	Game        string    `json:"game"`
	Prize       int64     `json:"prize"`
	Currency    string    `json:"currency"`
	TeamSize    int       `json:"team_size"`
	BracketType string    `json:"bracket_type"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Region      string    `json:"region"`
}

// EditPatch is a partial update: nil fields leave the stored value
// untouched. OwnerID and Roster are not patchable.
type EditPatch struct {
	Name        *string    `json:"name"`
	Game        *string    `json:"game"`
	Prize       *int64     `json:"prize"`
	Currency    *string    `json:"currency"`
	TeamSize    *int       `json:"team_size"`
	BracketType *string    `json:"bracket_type"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Region      *string    `json:"region"`
}

var (
	ErrNotFound      = errors.New("tournament: not found")
	ErrAlreadyJoined = errors.New("tournament: already joined")
	ErrNotJoined     = errors.New("tournament: not joined")
	ErrNotOwner      = errors.New("tournament: not created by you")
	ErrInvalidInput  = errors.New("tournament: invalid input")
)

// Store is the document-store contract for tournaments. Save populates the
// id on first save and is atomic per document only.
type Store interface {
	FindByID(ctx context.Context, id string) (Tournament, error)
	FindAll(ctx context.Context) ([]Tournament, error)
	FindByRosterMember(ctx context.Context, accountID string) ([]Tournament, error)
	FindByOwner(ctx context.Context, ownerID string) ([]Tournament, error)
	Save(ctx context.Context, t Tournament) (Tournament, error)
	DeleteAll(ctx context.Context) error
}
