package account

import (
	"context"
	"errors"
)

// Role is a flat capability tag attached to an account.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Account is the persisted user document. Handle is the login identifier
// and is expected to be unique across accounts; uniqueness is enforced by a
// pre-insert existence check, not by the store.
type Account struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"display_name"`
	Surname       string   `json:"surname"`
	Handle        string   `json:"handle"`
	PasswordHash  string   `json:"-"`
	TournamentIDs []string `json:"tournament_ids"`
	Roles         []Role   `json:"roles"`
}

// RoleNames returns the account's role names in list order, duplicates kept.
func (a Account) RoleNames() []string {
	if len(a.Roles) == 0 {
		return nil
	}
	names := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		names = append(names, r.Name)
	}
	return names
}

// RegisterInput carries a registration request. Password is plaintext and
// is hashed before the account is persisted.
type RegisterInput struct {
	DisplayName string `json:"display_name"`
	Surname     string `json:"surname"`
	Handle      string `json:"handle"`
	Password    string `json:"password"`
}

// EditInput is a partial update: empty fields leave the stored value
// untouched. ID selects the account; the acting handle decides whether the
// edit is allowed.
type EditInput struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Surname     string `json:"surname"`
	Handle      string `json:"handle"`
	Password    string `json:"password"`
}

var (
	ErrNotFound        = errors.New("account: not found")
	ErrDuplicateHandle = errors.New("account: handle already taken")
	ErrNotOwner        = errors.New("account: not the right user for this process")
	ErrRoleNotFound    = errors.New("account: role not found")
	ErrInvalidInput    = errors.New("account: invalid input")
)

// Store is the document-store contract for accounts. Save populates the id
// on first save. Per-call atomicity only; no cross-call transactions.
type Store interface {
	FindByID(ctx context.Context, id string) (Account, error)
	FindByHandle(ctx context.Context, handle string) (Account, error)
	FindAll(ctx context.Context) ([]Account, error)
	Save(ctx context.Context, acc Account) (Account, error)
	DeleteAll(ctx context.Context) error
}

// RoleStore is the document-store contract for roles.
type RoleStore interface {
	FindByName(ctx context.Context, name string) (Role, error)
	FindAll(ctx context.Context) ([]Role, error)
	Save(ctx context.Context, role Role) (Role, error)
	DeleteAll(ctx context.Context) error
}
