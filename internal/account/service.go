package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tourney.org/internal/auth"
)

// Well-known role names. RoleUser is granted to every registration.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Service implements account registration, self-service profile edits and
// role administration over the document store.
type Service struct {
	accounts Store
	roles    RoleStore
}

// NewService wires the service to its stores.
func NewService(accounts Store, roles RoleStore) (*Service, error) {
	if accounts == nil || roles == nil {
		return nil, errors.New("account: both stores are required")
	}
	return &Service{accounts: accounts, roles: roles}, nil
}

// EnsureBaseRoles seeds the built-in role documents so registration and
// role assignment never race a missing ROLE_USER row.
func (s *Service) EnsureBaseRoles(ctx context.Context) error {
	for _, name := range []string{RoleUser, RoleAdmin} {
		if _, err := s.roles.FindByName(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, ErrRoleNotFound) {
			return err
		}
		if _, err := s.roles.Save(ctx, Role{Name: name}); err != nil {
			return err
		}
	}
	return nil
}

// Register creates an account with a hashed password and the default role.
// The duplicate-handle check and the insert are two separate store calls;
// two concurrent registrations of the same handle can both pass the check.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	handle := strings.TrimSpace(in.Handle)
	if handle == "" {
		return Account{}, fmt.Errorf("%w: handle is required", ErrInvalidInput)
	}
	if in.Password == "" {
		return Account{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if _, err := s.accounts.FindByHandle(ctx, handle); err == nil {
		return Account{}, ErrDuplicateHandle
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Account{}, err
	}
	defaultRole, err := s.roles.FindByName(ctx, RoleUser)
	if err != nil {
		return Account{}, err
	}
	acc := Account{
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Surname:      strings.TrimSpace(in.Surname),
		Handle:       handle,
		PasswordHash: hash,
		Roles:        []Role{defaultRole},
	}
	return s.accounts.Save(ctx, acc)
}

// Edit applies a partial update to the account named by in.ID. Only the
// account's own handle may edit it; editing someone else by id fails with
// ErrNotOwner. A present password is hashed before the merge.
func (s *Service) Edit(ctx context.Context, in EditInput, actingHandle string) (Account, error) {
	if strings.TrimSpace(in.ID) == "" {
		return Account{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	acc, err := s.accounts.FindByID(ctx, in.ID)
	if err != nil {
		return Account{}, err
	}
	if acc.Handle != actingHandle {
		return Account{}, ErrNotOwner
	}
	if in.DisplayName != "" {
		acc.DisplayName = in.DisplayName
	}
	if in.Surname != "" {
		acc.Surname = in.Surname
	}
	if in.Handle != "" {
		acc.Handle = strings.TrimSpace(in.Handle)
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return Account{}, err
		}
		acc.PasswordHash = hash
	}
	return s.accounts.Save(ctx, acc)
}

// CreateRole persists a new role tag.
func (s *Service) CreateRole(ctx context.Context, name string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	return s.roles.Save(ctx, Role{Name: name})
}

// AssignRole appends the named role to the account's role list. The list is
// not deduplicated: assigning the same role twice stores it twice, matching
// the source system's behavior.
func (s *Service) AssignRole(ctx context.Context, handle, roleName string) (Account, error) {
	acc, err := s.accounts.FindByHandle(ctx, handle)
	if err != nil {
		return Account{}, err
	}
	role, err := s.roles.FindByName(ctx, roleName)
	if err != nil {
		return Account{}, err
	}
	acc.Roles = append(acc.Roles, role)
	return s.accounts.Save(ctx, acc)
}

// Accounts lists every account document.
func (s *Service) Accounts(ctx context.Context) ([]Account, error) {
	return s.accounts.FindAll(ctx)
}

// ByHandle loads one account by its login handle.
func (s *Service) ByHandle(ctx context.Context, handle string) (Account, error) {
	return s.accounts.FindByHandle(ctx, handle)
}

// ByID loads one account by id.
func (s *Service) ByID(ctx context.Context, id string) (Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// LookupHandle implements auth.Directory so the login gate can resolve
// credentials without seeing the store.
func (s *Service) LookupHandle(ctx context.Context, handle string) (auth.Credentials, error) {
	acc, err := s.accounts.FindByHandle(ctx, handle)
	if err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{
		Subject:      acc.Handle,
		PasswordHash: acc.PasswordHash,
		Roles:        acc.RoleNames(),
	}, nil
}
