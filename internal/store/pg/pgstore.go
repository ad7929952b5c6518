package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tourney.org/internal/account"
	"tourney.org/internal/ids"
	"tourney.org/internal/tournament"
)

// Store keeps each entity as one jsonb document per row, mirroring the
// document-store contract the services are written against. Every call is
// a single statement; there are no cross-call transactions.
type Store struct {
	db *sql.DB
}

// Open connects via the pgx stdlib driver with tuned pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle; used by sqlmock tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Bootstrap creates the document tables when they do not exist yet. There
// is deliberately no unique index on the account handle; uniqueness is a
// pre-insert check in the account service.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range []string{
		`create table if not exists accounts (id text primary key, doc jsonb not null)`,
		`create table if not exists roles (id text primary key, doc jsonb not null)`,
		`create table if not exists tournaments (id text primary key, doc jsonb not null)`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Accounts returns the account-document view of the store.
func (s *Store) Accounts() account.Store { return &accountStore{db: s.db} }

// Roles returns the role-document view of the store.
func (s *Store) Roles() account.RoleStore { return &roleStore{db: s.db} }

// Tournaments returns the tournament-document view of the store.
func (s *Store) Tournaments() tournament.Store { return &tournamentStore{db: s.db} }

// accountDoc is the persisted shape; unlike the API type it carries the
// password hash.
type accountDoc struct {
	ID            string         `json:"id"`
	DisplayName   string         `json:"display_name"`
	Surname       string         `json:"surname"`
	Handle        string         `json:"handle"`
	PasswordHash  string         `json:"password_hash"`
	TournamentIDs []string       `json:"tournament_ids"`
	Roles         []account.Role `json:"roles"`
}

func toAccountDoc(acc account.Account) accountDoc {
	return accountDoc{
		ID:            acc.ID,
		DisplayName:   acc.DisplayName,
		Surname:       acc.Surname,
		Handle:        acc.Handle,
		PasswordHash:  acc.PasswordHash,
		TournamentIDs: acc.TournamentIDs,
		Roles:         acc.Roles,
	}
}

func (d accountDoc) toAccount() account.Account {
	return account.Account{
		ID:            d.ID,
		DisplayName:   d.DisplayName,
		Surname:       d.Surname,
		Handle:        d.Handle,
		PasswordHash:  d.PasswordHash,
		TournamentIDs: d.TournamentIDs,
		Roles:         d.Roles,
	}
}

type accountStore struct {
	db *sql.DB
}

func (s *accountStore) FindByID(ctx context.Context, id string) (account.Account, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select doc from accounts where id = $1`, id))
}

func (s *accountStore) FindByHandle(ctx context.Context, handle string) (account.Account, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select doc from accounts where doc->>'handle' = $1 limit 1`, handle))
}

func (s *accountStore) FindAll(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `select doc from accounts order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.Account
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc accountDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAccount())
	}
	return out, rows.Err()
}

func (s *accountStore) Save(ctx context.Context, acc account.Account) (account.Account, error) {
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	raw, err := json.Marshal(toAccountDoc(acc))
	if err != nil {
		return account.Account{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`insert into accounts (id, doc) values ($1, $2)
		 on conflict (id) do update set doc = excluded.doc`, acc.ID, raw); err != nil {
		return account.Account{}, err
	}
	return acc, nil
}

func (s *accountStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `delete from accounts`)
	return err
}

func (s *accountStore) scanOne(row *sql.Row) (account.Account, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	var doc accountDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return account.Account{}, err
	}
	return doc.toAccount(), nil
}

type roleStore struct {
	db *sql.DB
}

func (s *roleStore) FindByName(ctx context.Context, name string) (account.Role, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`select doc from roles where doc->>'name' = $1 limit 1`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Role{}, account.ErrRoleNotFound
	}
	if err != nil {
		return account.Role{}, err
	}
	var role account.Role
	if err := json.Unmarshal(raw, &role); err != nil {
		return account.Role{}, err
	}
	return role, nil
}

func (s *roleStore) FindAll(ctx context.Context) ([]account.Role, error) {
	rows, err := s.db.QueryContext(ctx, `select doc from roles order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.Role
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var role account.Role
		if err := json.Unmarshal(raw, &role); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (s *roleStore) Save(ctx context.Context, role account.Role) (account.Role, error) {
	if role.ID == "" {
		role.ID = ids.New()
	}
	raw, err := json.Marshal(role)
	if err != nil {
		return account.Role{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`insert into roles (id, doc) values ($1, $2)
		 on conflict (id) do update set doc = excluded.doc`, role.ID, raw); err != nil {
		return account.Role{}, err
	}
	return role, nil
}

func (s *roleStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `delete from roles`)
	return err
}

type tournamentStore struct {
	db *sql.DB
}

func (s *tournamentStore) FindByID(ctx context.Context, id string) (tournament.Tournament, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`select doc from tournaments where id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return tournament.Tournament{}, tournament.ErrNotFound
	}
	if err != nil {
		return tournament.Tournament{}, err
	}
	var t tournament.Tournament
	if err := json.Unmarshal(raw, &t); err != nil {
		return tournament.Tournament{}, err
	}
	return t, nil
}

func (s *tournamentStore) FindAll(ctx context.Context) ([]tournament.Tournament, error) {
	return s.query(ctx, `select doc from tournaments order by id`)
}

func (s *tournamentStore) FindByRosterMember(ctx context.Context, accountID string) ([]tournament.Tournament, error) {
	// jsonb containment keeps the roster membership check inside postgres
	return s.query(ctx,
		`select doc from tournaments where doc->'roster' @> to_jsonb($1::text) order by id`, accountID)
}

func (s *tournamentStore) FindByOwner(ctx context.Context, ownerID string) ([]tournament.Tournament, error) {
	return s.query(ctx,
		`select doc from tournaments where doc->>'owner_id' = $1 order by id`, ownerID)
}

func (s *tournamentStore) Save(ctx context.Context, t tournament.Tournament) (tournament.Tournament, error) {
	if t.ID == "" {
		t.ID = ids.New()
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return tournament.Tournament{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`insert into tournaments (id, doc) values ($1, $2)
		 on conflict (id) do update set doc = excluded.doc`, t.ID, raw); err != nil {
		return tournament.Tournament{}, err
	}
	return t, nil
}

func (s *tournamentStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `delete from tournaments`)
	return err
}

func (s *tournamentStore) query(ctx context.Context, q string, args ...any) ([]tournament.Tournament, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tournament.Tournament
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var t tournament.Tournament
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
