package pg

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"tourney.org/internal/account"
	"tourney.org/internal/tournament"
)

func TestAccountFindByHandle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewWithDB(db)

	doc, _ := json.Marshal(accountDoc{
		ID:           "a-1",
		Handle:       "alice",
		PasswordHash: "hash",
		Roles:        []account.Role{{ID: "r-1", Name: "ROLE_USER"}},
	})
	mock.ExpectQuery("select doc from accounts where doc->>'handle'").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(doc))

	acc, err := store.Accounts().FindByHandle(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByHandle: %v", err)
	}
	if acc.ID != "a-1" || acc.Handle != "alice" || acc.PasswordHash != "hash" {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if len(acc.Roles) != 1 || acc.Roles[0].Name != "ROLE_USER" {
		t.Fatalf("roles not round-tripped: %v", acc.Roles)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountFindByHandleMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewWithDB(db)

	mock.ExpectQuery("select doc from accounts where doc->>'handle'").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}))

	if _, err := store.Accounts().FindByHandle(context.Background(), "nobody"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected account.ErrNotFound, got %v", err)
	}
}

func TestAccountSaveAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewWithDB(db)

	mock.ExpectExec("insert into accounts").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := store.Accounts().Save(context.Background(), account.Account{Handle: "alice"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected id populated on first save")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleFindByNameMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewWithDB(db)

	mock.ExpectQuery("select doc from roles where doc->>'name'").
		WithArgs("ROLE_NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}))

	if _, err := store.Roles().FindByName(context.Background(), "ROLE_NOPE"); !errors.Is(err, account.ErrRoleNotFound) {
		t.Fatalf("expected account.ErrRoleNotFound, got %v", err)
	}
}

func TestTournamentRosterQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewWithDB(db)

	doc, _ := json.Marshal(tournament.Tournament{
		ID: "t-1", Name: "Cup", OwnerID: "a-1", Roster: []string{"a-2"},
	})
	mock.ExpectQuery("select doc from tournaments where doc->'roster'").
		WithArgs("a-2").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(doc))

	list, err := store.Tournaments().FindByRosterMember(context.Background(), "a-2")
	if err != nil {
		t.Fatalf("FindByRosterMember: %v", err)
	}
	if len(list) != 1 || list[0].ID != "t-1" || !list[0].InRoster("a-2") {
		t.Fatalf("unexpected result: %+v", list)
	}
}

func TestTournamentFindByIDMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewWithDB(db)

	mock.ExpectQuery("select doc from tournaments where id").
		WithArgs("t-404").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}))

	if _, err := store.Tournaments().FindByID(context.Background(), "t-404"); !errors.Is(err, tournament.ErrNotFound) {
		t.Fatalf("expected tournament.ErrNotFound, got %v", err)
	}
}

func TestBootstrapCreatesTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewWithDB(db)

	mock.ExpectExec("create table if not exists accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists roles").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists tournaments").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
