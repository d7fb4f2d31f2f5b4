package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestUserPermissionsFlattensRoles(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT DISTINCT p.key").
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).
			AddRow("subscription.create_own").
			AddRow("user.read_own"))

	repo := NewRBACRepository(db)
	perms, err := repo.UserPermissions(context.Background(), 4)
	if err != nil {
		t.Fatalf("UserPermissions: %v", err)
	}
	if len(perms) != 2 || perms[0] != "subscription.create_own" {
		t.Fatalf("perms = %v", perms)
	}
}

func TestUserRolesEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT r.name").
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	repo := NewRBACRepository(db)
	roles, err := repo.UserRoles(context.Background(), 4)
	if err != nil {
		t.Fatalf("UserRoles: %v", err)
	}
	if len(roles) != 0 {
		t.Fatalf("roles = %v, want none", roles)
	}
}

func TestAssignRoleUnknownRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(4, "NOPE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, name, description, created_at").
		WithArgs("NOPE").
		WillReturnError(sql.ErrNoRows)

	repo := NewRBACRepository(db)
	if err := repo.AssignRole(context.Background(), 4, "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AssignRole = %v; want ErrNotFound", err)
	}
}

func TestAssignRoleAlreadyHeld(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(4, "ADMIN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, name, description, created_at").
		WithArgs("ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at"}).
			AddRow(2, "ADMIN", "platform admin", time.Now()))

	repo := NewRBACRepository(db)
	if err := repo.AssignRole(context.Background(), 4, "ADMIN"); err != nil {
		t.Fatalf("AssignRole already held: %v", err)
	}
}

func TestRemoveRoleNotAssigned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM user_roles").
		WithArgs(4, "ADMIN").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRBACRepository(db)
	if err := repo.RemoveRole(context.Background(), 4, "ADMIN"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("RemoveRole = %v; want ErrNotFound", err)
	}
}
