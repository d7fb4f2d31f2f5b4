package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/brikvest/apiserver/types"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "phone", "first_name", "last_name", "account_type",
		"email_verified", "kyc_status", "referral_code", "password_hash",
		"created_at", "updated_at", "deleted_at",
	})
}

func TestUserGetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("ada@example.com").
		WillReturnRows(userRows().AddRow(
			1, "ada@example.com", "0801", "Ada", "O", "individual",
			true, "none", "", "hash", now, now, nil,
		))

	repo := NewUserRepository(db)
	user, err := repo.GetByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if user.ID != 1 || !user.EmailVerified {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	repo := NewUserRepository(db)
	if _, err := repo.GetByID(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID = %v; want ErrNotFound", err)
	}
}

func TestUserCreateAssignsRoleInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(7, sqlmock.AnyArg(), "USER").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewUserRepository(db)
	user, err := repo.Create(context.Background(), types.User{
		Email: "ada@example.com", Phone: "0801", FirstName: "Ada", LastName: "O",
		AccountType: types.AccountTypeIndividual, KYCStatus: "none", PasswordHash: "hash",
	}, "USER")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("id = %d, want 7", user.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUserCreateRollsBackWhenRoleMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(7, sqlmock.AnyArg(), "NOPE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewUserRepository(db)
	_, err = repo.Create(context.Background(), types.User{
		Email: "ada@example.com", Phone: "0801", FirstName: "Ada", LastName: "O",
		AccountType: types.AccountTypeIndividual, PasswordHash: "hash",
	}, "NOPE")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Create = %v; want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectRollback()

	repo := NewUserRepository(db)
	_, err = repo.Create(context.Background(), types.User{
		Email: "ada@example.com", Phone: "0801", FirstName: "Ada", LastName: "O",
		PasswordHash: "hash",
	}, "USER")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Create = %v; want ErrConflict", err)
	}
}

func TestUserSoftDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs(sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewUserRepository(db)
	if err := repo.SoftDelete(context.Background(), 3); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	mock.ExpectExec("UPDATE users").
		WithArgs(sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.SoftDelete(context.Background(), 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second SoftDelete = %v; want ErrNotFound", err)
	}
}
