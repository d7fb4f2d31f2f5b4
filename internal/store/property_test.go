package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestReserveUnits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE properties").
		WithArgs(5, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPropertyRepository(db)
	if err := repo.ReserveUnits(context.Background(), 1, 5); err != nil {
		t.Fatalf("ReserveUnits: %v", err)
	}
}

func TestReserveUnitsInsufficient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// The guarded UPDATE touches no rows when the listing cannot cover
	// the request or is not open.
	mock.ExpectExec("UPDATE properties").
		WithArgs(500, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPropertyRepository(db)
	if err := repo.ReserveUnits(context.Background(), 1, 500); !errors.Is(err, ErrConflict) {
		t.Fatalf("ReserveUnits = %v; want ErrConflict", err)
	}
}

func TestReleaseUnitsUnknownProperty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE properties").
		WithArgs(5, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPropertyRepository(db)
	if err := repo.ReleaseUnits(context.Background(), 99, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ReleaseUnits = %v; want ErrNotFound", err)
	}
}
