package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"hackathon/internal/apperr"
)

func newAdminMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

const bootstrapInsert = "SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM admins)"

func TestInsertFirstLocksAndInserts(t *testing.T) {
	repo, mock := newAdminMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE admins IN SHARE ROW EXCLUSIVE MODE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(bootstrapInsert)).
		WithArgs("root", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectCommit()

	a, err := repo.InsertFirst(context.Background(), "root", "hash")
	if err != nil {
		t.Fatalf("InsertFirst: %v", err)
	}
	if a.ID != 1 || a.Username != "root" {
		t.Fatalf("admin = %+v", a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInsertFirstRefusesOnceAnAdminExists(t *testing.T) {
	repo, mock := newAdminMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE admins")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(bootstrapInsert)).
		WithArgs("second", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectRollback()

	_, err := repo.InsertFirst(context.Background(), "second", "hash")
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
