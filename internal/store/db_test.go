package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestTxCommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM squad_members").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err = Tx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM squad_members WHERE squad_id = $1", 1)
		return err
	})
	if err != nil {
		t.Fatalf("Tx returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	want := errors.New("membership insert failed")
	err = Tx(context.Background(), db, func(tx *sql.Tx) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS admins").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestNilHandlesAreSafe(t *testing.T) {
	var d *DB
	if d.Healthy(context.Background()) {
		t.Error("nil DB should not be healthy")
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
	var r *Redis
	if r.Healthy(context.Background()) {
		t.Error("nil Redis should not be healthy")
	}
}
