package attendance

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"hackathon/internal/apperr"
)

var recordCols = []string{"id", "candidate_id", "attendance_date", "check_in_time", "check_out_time", "status"}

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestFindForDayNoRow(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FROM attendance a").
		WithArgs(int64(1), "2024-03-09").
		WillReturnRows(sqlmock.NewRows(recordCols))

	rec, err := repo.FindForDay(context.Background(), 1, "2024-03-09")
	if err != nil || rec != nil {
		t.Fatalf("expected nil record, got %+v %v", rec, err)
	}
}

func TestOpenUniqueViolationIsInProgress(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Now()
	mock.ExpectQuery("INSERT INTO attendance").
		WithArgs(int64(1), "2024-03-09", at).
		WillReturnError(&pgconn.PgError{Code: apperr.UniqueViolation, ConstraintName: "uq_attendance_candidate_day"})

	_, err := repo.Open(context.Background(), 1, "2024-03-09", at)
	if !errors.Is(err, apperr.ErrScanInProgress) {
		t.Fatalf("expected in-progress, got %v", err)
	}
}

func TestOpenReturnsRecord(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO attendance").
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(11, 1, "2024-03-09", at, nil, "present"))

	rec, err := repo.Open(context.Background(), 1, "2024-03-09", at)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rec.ID != 11 || rec.Status != StatusPresent || rec.CheckOutTime != nil {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestCloseOnlyTouchesOpenRows(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.id = $1 AND a.check_out_time IS NULL")).
		WithArgs(int64(11), at).
		WillReturnRows(sqlmock.NewRows(recordCols))

	_, err := repo.Close(context.Background(), 11, at)
	if !errors.Is(err, apperr.ErrScanInProgress) {
		t.Fatalf("expected in-progress when the row was already closed, got %v", err)
	}
}

func TestAdjustLocksAndUpdates(t *testing.T) {
	repo, mock := newMock(t)
	in := time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC)
	out := in.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(4, 1, "2024-03-09", in, nil, "present"))
	mock.ExpectQuery("UPDATE attendance").
		WithArgs(int64(4), "2024-03-09", in, sqlmock.AnyArg(), StatusCheckedOut).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(4, 1, "2024-03-09", in, out, "checked_out"))
	mock.ExpectCommit()

	rec, err := repo.Adjust(context.Background(), 4, func(cur Record) (Record, error) {
		cur.CheckOutTime = &out
		cur.Status = StatusCheckedOut
		return cur, nil
	})
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if rec.Status != StatusCheckedOut || rec.CheckOutTime == nil {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAdjustMissingRecordRollsBack(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(sqlmock.NewRows(recordCols))
	mock.ExpectRollback()

	_, err := repo.Adjust(context.Background(), 4, func(cur Record) (Record, error) { return cur, nil })
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAdjustValidationFailureRollsBack(t *testing.T) {
	repo, mock := newMock(t)
	in := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(4, 1, "2024-03-09", in, nil, "present"))
	mock.ExpectRollback()

	want := apperr.Invalid("nope")
	_, err := repo.Adjust(context.Background(), 4, func(Record) (Record, error) { return Record{}, want })
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListOrdersByCheckInThenID(t *testing.T) {
	repo, mock := newMock(t)
	in := time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance a WHERE a.attendance_date = $1::date")).
		WithArgs("2024-03-09").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY a.check_in_time DESC, a.id DESC")).
		WithArgs("2024-03-09", 10, 0).
		WillReturnRows(sqlmock.NewRows(append(recordCols, "name", "email", "phone", "university", "degree")).
			AddRow(3, 1, "2024-03-09", in, nil, "present", "Ada", "ada@example.com", "", "Cambridge", "BSc"))

	rows, total, err := repo.List(context.Background(), Filter{Date: "2024-03-09", Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Name != "Ada" || rows[0].University != "Cambridge" {
		t.Fatalf("unexpected result %d %+v", total, rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStatsWithoutDate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FILTER").
		WillReturnRows(sqlmock.NewRows([]string{"total", "present", "out"}).AddRow(5, 2, 3))

	s, err := repo.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if s != (Stats{Total: 5, CurrentlyPresent: 2, CheckedOut: 3}) {
		t.Fatalf("stats = %+v", s)
	}
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FILTER").WillReturnError(errors.New("connection reset"))

	_, err := repo.Stats(context.Background(), "2024-03-09")
	if !errors.Is(err, apperr.ErrStorage) || apperr.Message(err) != "Server error" {
		t.Fatalf("expected generic storage error, got %v", err)
	}
}
