package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hackathon/internal/apperr"
	"hackathon/internal/store"
)

const recordColumns = `a.id, a.candidate_id, to_char(a.attendance_date, 'YYYY-MM-DD'), a.check_in_time, a.check_out_time, a.status`

const entryColumns = recordColumns + `, c.name, c.email, c.phone, c.university, c.degree`

var errRecordNotFound = apperr.NotFound("Attendance record not found")

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.CandidateID, &r.Date, &r.CheckInTime, &r.CheckOutTime, &r.Status)
	return r, err
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.CandidateID, &e.Date, &e.CheckInTime, &e.CheckOutTime, &e.Status,
		&e.Name, &e.Email, &e.Phone, &e.University, &e.Degree)
	return e, err
}

// FindForDay returns the candidate's record for day, or nil when none exists.
func (r *Repository) FindForDay(ctx context.Context, candidateID int64, day string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance a
		WHERE a.candidate_id = $1 AND a.attendance_date = $2::date
	`, candidateID, day)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Storage("find attendance", err)
	}
	return &rec, nil
}

// Open inserts the day's check-in. A concurrent insert for the same
// (candidate, day) loses on the unique constraint and is reported as in progress.
func (r *Repository) Open(ctx context.Context, candidateID int64, day string, at time.Time) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance AS a (candidate_id, attendance_date, check_in_time, status)
		VALUES ($1, $2::date, $3, 'present')
		RETURNING `+recordColumns, candidateID, day, at)
	rec, err := scanRecord(row)
	if err != nil {
		if apperr.PgCode(err) == apperr.UniqueViolation {
			return Record{}, apperr.InProgress("Scan already being processed, retry shortly", err)
		}
		return Record{}, apperr.Storage("insert attendance", err)
	}
	return rec, nil
}

// Close checks out an open record. It only touches rows that are still open,
// so a concurrent check-out makes this call report in progress.
func (r *Repository) Close(ctx context.Context, id int64, at time.Time) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance AS a
		SET check_out_time = GREATEST($2, a.check_in_time), status = 'checked_out'
		WHERE a.id = $1 AND a.check_out_time IS NULL
		RETURNING `+recordColumns, id, at)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, apperr.InProgress("Scan already being processed, retry shortly", err)
		}
		return Record{}, apperr.Storage("check out attendance", err)
	}
	return rec, nil
}

// Adjust locks a record, lets fn compute its replacement and writes it back,
// all in one transaction.
func (r *Repository) Adjust(ctx context.Context, id int64, fn func(cur Record) (Record, error)) (Record, error) {
	var out Record
	err := store.Tx(ctx, r.db, func(tx *sql.Tx) error {
		cur, err := scanRecord(tx.QueryRowContext(ctx, `
			SELECT `+recordColumns+` FROM attendance a WHERE a.id = $1 FOR UPDATE
		`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errRecordNotFound
			}
			return apperr.Storage("lock attendance", err)
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}

		out, err = scanRecord(tx.QueryRowContext(ctx, `
			UPDATE attendance AS a
			SET attendance_date = $2::date, check_in_time = $3, check_out_time = $4, status = $5
			WHERE a.id = $1
			RETURNING `+recordColumns, id, next.Date, next.CheckInTime, next.CheckOutTime, next.Status))
		if err != nil {
			if apperr.PgCode(err) == apperr.UniqueViolation {
				return apperr.Conflict("Candidate already has an attendance record for that day")
			}
			return apperr.Storage("update attendance", err)
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return out, nil
}

// List returns a page of records joined with their candidates, newest
// check-in first, and the total number of matching records.
func (r *Repository) List(ctx context.Context, f Filter) ([]Entry, int, error) {
	where := ""
	args := []any{}
	if f.Date != "" {
		where = ` WHERE a.attendance_date = $1::date`
		args = append(args, f.Date)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance a`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count attendance", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM attendance a
		JOIN candidates c ON c.id = a.candidate_id%s
		ORDER BY a.check_in_time DESC, a.id DESC
		LIMIT $%d OFFSET $%d`, entryColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, apperr.Storage("list attendance", err)
	}
	defer rows.Close()

	res, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

// History returns every record for one candidate, newest first.
func (r *Repository) History(ctx context.Context, candidateID int64) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM attendance a
		JOIN candidates c ON c.id = a.candidate_id
		WHERE a.candidate_id = $1
		ORDER BY a.check_in_time DESC, a.id DESC
	`, candidateID)
	if err != nil {
		return nil, apperr.Storage("candidate attendance", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	var res []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperr.Storage("scan attendance", err)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("read attendance", err)
	}
	return res, nil
}

// Stats counts records for day, or for all days when day is empty.
func (r *Repository) Stats(ctx context.Context, day string) (Stats, error) {
	where := ""
	args := []any{}
	if day != "" {
		where = ` WHERE attendance_date = $1::date`
		args = append(args, day)
	}
	var s Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE check_out_time IS NULL),
		       COUNT(*) FILTER (WHERE check_out_time IS NOT NULL)
		FROM attendance`+where, args...).Scan(&s.Total, &s.CurrentlyPresent, &s.CheckedOut)
	if err != nil {
		return Stats{}, apperr.Storage("attendance stats", err)
	}
	return s, nil
}
