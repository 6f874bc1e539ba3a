package candidate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hackathon/internal/apperr"
	"hackathon/internal/store"
)

const columns = `id, name, email, phone, age, degree, university, batch, skills, qr_code,
	qr_image_url, photo_url, resume_path, selfie_path, hackathon_id, created_at, updated_at`

var errCandidateNotFound = apperr.NotFound("Candidate not found")

// Repository persists candidates in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Columns returns the candidate column list in the order ScanRow expects,
// qualified with alias when one is given.
func Columns(alias string) string {
	if alias == "" {
		return columns
	}
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanRow reads one candidate selected with Columns.
func ScanRow(row Scanner) (Candidate, error) {
	var c Candidate
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Age, &c.Degree, &c.University, &c.Batch,
		&c.Skills, &c.QRCode, &c.QRImageURL, &c.PhotoURL, &c.ResumePath, &c.SelfiePath, &c.HackathonID,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Insert writes a candidate and assigns its QR payload in the same transaction.
func (r *Repository) Insert(ctx context.Context, c *Candidate, qrFor func(id int64) string) error {
	return store.Tx(ctx, r.db, func(tx *sql.Tx) error {
		ok, err := insertOne(ctx, tx, c, qrFor, false)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("Candidate with this email already exists")
		}
		return nil
	})
}

// InsertBatch imports rows in one transaction, skipping emails that already
// exist. It returns the rows that were actually inserted.
func (r *Repository) InsertBatch(ctx context.Context, rows []Candidate, qrFor func(id int64) string) ([]Candidate, error) {
	var imported []Candidate
	err := store.Tx(ctx, r.db, func(tx *sql.Tx) error {
		for i := range rows {
			c := rows[i]
			ok, err := insertOne(ctx, tx, &c, qrFor, true)
			if err != nil {
				return err
			}
			if ok {
				imported = append(imported, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imported, nil
}

func insertOne(ctx context.Context, tx *sql.Tx, c *Candidate, qrFor func(id int64) string, skipExisting bool) (bool, error) {
	query := `
		INSERT INTO candidates (name, email, phone, age, degree, university, batch, skills, photo_url, hackathon_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, created_at, updated_at`
	row := tx.QueryRowContext(ctx, query, c.Name, c.Email, c.Phone, c.Age, c.Degree, c.University,
		c.Batch, c.Skills, c.PhotoURL, c.HackathonID)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, apperr.Storage("insert candidate", err)
	}

	qr := qrFor(c.ID)
	if _, err := tx.ExecContext(ctx, `UPDATE candidates SET qr_code = $2 WHERE id = $1`, c.ID, qr); err != nil {
		return false, apperr.Storage("assign qr code", err)
	}
	c.QRCode = &qr
	return true, nil
}

// HackathonExists reports whether a hackathon row with id exists.
func (r *Repository) HackathonExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM hackathons WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, apperr.Storage("check hackathon", err)
	}
	return exists, nil
}

// Get returns a single candidate by id.
func (r *Repository) Get(ctx context.Context, id int64) (Candidate, error) {
	return r.getBy(ctx, `id = $1`, id)
}

// GetByQR returns the candidate owning a QR payload.
func (r *Repository) GetByQR(ctx context.Context, qr string) (Candidate, error) {
	return r.getBy(ctx, `qr_code = $1`, qr)
}

// GetByEmailPhone returns the candidate matching both email and phone.
func (r *Repository) GetByEmailPhone(ctx context.Context, email, phone string) (Candidate, error) {
	return r.getBy(ctx, `LOWER(email) = LOWER($1) AND phone = $2`, email, phone)
}

func (r *Repository) getBy(ctx context.Context, where string, args ...any) (Candidate, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM candidates WHERE `+where, args...)
	c, err := ScanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Candidate{}, errCandidateNotFound
		}
		return Candidate{}, apperr.Storage("select candidate", err)
	}
	return c, nil
}

// List returns a page of candidates, newest first, and the total match count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Candidate, int, error) {
	where := ""
	args := []any{}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = ` WHERE name ILIKE $1 OR email ILIKE $1 OR university ILIKE $1 OR degree ILIKE $1 OR skills ILIKE $1`
		args = append(args, "%"+s+"%")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count candidates", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM candidates%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		columns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, apperr.Storage("list candidates", err)
	}
	defer rows.Close()

	var res []Candidate
	for rows.Next() {
		c, err := ScanRow(rows)
		if err != nil {
			return nil, 0, apperr.Storage("scan candidate", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("list candidates", err)
	}
	return res, total, nil
}

// Update applies a partial update.
func (r *Repository) Update(ctx context.Context, id int64, p Patch) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Age != nil {
		add("age", *p.Age)
	}
	if p.Degree != nil {
		add("degree", *p.Degree)
	}
	if p.University != nil {
		add("university", *p.University)
	}
	if p.Batch != nil {
		add("batch", *p.Batch)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Skills != nil {
		add("skills", *p.Skills)
	}
	if p.ResumePath != nil {
		add("resume_path", *p.ResumePath)
	}
	if p.SelfiePath != nil {
		add("selfie_path", *p.SelfiePath)
	}
	if len(sets) == 0 {
		return apperr.Invalid("No fields to update")
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE candidates SET %s, updated_at = NOW() WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.Storage("update candidate", err)
	}
	return requireAffected(res, errCandidateNotFound)
}

// Delete removes a candidate; attendance and memberships cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return apperr.Storage("delete candidate", err)
	}
	return requireAffected(res, errCandidateNotFound)
}

// AssignQR sets the QR payload only when none exists yet. It returns the
// payload now stored and whether this call created it.
func (r *Repository) AssignQR(ctx context.Context, id int64, qr string) (string, bool, error) {
	var stored string
	err := r.db.QueryRowContext(ctx, `
		UPDATE candidates SET qr_code = $2, updated_at = NOW()
		WHERE id = $1 AND qr_code IS NULL
		RETURNING qr_code
	`, id, qr).Scan(&stored)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, apperr.Storage("assign qr code", err)
	}

	c, err := r.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	if c.QRCode == nil {
		return "", false, apperr.Storage("assign qr code", errors.New("qr code vanished during assignment"))
	}
	return *c.QRCode, false, nil
}

// SetQRImage records where the rendered QR image was stored.
func (r *Repository) SetQRImage(ctx context.Context, id int64, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE candidates SET qr_image_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return apperr.Storage("set qr image", err)
	}
	return requireAffected(res, errCandidateNotFound)
}

// SetPhoto records the stored location of a candidate photo.
func (r *Repository) SetPhoto(ctx context.Context, id int64, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE candidates SET photo_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return apperr.Storage("set photo", err)
	}
	return requireAffected(res, errCandidateNotFound)
}

// ClearAll wipes squads, attendance and candidates in one transaction.
func (r *Repository) ClearAll(ctx context.Context) error {
	return store.Tx(ctx, r.db, func(tx *sql.Tx) error {
		for _, stmt := range []string{`DELETE FROM squad_members`, `DELETE FROM squads`, `DELETE FROM attendance`, `DELETE FROM candidates`} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return apperr.Storage("clear all", err)
			}
		}
		return nil
	})
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage("rows affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
