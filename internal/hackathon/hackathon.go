package hackathon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"hackathon/internal/apperr"
)

// Lifecycle statuses. Deleting a hackathon only moves it to StatusDeleted.
const (
	StatusScheduled = "scheduled"
	StatusUpcoming  = "upcoming"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusDeleted   = "deleted"
)

// ValidStatus reports whether s is one of the lifecycle statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusUpcoming, StatusOngoing, StatusCompleted, StatusDeleted:
		return true
	}
	return false
}

// Hackathon is one event candidates can be registered for.
type Hackathon struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Slug             string    `json:"slug"`
	ClientName       *string   `json:"client_name"`
	ExecutionDate    *string   `json:"execution_date"`
	ExecutedBy       *string   `json:"executed_by"`
	Description      string    `json:"description"`
	RegistrationLink *string   `json:"registration_link"`
	SkillsFocused    *string   `json:"skills_focused"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Patch holds the fields of a partial update. Nil leaves a field unchanged.
type Patch struct {
	Title            *string
	ClientName       *string
	ExecutionDate    *string
	ExecutedBy       *string
	Description      *string
	RegistrationLink *string
	SkillsFocused    *string
	Status           *string
}

const columns = `id, title, slug, client_name, to_char(execution_date, 'YYYY-MM-DD'), executed_by, description,
	registration_link, skills_focused, status, created_at, updated_at`

var errHackathonNotFound = apperr.NotFound("Hackathon not found")

// Repository persists hackathons in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanHackathon(row interface{ Scan(...any) error }) (Hackathon, error) {
	var h Hackathon
	err := row.Scan(&h.ID, &h.Title, &h.Slug, &h.ClientName, &h.ExecutionDate, &h.ExecutedBy, &h.Description,
		&h.RegistrationLink, &h.SkillsFocused, &h.Status, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

// Create inserts a hackathon in the scheduled state.
func (r *Repository) Create(ctx context.Context, h Hackathon) (Hackathon, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO hackathons (title, slug, client_name, execution_date, executed_by, description,
			registration_link, skills_focused, status)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)
		RETURNING `+columns,
		h.Title, h.Slug, h.ClientName, h.ExecutionDate, h.ExecutedBy, h.Description,
		h.RegistrationLink, h.SkillsFocused, StatusScheduled)
	out, err := scanHackathon(row)
	if err != nil {
		return Hackathon{}, apperr.Storage("insert hackathon", err)
	}
	return out, nil
}

// Get returns one hackathon, including soft-deleted ones.
func (r *Repository) Get(ctx context.Context, id int64) (Hackathon, error) {
	h, err := scanHackathon(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM hackathons WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Hackathon{}, errHackathonNotFound
		}
		return Hackathon{}, apperr.Storage("select hackathon", err)
	}
	return h, nil
}

// List pages through hackathons matching search, latest execution date first.
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]Hackathon, int, error) {
	where, args := "", []any{}
	if s := strings.TrimSpace(search); s != "" {
		where = ` WHERE title ILIKE $1 OR client_name ILIKE $1 OR executed_by ILIKE $1 OR description ILIKE $1 OR skills_focused ILIKE $1`
		args = append(args, "%"+s+"%")
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hackathons`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count hackathons", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM hackathons%s ORDER BY execution_date DESC NULLS LAST, id DESC LIMIT $%d OFFSET $%d`,
		columns, where, len(args)+1, len(args)+2)
	res, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

// ListByStatus pages through hackathons in one status.
func (r *Repository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]Hackathon, error) {
	return r.query(ctx, `SELECT `+columns+` FROM hackathons WHERE status = $1
		ORDER BY execution_date DESC NULLS LAST, id DESC LIMIT $2 OFFSET $3`, status, limit, offset)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Hackathon, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list hackathons", err)
	}
	defer rows.Close()
	res := []Hackathon{}
	for rows.Next() {
		h, err := scanHackathon(rows)
		if err != nil {
			return nil, apperr.Storage("scan hackathon", err)
		}
		res = append(res, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list hackathons", err)
	}
	return res, nil
}

// Update applies a partial update and returns the stored row.
func (r *Repository) Update(ctx context.Context, id int64, p Patch, newSlug string) (Hackathon, error) {
	sets, args := []string{}, []any{}
	add := func(expr string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}
	if p.Title != nil {
		add("title = $%d", *p.Title)
		add("slug = $%d", newSlug)
	}
	if p.ClientName != nil {
		add("client_name = $%d", *p.ClientName)
	}
	if p.ExecutionDate != nil {
		var d any
		if *p.ExecutionDate != "" {
			d = *p.ExecutionDate
		}
		add("execution_date = $%d::date", d)
	}
	if p.ExecutedBy != nil {
		add("executed_by = $%d", *p.ExecutedBy)
	}
	if p.Description != nil {
		add("description = $%d", *p.Description)
	}
	if p.RegistrationLink != nil {
		add("registration_link = $%d", *p.RegistrationLink)
	}
	if p.SkillsFocused != nil {
		add("skills_focused = $%d", *p.SkillsFocused)
	}
	if p.Status != nil {
		add("status = $%d", *p.Status)
	}
	if len(sets) == 0 {
		return Hackathon{}, apperr.Invalid("No fields to update")
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE hackathons SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), columns)
	h, err := scanHackathon(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Hackathon{}, errHackathonNotFound
		}
		return Hackathon{}, apperr.Storage("update hackathon", err)
	}
	return h, nil
}

// SetStatus moves a hackathon to status.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE hackathons SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return apperr.Storage("set hackathon status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage("set hackathon status", err)
	}
	if n == 0 {
		return errHackathonNotFound
	}
	return nil
}

// Store is the persistence the registry needs.
type Store interface {
	Create(ctx context.Context, h Hackathon) (Hackathon, error)
	Get(ctx context.Context, id int64) (Hackathon, error)
	List(ctx context.Context, search string, limit, offset int) ([]Hackathon, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]Hackathon, error)
	Update(ctx context.Context, id int64, p Patch, newSlug string) (Hackathon, error)
	SetStatus(ctx context.Context, id int64, status string) error
}

// Service validates hackathon writes.
type Service struct {
	repo Store
}

// NewService creates a service backed by a repository.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create registers a hackathon. Title and description are required.
func (s *Service) Create(ctx context.Context, h Hackathon) (Hackathon, error) {
	h.Title = strings.TrimSpace(h.Title)
	h.Description = strings.TrimSpace(h.Description)
	if h.Title == "" || h.Description == "" {
		return Hackathon{}, apperr.Invalid("Title and description are required.")
	}
	if err := validDate(h.ExecutionDate); err != nil {
		return Hackathon{}, err
	}
	if h.ExecutionDate != nil && *h.ExecutionDate == "" {
		h.ExecutionDate = nil
	}
	h.Slug = slug.Make(h.Title)
	return s.repo.Create(ctx, h)
}

// Get returns one hackathon.
func (s *Service) Get(ctx context.Context, id int64) (Hackathon, error) {
	return s.repo.Get(ctx, id)
}

// List pages through hackathons.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Hackathon, int, error) {
	return s.repo.List(ctx, search, limit, offset)
}

// ListByStatus pages through hackathons in one status.
func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]Hackathon, error) {
	if !ValidStatus(status) {
		return nil, apperr.Invalid("Invalid status value")
	}
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

// Update applies a partial update. A new title also refreshes the slug.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (Hackathon, error) {
	if p.Status != nil && !ValidStatus(*p.Status) {
		return Hackathon{}, apperr.Invalid("Invalid status value")
	}
	if err := validDate(p.ExecutionDate); err != nil {
		return Hackathon{}, err
	}
	var newSlug string
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Hackathon{}, apperr.Invalid("Title cannot be empty")
		}
		p.Title = &title
		newSlug = slug.Make(title)
	}
	return s.repo.Update(ctx, id, p, newSlug)
}

// Delete soft-deletes a hackathon.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusDeleted)
}

func validDate(d *string) error {
	if d == nil || *d == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", *d); err != nil {
		return apperr.Invalid("Invalid execution date %q, expected YYYY-MM-DD", *d)
	}
	return nil
}
