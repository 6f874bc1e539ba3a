package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hackathon/internal/apperr"
	"hackathon/internal/store"
)

// Admin is an operator account.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

var (
	errAdminNotFound   = apperr.NotFound("Admin not found")
	errBootstrapClosed = apperr.Unauthorized("Access token required")
)

// Repository persists admins in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a new admin. A taken username is a conflict.
func (r *Repository) Insert(ctx context.Context, username, hash string) (Admin, error) {
	a := Admin{Username: username, PasswordHash: hash}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO admins (username, password_hash) VALUES ($1, $2)
		RETURNING id, created_at
	`, username, hash).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if apperr.PgCode(err) == apperr.UniqueViolation {
			return Admin{}, apperr.Conflict("Admin with this username already exists")
		}
		return Admin{}, apperr.Storage("insert admin", err)
	}
	return a, nil
}

// ByUsername looks an admin up by login name.
func (r *Repository) ByUsername(ctx context.Context, username string) (Admin, error) {
	return r.getBy(ctx, `username = $1`, username)
}

// ByID looks an admin up by id.
func (r *Repository) ByID(ctx context.Context, id int64) (Admin, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *Repository) getBy(ctx context.Context, where string, arg any) (Admin, error) {
	var a Admin
	err := r.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at FROM admins WHERE `+where, arg).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Admin{}, errAdminNotFound
		}
		return Admin{}, apperr.Storage("select admin", err)
	}
	return a, nil
}

// InsertFirst stores the first admin. The table is locked for the check so
// two concurrent bootstraps cannot both succeed; once any admin exists it
// refuses with errBootstrapClosed.
func (r *Repository) InsertFirst(ctx context.Context, username, hash string) (Admin, error) {
	a := Admin{Username: username, PasswordHash: hash}
	err := store.Tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `LOCK TABLE admins IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return apperr.Storage("lock admins", err)
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO admins (username, password_hash)
			SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM admins)
			RETURNING id, created_at
		`, username, hash).Scan(&a.ID, &a.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return errBootstrapClosed
		}
		if err != nil {
			return apperr.Storage("insert first admin", err)
		}
		return nil
	})
	if err != nil {
		return Admin{}, err
	}
	return a, nil
}

// Store is the persistence admin access needs.
type Store interface {
	Insert(ctx context.Context, username, hash string) (Admin, error)
	ByUsername(ctx context.Context, username string) (Admin, error)
	ByID(ctx context.Context, id int64) (Admin, error)
	InsertFirst(ctx context.Context, username, hash string) (Admin, error)
}

// Options configures token issuance.
type Options struct {
	Issuer     string
	SigningKey string
	TTL        time.Duration
	BcryptCost int
}

// Service checks admin credentials and issues tokens.
type Service struct {
	repo Store
	opts Options
}

// NewService creates the admin service.
func NewService(repo Store, opts Options) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Service{repo: repo, opts: opts}
}

var errInvalidCredentials = apperr.Unauthorized("Invalid credentials")

// Login verifies a username and password and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (Admin, Token, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Admin{}, Token{}, apperr.Invalid("Username and password are required")
	}
	a, err := s.repo.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Admin{}, Token{}, errInvalidCredentials
		}
		return Admin{}, Token{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return Admin{}, Token{}, errInvalidCredentials
	}
	tok, err := Issue(a.ID, a.Username, s.opts.Issuer, s.opts.SigningKey, s.opts.TTL)
	if err != nil {
		return Admin{}, Token{}, err
	}
	return a, tok, nil
}

// Create adds an admin. Anonymous callers may only create the first one.
func (s *Service) Create(ctx context.Context, username, password string, authenticated bool) (Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Admin{}, apperr.Invalid("Username and password are required")
	}
	if len(password) < 8 {
		return Admin{}, apperr.Invalid("Password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return Admin{}, err
	}
	if !authenticated {
		return s.repo.InsertFirst(ctx, username, string(hash))
	}
	return s.repo.Insert(ctx, username, string(hash))
}

// Me returns the admin a token was issued to.
func (s *Service) Me(ctx context.Context, claims Claims) (Admin, error) {
	return s.repo.ByID(ctx, claims.AdminID)
}
