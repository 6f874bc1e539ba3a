package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel kinds. Every error produced by the services carries exactly one of these.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("requested resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrScanInProgress = errors.New("scan already being processed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrStorage        = errors.New("storage error")
)

// Postgres SQLSTATE codes the repositories care about.
const (
	UniqueViolation     = "23505"
	ForeignKeyViolation = "23503"
	CheckViolation      = "23514"
)

// Error pairs a sentinel kind with a client-safe message and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Invalid returns a validation error with the given client message.
func Invalid(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error with the given client message.
func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

// Conflict returns a conflict error with the given client message.
func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Msg: msg}
}

// InProgress reports that a concurrent request holds the same resource; the
// caller may retry.
func InProgress(msg string, cause error) error {
	return &Error{Kind: ErrScanInProgress, Msg: msg, Err: cause}
}

// Unauthorized returns an authentication failure with the given client message.
func Unauthorized(msg string) error {
	return &Error{Kind: ErrUnauthorized, Msg: msg}
}

// Storage wraps a database failure. Constraint violations are translated into
// their domain kind so handlers can answer 409/400 instead of 500.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	switch PgCode(err) {
	case UniqueViolation:
		return &Error{Kind: ErrConflict, Msg: "resource already exists", Err: err}
	case ForeignKeyViolation:
		return &Error{Kind: ErrValidation, Msg: "referenced record does not exist", Err: err}
	case CheckViolation:
		return &Error{Kind: ErrValidation, Msg: "value violates a data constraint", Err: err}
	}
	return &Error{Kind: ErrStorage, Msg: op, Err: err}
}

// PgCode returns the SQLSTATE of a Postgres error, or "" for anything else.
func PgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrScanInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// Message returns the text that is safe to show a client. Storage and unknown
// errors never leak their cause.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "Server error"
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	if errors.Is(err, ErrScanInProgress) {
		return "Scan already being processed, retry shortly"
	}
	return err.Error()
}
