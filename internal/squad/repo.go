package squad

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hackathon/internal/apperr"
	"hackathon/internal/candidate"
	"hackathon/internal/store"
)

var errSquadNotFound = apperr.NotFound("Squad not found")

// Squad is a named team of candidates.
type Squad struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	HackathonID *int64                `json:"hackathon_id"`
	CreatedAt   time.Time             `json:"created_at"`
	MemberIDs   []int64               `json:"memberIds,omitempty"`
	Members     []candidate.Candidate `json:"members,omitempty"`
}

// Repository persists squads and their memberships in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the squad and one membership per member in a single
// transaction; nothing is written if any insert fails.
func (r *Repository) Create(ctx context.Context, name string, hackathonID *int64, memberIDs []int64) (Squad, error) {
	sq := Squad{Name: name, HackathonID: hackathonID, MemberIDs: memberIDs}
	err := store.Tx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO squads (name, hackathon_id) VALUES ($1, $2)
			RETURNING id, created_at
		`, name, hackathonID).Scan(&sq.ID, &sq.CreatedAt)
		if err != nil {
			if apperr.PgCode(err) == apperr.ForeignKeyViolation {
				return apperr.Invalid("Invalid hackathon ID")
			}
			return apperr.Storage("insert squad", err)
		}
		return insertMembers(ctx, tx, sq.ID, memberIDs)
	})
	if err != nil {
		return Squad{}, err
	}
	return sq, nil
}

// Update renames the squad and, when memberIDs is non-nil, replaces its
// whole membership.
func (r *Repository) Update(ctx context.Context, id int64, name string, memberIDs *[]int64) error {
	return store.Tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE squads SET name = $2 WHERE id = $1`, id, name)
		if err != nil {
			return apperr.Storage("update squad", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return apperr.Storage("update squad", err)
		} else if n == 0 {
			return errSquadNotFound
		}
		if memberIDs == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM squad_members WHERE squad_id = $1`, id); err != nil {
			return apperr.Storage("clear squad members", err)
		}
		return insertMembers(ctx, tx, id, *memberIDs)
	})
}

func insertMembers(ctx context.Context, tx *sql.Tx, squadID int64, memberIDs []int64) error {
	for _, cid := range memberIDs {
		_, err := tx.ExecContext(ctx, `INSERT INTO squad_members (squad_id, candidate_id) VALUES ($1, $2)`, squadID, cid)
		if err != nil {
			if apperr.PgCode(err) == apperr.ForeignKeyViolation {
				return apperr.Invalid("Unknown candidate id %d in memberIds", cid)
			}
			return apperr.Storage("insert squad member", err)
		}
	}
	return nil
}

// Delete removes the squad's memberships and then the squad.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return store.Tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM squad_members WHERE squad_id = $1`, id); err != nil {
			return apperr.Storage("delete squad members", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM squads WHERE id = $1`, id)
		if err != nil {
			return apperr.Storage("delete squad", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperr.Storage("delete squad", err)
		}
		if n == 0 {
			return errSquadNotFound
		}
		return nil
	})
}

// Get returns one squad with its members.
func (r *Repository) Get(ctx context.Context, id int64) (Squad, error) {
	var sq Squad
	err := r.db.QueryRowContext(ctx, `SELECT id, name, hackathon_id, created_at FROM squads WHERE id = $1`, id).
		Scan(&sq.ID, &sq.Name, &sq.HackathonID, &sq.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Squad{}, errSquadNotFound
		}
		return Squad{}, apperr.Storage("select squad", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT sm.squad_id, `+candidate.Columns("c")+`
		FROM squad_members sm
		JOIN candidates c ON c.id = sm.candidate_id
		WHERE sm.squad_id = $1
		ORDER BY c.name ASC, c.id ASC
	`, id)
	if err != nil {
		return Squad{}, apperr.Storage("select squad members", err)
	}
	defer rows.Close()

	members, err := collectMembers(rows)
	if err != nil {
		return Squad{}, err
	}
	sq.Members = members[id]
	if sq.Members == nil {
		sq.Members = []candidate.Candidate{}
	}
	return sq, nil
}

// List returns squads newest first with their members attached. A non-nil
// hackathonID limits the result to that hackathon's squads.
func (r *Repository) List(ctx context.Context, hackathonID *int64) ([]Squad, error) {
	where, args := "", []any{}
	if hackathonID != nil {
		where, args = ` WHERE s.hackathon_id = $1`, []any{*hackathonID}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.hackathon_id, s.created_at
		FROM squads s`+where+`
		ORDER BY s.created_at DESC, s.id DESC`, args...)
	if err != nil {
		return nil, apperr.Storage("list squads", err)
	}
	var squads []Squad
	for rows.Next() {
		var sq Squad
		if err := rows.Scan(&sq.ID, &sq.Name, &sq.HackathonID, &sq.CreatedAt); err != nil {
			rows.Close()
			return nil, apperr.Storage("scan squad", err)
		}
		squads = append(squads, sq)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list squads", err)
	}
	if len(squads) == 0 {
		return []Squad{}, nil
	}

	mrows, err := r.db.QueryContext(ctx, `
		SELECT sm.squad_id, `+candidate.Columns("c")+`
		FROM squad_members sm
		JOIN squads s ON s.id = sm.squad_id
		JOIN candidates c ON c.id = sm.candidate_id`+where+`
		ORDER BY c.name ASC, c.id ASC`, args...)
	if err != nil {
		return nil, apperr.Storage("list squad members", err)
	}
	defer mrows.Close()

	members, err := collectMembers(mrows)
	if err != nil {
		return nil, err
	}
	for i := range squads {
		squads[i].Members = members[squads[i].ID]
		if squads[i].Members == nil {
			squads[i].Members = []candidate.Candidate{}
		}
	}
	return squads, nil
}

func collectMembers(rows *sql.Rows) (map[int64][]candidate.Candidate, error) {
	out := map[int64][]candidate.Candidate{}
	for rows.Next() {
		var squadID int64
		c, err := candidate.ScanRow(prefixed{rows, &squadID})
		if err != nil {
			return nil, apperr.Storage("scan squad member", err)
		}
		out[squadID] = append(out[squadID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("read squad members", err)
	}
	return out, nil
}

// prefixed scans a leading column into head before the candidate columns.
type prefixed struct {
	rows *sql.Rows
	head any
}

func (p prefixed) Scan(dest ...any) error {
	return p.rows.Scan(append([]any{p.head}, dest...)...)
}

// PresentIDs returns candidates whose record for day is still open.
func (r *Repository) PresentIDs(ctx context.Context, day string) ([]int64, error) {
	return r.ids(ctx, `SELECT DISTINCT candidate_id FROM attendance
		WHERE status = 'present' AND attendance_date = $1::date`, day)
}

// AssignedIDs returns candidates that belong to any squad.
func (r *Repository) AssignedIDs(ctx context.Context) ([]int64, error) {
	return r.ids(ctx, `SELECT DISTINCT candidate_id FROM squad_members`)
}

func (r *Repository) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("select candidate ids", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Storage("scan candidate id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("select candidate ids", err)
	}
	return ids, nil
}

// CandidatesByID fetches the given candidates ordered by name.
func (r *Repository) CandidatesByID(ctx context.Context, ids []int64) ([]candidate.Candidate, error) {
	if len(ids) == 0 {
		return []candidate.Candidate{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+candidate.Columns("")+`
		FROM candidates
		WHERE id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY name ASC, id ASC`, args...)
	if err != nil {
		return nil, apperr.Storage("select candidates", err)
	}
	defer rows.Close()

	out := []candidate.Candidate{}
	for rows.Next() {
		c, err := candidate.ScanRow(rows)
		if err != nil {
			return nil, apperr.Storage("scan candidate", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("select candidates", err)
	}
	return out, nil
}
