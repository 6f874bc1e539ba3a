package report

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"hackathon/internal/apperr"
)

// CandidateSummary is a candidate with attendance totals.
type CandidateSummary struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Phone               string     `json:"-"`
	Age                 *int       `json:"-"`
	Degree              string     `json:"-"`
	University          string     `json:"university"`
	Batch               string     `json:"-"`
	Skills              string     `json:"skills"`
	ResumePath          string     `json:"resumePath"`
	SelfiePath          string     `json:"selfiePath"`
	CreatedAt           time.Time  `json:"-"`
	TotalAttendanceDays int        `json:"totalAttendanceDays"`
	LastAttendance      *time.Time `json:"lastAttendance"`
}

// SquadSummary is a squad with its members flattened to names and skills.
type SquadSummary struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	MemberNames  []string  `json:"memberNames"`
	MemberSkills []string  `json:"memberSkills"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DayCount is the attendance tally of one calendar day.
type DayCount struct {
	Date       string `json:"date"`
	Attendance int    `json:"attendance_count"`
	CheckedOut int    `json:"checked_out_count"`
}

// SkillCount is how many candidates share one skills value.
type SkillCount struct {
	Skills string `json:"skills"`
	Count  int    `json:"count"`
}

// AttendanceRow is one attendance record flattened for export.
type AttendanceRow struct {
	ID            int64
	CandidateName string
	Email         string
	CheckIn       time.Time
	CheckOut      *time.Time
	Status        string
}

// listSep joins aggregated member values; names never contain a newline.
const listSep = "\n"

// Repository runs the read-only reporting queries.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CandidateSummaries returns every candidate by name with attendance totals.
func (r *Repository) CandidateSummaries(ctx context.Context) ([]CandidateSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.email, c.phone, c.age, c.degree, c.university, c.batch, c.skills,
			c.resume_path, c.selfie_path, c.created_at, COUNT(a.id), MAX(a.check_in_time)
		FROM candidates c
		LEFT JOIN attendance a ON a.candidate_id = c.id
		GROUP BY c.id
		ORDER BY c.name, c.id`)
	if err != nil {
		return nil, apperr.Storage("report candidates", err)
	}
	defer rows.Close()

	out := []CandidateSummary{}
	for rows.Next() {
		var c CandidateSummary
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Age, &c.Degree, &c.University, &c.Batch,
			&c.Skills, &c.ResumePath, &c.SelfiePath, &c.CreatedAt, &c.TotalAttendanceDays, &c.LastAttendance); err != nil {
			return nil, apperr.Storage("scan report candidate", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("report candidates", err)
	}
	return out, nil
}

// SquadSummaries returns every squad by name with member names and skills.
func (r *Repository) SquadSummaries(ctx context.Context) ([]SquadSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.created_at,
			COALESCE(string_agg(c.name, E'\n' ORDER BY c.name), ''),
			COALESCE(string_agg(NULLIF(c.skills, ''), E'\n' ORDER BY c.name), '')
		FROM squads s
		LEFT JOIN squad_members sm ON sm.squad_id = s.id
		LEFT JOIN candidates c ON c.id = sm.candidate_id
		GROUP BY s.id
		ORDER BY s.name, s.id`)
	if err != nil {
		return nil, apperr.Storage("report squads", err)
	}
	defer rows.Close()

	out := []SquadSummary{}
	for rows.Next() {
		var (
			s             SquadSummary
			names, skills string
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &names, &skills); err != nil {
			return nil, apperr.Storage("scan report squad", err)
		}
		s.MemberNames = split(names)
		s.MemberSkills = split(skills)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("report squads", err)
	}
	return out, nil
}

func split(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, listSep)
}

// DailyAttendance returns per-day check-in and check-out counts, latest first.
func (r *Repository) DailyAttendance(ctx context.Context) ([]DayCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(attendance_date, 'YYYY-MM-DD'), COUNT(*), COUNT(check_out_time)
		FROM attendance
		GROUP BY attendance_date
		ORDER BY attendance_date DESC`)
	if err != nil {
		return nil, apperr.Storage("report daily attendance", err)
	}
	defer rows.Close()

	out := []DayCount{}
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Date, &d.Attendance, &d.CheckedOut); err != nil {
			return nil, apperr.Storage("scan day count", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("report daily attendance", err)
	}
	return out, nil
}

// SkillsDistribution groups candidates by their skills text, most common first.
func (r *Repository) SkillsDistribution(ctx context.Context) ([]SkillCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT skills, COUNT(*)
		FROM candidates
		WHERE skills <> ''
		GROUP BY skills
		ORDER BY COUNT(*) DESC, skills`)
	if err != nil {
		return nil, apperr.Storage("report skills", err)
	}
	defer rows.Close()

	out := []SkillCount{}
	for rows.Next() {
		var s SkillCount
		if err := rows.Scan(&s.Skills, &s.Count); err != nil {
			return nil, apperr.Storage("scan skill count", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("report skills", err)
	}
	return out, nil
}

// AttendanceRows returns every attendance record, latest check-in first.
func (r *Repository) AttendanceRows(ctx context.Context) ([]AttendanceRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, c.name, c.email, a.check_in_time, a.check_out_time, a.status
		FROM attendance a
		JOIN candidates c ON c.id = a.candidate_id
		ORDER BY a.check_in_time DESC, a.id DESC`)
	if err != nil {
		return nil, apperr.Storage("report attendance", err)
	}
	defer rows.Close()

	out := []AttendanceRow{}
	for rows.Next() {
		var a AttendanceRow
		if err := rows.Scan(&a.ID, &a.CandidateName, &a.Email, &a.CheckIn, &a.CheckOut, &a.Status); err != nil {
			return nil, apperr.Storage("scan attendance row", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("report attendance", err)
	}
	return out, nil
}
