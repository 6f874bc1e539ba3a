package report

import (
	"context"
	"math"
	"time"

	"hackathon/internal/squad"
)

// Source is the read model the reports are built from.
type Source interface {
	CandidateSummaries(ctx context.Context) ([]CandidateSummary, error)
	SquadSummaries(ctx context.Context) ([]SquadSummary, error)
	DailyAttendance(ctx context.Context) ([]DayCount, error)
	SkillsDistribution(ctx context.Context) ([]SkillCount, error)
	AttendanceRows(ctx context.Context) ([]AttendanceRow, error)
}

// Squads lists squads with their members.
type Squads interface {
	List(ctx context.Context, hackathonID *int64) ([]squad.Squad, error)
}

// Assets loads stored photos for the PDF.
type Assets interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}

// Summary holds the headline numbers of the comprehensive report.
type Summary struct {
	TotalCandidates         int     `json:"totalCandidates"`
	TotalSquads             int     `json:"totalSquads"`
	TotalAttendanceDays     int     `json:"totalAttendanceDays"`
	AverageAttendancePerDay float64 `json:"averageAttendancePerDay"`
}

// Comprehensive is the full JSON report.
type Comprehensive struct {
	GeneratedAt        time.Time          `json:"generatedAt"`
	Summary            Summary            `json:"summary"`
	Candidates         []CandidateSummary `json:"candidates"`
	Squads             []SquadSummary     `json:"squads"`
	AttendanceStats    []DayCount         `json:"attendanceStats"`
	SkillsDistribution []SkillCount       `json:"skillsDistribution"`
}

// Service renders reports.
type Service struct {
	src    Source
	squads Squads
	assets Assets
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a report service. Times in exports are shown in loc.
func NewService(src Source, squads Squads, assets Assets, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{src: src, squads: squads, assets: assets, loc: loc, now: time.Now}
}

// Comprehensive collects candidates, squads, daily attendance and skills.
func (s *Service) Comprehensive(ctx context.Context) (Comprehensive, error) {
	candidates, err := s.src.CandidateSummaries(ctx)
	if err != nil {
		return Comprehensive{}, err
	}
	squads, err := s.src.SquadSummaries(ctx)
	if err != nil {
		return Comprehensive{}, err
	}
	days, err := s.src.DailyAttendance(ctx)
	if err != nil {
		return Comprehensive{}, err
	}
	skills, err := s.src.SkillsDistribution(ctx)
	if err != nil {
		return Comprehensive{}, err
	}

	total := 0
	for _, d := range days {
		total += d.Attendance
	}
	var avg float64
	if len(days) > 0 {
		avg = math.Round(float64(total)/float64(len(days))*100) / 100
	}

	return Comprehensive{
		GeneratedAt: s.now().UTC(),
		Summary: Summary{
			TotalCandidates:         len(candidates),
			TotalSquads:             len(squads),
			TotalAttendanceDays:     total,
			AverageAttendancePerDay: avg,
		},
		Candidates:         candidates,
		Squads:             squads,
		AttendanceStats:    days,
		SkillsDistribution: skills,
	}, nil
}

func (s *Service) stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(s.loc).Format("2006-01-02 15:04:05")
}
