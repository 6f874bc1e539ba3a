package report

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/xuri/excelize/v2"

	"hackathon/internal/apperr"
	"hackathon/internal/candidate"
	"hackathon/internal/squad"
)

type fakeSource struct {
	candidates []CandidateSummary
	squads     []SquadSummary
	days       []DayCount
	skills     []SkillCount
	attendance []AttendanceRow
}

func (f fakeSource) CandidateSummaries(context.Context) ([]CandidateSummary, error) {
	return f.candidates, nil
}
func (f fakeSource) SquadSummaries(context.Context) ([]SquadSummary, error) { return f.squads, nil }
func (f fakeSource) DailyAttendance(context.Context) ([]DayCount, error)    { return f.days, nil }
func (f fakeSource) SkillsDistribution(context.Context) ([]SkillCount, error) {
	return f.skills, nil
}
func (f fakeSource) AttendanceRows(context.Context) ([]AttendanceRow, error) {
	return f.attendance, nil
}

type fakeSquads map[int64][]squad.Squad

func (f fakeSquads) List(_ context.Context, hackathonID *int64) ([]squad.Squad, error) {
	if hackathonID == nil {
		return nil, errors.New("expected a hackathon filter")
	}
	return f[*hackathonID], nil
}

type fakeAssets map[string][]byte

func (f fakeAssets) Load(_ context.Context, ref string) ([]byte, error) {
	data, ok := f[ref]
	if !ok {
		return nil, errors.New("missing asset")
	}
	return data, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

var fixedNow = time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)

func newTestService(src Source, sq Squads, assets Assets) *Service {
	svc := NewService(src, sq, assets, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestComprehensiveSummary(t *testing.T) {
	src := fakeSource{
		candidates: []CandidateSummary{{ID: 1, Name: "Ann"}, {ID: 2, Name: "Bob"}, {ID: 3, Name: "Cy"}},
		squads:     []SquadSummary{{ID: 1, Name: "Alpha", MemberNames: []string{"Ann", "Bob"}}},
		days:       []DayCount{{Date: "2024-03-09", Attendance: 3}, {Date: "2024-03-08", Attendance: 2, CheckedOut: 2}, {Date: "2024-03-07", Attendance: 2}},
		skills:     []SkillCount{{Skills: "go", Count: 2}},
	}
	rep, err := newTestService(src, nil, nil).Comprehensive(context.Background())
	if err != nil {
		t.Fatalf("Comprehensive: %v", err)
	}
	want := Summary{TotalCandidates: 3, TotalSquads: 1, TotalAttendanceDays: 7, AverageAttendancePerDay: 2.33}
	if rep.Summary != want {
		t.Fatalf("summary = %+v, want %+v", rep.Summary, want)
	}
	if !rep.GeneratedAt.Equal(fixedNow) {
		t.Fatalf("generatedAt = %v", rep.GeneratedAt)
	}
}

func TestComprehensiveWithoutAttendance(t *testing.T) {
	rep, err := newTestService(fakeSource{}, nil, nil).Comprehensive(context.Background())
	if err != nil {
		t.Fatalf("Comprehensive: %v", err)
	}
	if rep.Summary.AverageAttendancePerDay != 0 || rep.Summary.TotalAttendanceDays != 0 {
		t.Fatalf("unexpected summary %+v", rep.Summary)
	}
}

func TestWorkbookSheets(t *testing.T) {
	age := 21
	last := time.Date(2024, 3, 9, 9, 15, 0, 0, time.UTC)
	out := time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC)
	src := fakeSource{
		candidates: []CandidateSummary{{ID: 1, Name: "Ann", Email: "ann@example.com", Age: &age,
			TotalAttendanceDays: 2, LastAttendance: &last, CreatedAt: last}},
		squads:     []SquadSummary{{ID: 4, Name: "Alpha", MemberNames: []string{"Ann", "Bob"}, CreatedAt: last}},
		attendance: []AttendanceRow{{ID: 9, CandidateName: "Ann", Email: "ann@example.com", CheckIn: last, CheckOut: &out, Status: "checked_out"}},
	}

	data, name, err := newTestService(src, nil, nil).Workbook(context.Background())
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	if name != "hackathon_report_2024-03-09.xlsx" {
		t.Fatalf("file name = %q", name)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 3 || got[0] != SheetCandidates || got[1] != SheetSquads || got[2] != SheetAttendance {
		t.Fatalf("sheets = %v", got)
	}
	rows, err := f.GetRows(SheetCandidates)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "ID" || rows[1][1] != "Ann" || rows[1][2] != "21" || rows[1][10] != "2024-03-09 09:15:00" {
		t.Fatalf("candidate rows = %v", rows)
	}
	rows, _ = f.GetRows(SheetSquads)
	if rows[1][2] != "Ann, Bob" {
		t.Fatalf("squad rows = %v", rows)
	}
	rows, _ = f.GetRows(SheetAttendance)
	if rows[1][4] != "2024-03-09 17:00:00" || rows[1][5] != "checked_out" {
		t.Fatalf("attendance rows = %v", rows)
	}
}

func TestSquadsPDF(t *testing.T) {
	photo := pngBytes(t)
	squads := fakeSquads{7: {
		{ID: 1, Name: "Alpha", Members: []candidate.Candidate{
			{ID: 1, Name: "Ann", Skills: "go", PhotoURL: "/uploads/photos/ann.jpg"},
			{ID: 2, Name: "Bob", PhotoURL: "/uploads/photos/missing.jpg"},
			{ID: 3, Name: "Zoë"},
		}},
		{ID: 2, Name: "Beta", Members: []candidate.Candidate{}},
	}}
	svc := newTestService(fakeSource{}, squads, fakeAssets{"/uploads/photos/ann.jpg": photo})

	data, err := svc.SquadsPDF(context.Background(), 7)
	if err != nil {
		t.Fatalf("SquadsPDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", data[:16])
	}
}

func TestSquadsPDFWithoutSquads(t *testing.T) {
	svc := newTestService(fakeSource{}, fakeSquads{}, nil)
	_, err := svc.SquadsPDF(context.Background(), 99)
	if !errors.Is(err, apperr.ErrNotFound) || apperr.Message(err) != "No squads found" {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSquadSummariesSplitsMembers(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("FROM squads s").WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "names", "skills"}).
		AddRow(1, "Alpha", now, "Ann\nBob", "go").
		AddRow(2, "Empty", now, "", ""))

	got, err := NewRepository(db).SquadSummaries(context.Background())
	if err != nil {
		t.Fatalf("SquadSummaries: %v", err)
	}
	if len(got) != 2 || len(got[0].MemberNames) != 2 || got[0].MemberNames[1] != "Bob" {
		t.Fatalf("unexpected summaries %+v", got)
	}
	if got[1].MemberNames == nil || len(got[1].MemberNames) != 0 {
		t.Fatalf("empty squad should have an empty list, got %#v", got[1].MemberNames)
	}
}

func TestDailyAttendanceStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM attendance").WillReturnError(errors.New("connection reset"))
	if _, err := NewRepository(db).DailyAttendance(context.Background()); !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
