package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetCandidates = "Candidates"
	SheetSquads     = "Squads"
	SheetAttendance = "Attendance"
)

// Workbook exports candidates, squads and attendance as an XLSX file and
// returns its bytes with a dated download name.
func (s *Service) Workbook(ctx context.Context) ([]byte, string, error) {
	candidates, err := s.src.CandidateSummaries(ctx)
	if err != nil {
		return nil, "", err
	}
	squads, err := s.src.SquadSummaries(ctx)
	if err != nil {
		return nil, "", err
	}
	attendance, err := s.src.AttendanceRows(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCandidates); err != nil {
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetSquads, SheetAttendance} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, "", fmt.Errorf("add sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, "", fmt.Errorf("header style: %w", err)
	}

	rows := [][]any{{"ID", "Name", "Age", "Degree", "University", "Batch", "Phone", "Email", "Skills",
		"Total Attendance Days", "Last Attendance", "Registration Date"}}
	for _, c := range candidates {
		var age any = ""
		if c.Age != nil {
			age = *c.Age
		}
		created := c.CreatedAt
		rows = append(rows, []any{c.ID, c.Name, age, c.Degree, c.University, c.Batch, c.Phone, c.Email, c.Skills,
			c.TotalAttendanceDays, s.stamp(c.LastAttendance), s.stamp(&created)})
	}
	if err := writeSheet(f, SheetCandidates, rows, bold); err != nil {
		return nil, "", err
	}

	rows = [][]any{{"Squad ID", "Squad Name", "Members", "Created Date"}}
	for _, sq := range squads {
		created := sq.CreatedAt
		rows = append(rows, []any{sq.ID, sq.Name, strings.Join(sq.MemberNames, ", "), s.stamp(&created)})
	}
	if err := writeSheet(f, SheetSquads, rows, bold); err != nil {
		return nil, "", err
	}

	rows = [][]any{{"Attendance ID", "Candidate Name", "Email", "Check In Time", "Check Out Time", "Status"}}
	for _, a := range attendance {
		in := a.CheckIn
		rows = append(rows, []any{a.ID, a.CandidateName, a.Email, s.stamp(&in), s.stamp(a.CheckOut), a.Status})
	}
	if err := writeSheet(f, SheetAttendance, rows, bold); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}
	name := fmt.Sprintf("hackathon_report_%s.xlsx", s.now().In(s.loc).Format("2006-01-02"))
	return buf.Bytes(), name, nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	last, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 20)
}
