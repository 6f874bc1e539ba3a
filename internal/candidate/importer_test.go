package candidate

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"hackathon/internal/apperr"
)

func TestParseRosterCSV(t *testing.T) {
	data := "\ufeffName,Email,Age,University,Phone,Photo\n" +
		"Ada Lovelace,ADA@Example.com,28,Cambridge,555-1,http://x/a.jpg\n" +
		",missing@name.com,20,,,\n" +
		"No Email,,20,,,\n" +
		"Bad Email,not-an-address,20,,,\n" +
		"Grace Hopper,grace@example.com,abc,Yale,555-2,\n"

	rows, err := ParseRoster("roster.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseRoster: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	ada := rows[0]
	if ada.Name != "Ada Lovelace" || ada.Email != "ada@example.com" || ada.University != "Cambridge" {
		t.Errorf("unexpected first row %+v", ada)
	}
	if ada.Age == nil || *ada.Age != 28 {
		t.Errorf("age = %v, want 28", ada.Age)
	}
	if ada.PhotoURL != "http://x/a.jpg" {
		t.Errorf("photo = %q", ada.PhotoURL)
	}
	if rows[1].Age != nil {
		t.Errorf("non-numeric age should be dropped, got %v", *rows[1].Age)
	}
}

func TestParseRosterWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]any{"name", "email", "degree", "skills"})
	_ = f.SetSheetRow(sheet, "A2", &[]any{"Linus", "linus@example.com", "BSc", "c,git"})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rows, err := ParseRoster("Roster.XLSX", &buf)
	if err != nil {
		t.Fatalf("ParseRoster: %v", err)
	}
	if len(rows) != 1 || rows[0].Degree != "BSc" || rows[0].Skills != "c,git" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestParseRosterRejectsUnknownExtension(t *testing.T) {
	_, err := ParseRoster("roster.txt", strings.NewReader("x"))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRosterHeaderOnly(t *testing.T) {
	rows, err := ParseRoster("r.csv", strings.NewReader("name,email\n"))
	if err != nil {
		t.Fatalf("ParseRoster: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestParseRosterRejectsLegacyWorkbook(t *testing.T) {
	_, err := ParseRoster("roster.xls", strings.NewReader("\xd0\xcf\x11\xe0"))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := apperr.Message(err); !strings.Contains(msg, ".xls workbooks are not supported") {
		t.Fatalf("message = %q", msg)
	}
}
