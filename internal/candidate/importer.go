package candidate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"hackathon/internal/apperr"
)

// ParseRoster reads candidate rows from a CSV or Excel upload. The first row
// is a header; column names are matched case-insensitively ("Name"/"name").
// Rows without a name or a valid email are skipped.
func ParseRoster(filename string, r io.Reader) ([]Candidate, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(r)
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(r)
	case ".xls":
		return nil, apperr.Invalid("Legacy .xls workbooks are not supported, save the file as .xlsx or .csv")
	default:
		return nil, apperr.Invalid("Unsupported file type %q, upload .csv or .xlsx", filepath.Ext(filename))
	}
	if err != nil {
		return nil, apperr.Invalid("Could not read roster file: %v", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	field := func(rec []string, names ...string) string {
		for _, n := range names {
			if i, ok := header[n]; ok && i < len(rec) {
				if v := strings.TrimSpace(rec[i]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	var out []Candidate
	for _, rec := range records[1:] {
		c := Candidate{
			Name:       field(rec, "name"),
			Email:      strings.ToLower(field(rec, "email")),
			Degree:     field(rec, "degree"),
			University: field(rec, "university"),
			Batch:      field(rec, "batch"),
			Phone:      field(rec, "phone"),
			Skills:     field(rec, "skills"),
			PhotoURL:   field(rec, "photo", "photo_url"),
		}
		if c.Name == "" || c.Email == "" {
			continue
		}
		if _, err := mail.ParseAddress(c.Email); err != nil {
			continue
		}
		if age, err := strconv.Atoi(field(rec, "age")); err == nil && age > 0 {
			c.Age = &age
		}
		out = append(out, c)
	}
	return out, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}
