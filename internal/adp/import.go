// Package adp imports ADP HR roster exports (xlsx) into the store so
// licensed M365 accounts can be cross-referenced against employment status.
package adp

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"m365audit/internal/logging"
	"m365audit/internal/store"
)

// columnMap maps store fields to the header names ADP uses in its exports.
var columnMap = map[string]string{
	"legal_name":           "Legal Name",
	"preferred_first_name": "Preferred or Chosen First Name",
	"preferred_last_name":  "Preferred or Chosen Last Name",
	"position_id":          "Position ID",
	"hire_date":            "Hire Date",
	"job_title":            "Job Title Description",
	"position_start_date":  "Position Start Date",
	"position_status":      "Position Status",
	"location":             "Location Description",
	"work_email":           "Work Contact: Work Email",
}

// ImportResult reports what an import did.
type ImportResult struct {
	Imported       int
	SkippedNoEmail int
	MissingColumns []string
}

// ParseExport reads an ADP xlsx export into employee records. Rows without
// a work email are skipped; missing columns are reported, not fatal.
func ParseExport(path string) ([]store.Employee, *ImportResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ADP export: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("ADP export has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 1 {
		return nil, nil, fmt.Errorf("ADP export is empty")
	}

	headers := rows[0]
	indices := make(map[string]int)
	result := &ImportResult{}
	for field, header := range columnMap {
		idx := -1
		for i, h := range headers {
			if strings.TrimSpace(h) == header {
				idx = i
				break
			}
		}
		if idx < 0 {
			result.MissingColumns = append(result.MissingColumns, header)
			logging.ADP("Column %q not found in ADP export", header)
		}
		indices[field] = idx
	}
	if indices["work_email"] < 0 {
		return nil, nil, fmt.Errorf("ADP export is missing the %q column", columnMap["work_email"])
	}

	cell := func(row []string, field string) string {
		idx := indices[field]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	dateCell := func(row []string, field string) string {
		return normalizeDate(cell(row, field))
	}

	var employees []store.Employee
	for _, row := range rows[1:] {
		email := cell(row, "work_email")
		if email == "" {
			result.SkippedNoEmail++
			continue
		}
		employees = append(employees, store.Employee{
			LegalName:          cell(row, "legal_name"),
			PreferredFirstName: cell(row, "preferred_first_name"),
			PreferredLastName:  cell(row, "preferred_last_name"),
			PositionID:         cell(row, "position_id"),
			HireDate:           dateCell(row, "hire_date"),
			JobTitle:           cell(row, "job_title"),
			PositionStartDate:  dateCell(row, "position_start_date"),
			PositionStatus:     cell(row, "position_status"),
			Location:           cell(row, "location"),
			WorkEmail:          email,
		})
	}

	result.Imported = len(employees)
	return employees, result, nil
}

// normalizeDate converts the date formats ADP exports use into ISO dates.
// Non-date values pass through unchanged.
func normalizeDate(v string) string {
	for _, layout := range []string{
		"1/2/06 15:04", "01-02-06", "1/2/2006", "01/02/2006", "2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}

// Import parses the export and replaces the stored roster with it.
func Import(path string, s *store.Store) (*ImportResult, error) {
	timer := logging.StartTimer(logging.CategoryADP, "Import")
	defer timer.Stop()

	employees, result, err := ParseExport(path)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, fmt.Errorf("no importable rows in %s", path)
	}
	if _, err := s.ReplaceEmployees(employees); err != nil {
		return nil, err
	}
	return result, nil
}
