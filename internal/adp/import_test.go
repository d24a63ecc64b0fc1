package adp

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"m365audit/internal/store"
)

func writeTestExport(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name failed: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "adp_export.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	return path
}

func exportHeader() []interface{} {
	return []interface{}{
		"Legal Name", "Preferred or Chosen First Name", "Preferred or Chosen Last Name",
		"Position ID", "Hire Date", "Job Title Description", "Position Start Date",
		"Position Status", "Location Description", "Work Contact: Work Email",
	}
}

func TestParseExport(t *testing.T) {
	path := writeTestExport(t, [][]interface{}{
		exportHeader(),
		{"Anderson, Alice", "Alice", "Anderson", "P-100", "2020-03-15", "Engineer", "2020-03-15", "Active", "HQ", "alice@contoso.com"},
		{"NoEmail, Nobody", "Nobody", "NoEmail", "P-101", "2021-01-01", "Contractor", "2021-01-01", "Active", "HQ", ""},
		{"Brown, Bob", "Bob", "Brown", "P-102", "2019-06-01", "Analyst", "2019-06-01", "Terminated", "Remote", "bob@contoso.com"},
	})

	employees, result, err := ParseExport(path)
	if err != nil {
		t.Fatalf("ParseExport failed: %v", err)
	}
	if len(employees) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(employees))
	}
	if result.SkippedNoEmail != 1 {
		t.Errorf("expected 1 skipped row, got %d", result.SkippedNoEmail)
	}
	if len(result.MissingColumns) != 0 {
		t.Errorf("expected no missing columns, got %v", result.MissingColumns)
	}

	if employees[0].WorkEmail != "alice@contoso.com" || employees[0].PositionStatus != "Active" {
		t.Errorf("unexpected first employee: %+v", employees[0])
	}
	if employees[0].HireDate != "2020-03-15" {
		t.Errorf("expected ISO hire date, got %q", employees[0].HireDate)
	}
	if employees[1].LegalName != "Brown, Bob" || employees[1].PositionStatus != "Terminated" {
		t.Errorf("unexpected second employee: %+v", employees[1])
	}
}

func TestParseExportNormalizesDates(t *testing.T) {
	path := writeTestExport(t, [][]interface{}{
		exportHeader(),
		{"Chen, Carol", "Carol", "Chen", "P-103", "3/15/2020", "Designer", "3/15/2020", "Active", "HQ", "carol@contoso.com"},
	})

	employees, _, err := ParseExport(path)
	if err != nil {
		t.Fatalf("ParseExport failed: %v", err)
	}
	if len(employees) != 1 {
		t.Fatalf("expected 1 employee, got %d", len(employees))
	}
	if employees[0].HireDate != "2020-03-15" {
		t.Errorf("expected normalized hire date 2020-03-15, got %q", employees[0].HireDate)
	}
}

func TestParseExportMissingEmailColumn(t *testing.T) {
	path := writeTestExport(t, [][]interface{}{
		{"Legal Name", "Position Status"},
		{"Anderson, Alice", "Active"},
	})

	if _, _, err := ParseExport(path); err == nil {
		t.Fatal("expected error for missing email column")
	}
}

func TestParseExportTolerantOfOptionalColumns(t *testing.T) {
	path := writeTestExport(t, [][]interface{}{
		{"Legal Name", "Position Status", "Work Contact: Work Email"},
		{"Anderson, Alice", "Active", "alice@contoso.com"},
	})

	employees, result, err := ParseExport(path)
	if err != nil {
		t.Fatalf("ParseExport failed: %v", err)
	}
	if len(employees) != 1 {
		t.Fatalf("expected 1 employee, got %d", len(employees))
	}
	if len(result.MissingColumns) == 0 {
		t.Error("expected missing columns reported")
	}
	if employees[0].JobTitle != "" {
		t.Errorf("expected empty job title, got %q", employees[0].JobTitle)
	}
}

func TestImportReplacesRoster(t *testing.T) {
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	path := writeTestExport(t, [][]interface{}{
		exportHeader(),
		{"Anderson, Alice", "Alice", "Anderson", "P-100", "2020-03-15", "Engineer", "2020-03-15", "Active", "HQ", "alice@contoso.com"},
	})

	result, err := Import(path, s)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("expected 1 imported, got %d", result.Imported)
	}

	n, err := s.EmployeeCount()
	if err != nil {
		t.Fatalf("EmployeeCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 stored employee, got %d", n)
	}
}
