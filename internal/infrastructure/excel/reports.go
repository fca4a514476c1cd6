// Package excel renders report listings as XLSX workbooks.
package excel

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/taskpulse-api/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Reports"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var header = []interface{}{
	"Report Number", "Date", "Employee", "Email", "Status", "Hours Worked",
	"Tasks", "Work Summary", "Blockers", "Planned Tomorrow", "Reviewed By", "Reviewed At", "Manager Notes",
}

// BuildReportWorkbook writes one row per report under a bold header row.
func BuildReportWorkbook(reports []domain.Report) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, r := range reports {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			r.ReportNumber, r.ReportDate, r.EmployeeName, r.EmployeeEmail, string(r.Status), r.HoursWorked,
			taskTitles(r.Tasks), r.WorkSummary, r.Blockers, r.PlannedTomorrow, deref(r.ReviewerID), reviewedAt(r), r.ManagerNotes,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(SheetName, "A", "A", 22)
	_ = f.SetColWidth(SheetName, "G", "H", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func taskTitles(tasks []domain.Task) string {
	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t.Category != "" {
			titles = append(titles, fmt.Sprintf("%s (%s)", t.Title, t.Category))
			continue
		}
		titles = append(titles, t.Title)
	}
	return strings.Join(titles, "; ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func reviewedAt(r domain.Report) string {
	if r.ReviewedAt == nil {
		return ""
	}
	return r.ReviewedAt.UTC().Format("2006-01-02 15:04:05")
}
