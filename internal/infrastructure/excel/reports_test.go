package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskpulse-api/internal/domain"
	"github.com/xuri/excelize/v2"
)

func TestBuildReportWorkbook(t *testing.T) {
	reviewer := "mgr-1"
	at := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)
	reports := []domain.Report{
		{
			ReportNumber: "RPT-20260310-AAAAAA", ReportDate: "2026-03-10",
			EmployeeName: "Alice", EmployeeEmail: "alice@example.com",
			Status: domain.StatusReviewed, HoursWorked: 7.5,
			Tasks: []domain.Task{
				{Title: "Export endpoint", Category: "development"},
				{Title: "Standup"},
			},
			WorkSummary: "Finished the export endpoint",
			ReviewerID:  &reviewer, ReviewedAt: &at,
		},
		{
			ReportNumber: "RPT-20260310-BBBBBB", ReportDate: "2026-03-10",
			EmployeeName: "Bob", Status: domain.StatusSubmitted, HoursWorked: 8,
		},
	}

	buf, err := BuildReportWorkbook(reports)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, SheetName, f.GetSheetName(0))
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Report Number", rows[0][0])
	assert.Equal(t, "RPT-20260310-AAAAAA", rows[1][0])
	assert.Equal(t, "7.5", rows[1][5])
	assert.Equal(t, "Export endpoint (development); Standup", rows[1][6])
	assert.Equal(t, "mgr-1", rows[1][10])
	assert.Equal(t, "2026-03-10 17:30:00", rows[1][11])
	assert.Equal(t, "Bob", rows[2][2])
}

func TestBuildReportWorkbook_Empty(t *testing.T) {
	buf, err := BuildReportWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
