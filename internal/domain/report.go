package domain

import "time"

// DateLayout is the calendar-day format used for report dates.
const DateLayout = "2006-01-02"

type ReportStatus string

const (
	StatusSubmitted ReportStatus = "Submitted"
	StatusPending   ReportStatus = "Pending"
	StatusReviewed  ReportStatus = "Reviewed"
)

// ValidStatus reports whether s is a known report status.
func ValidStatus(s string) bool {
	switch ReportStatus(s) {
	case StatusSubmitted, StatusPending, StatusReviewed:
		return true
	}
	return false
}

type Task struct {
	Title       string `json:"title" dynamodbav:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty" dynamodbav:"description" validate:"max=1000"`
	Category    string `json:"category" dynamodbav:"category" validate:"omitempty,oneof=development meeting review documentation testing other"`
}

// Report is one employee's daily report. At most one exists per (EmployeeID, ReportDate).
type Report struct {
	ReportID        string       `json:"id" dynamodbav:"report_id"`
	ReportNumber    string       `json:"report_number" dynamodbav:"report_number"`
	EmployeeID      string       `json:"employee_id" dynamodbav:"employee_id"`
	EmployeeName    string       `json:"employee_name" dynamodbav:"employee_name"`
	EmployeeEmail   string       `json:"employee_email" dynamodbav:"employee_email"`
	ReportDate      string       `json:"date" dynamodbav:"report_date"`
	Tasks           []Task       `json:"tasks_completed" dynamodbav:"tasks"`
	WorkSummary     string       `json:"work_summary" dynamodbav:"work_summary"`
	HoursWorked     float64      `json:"hours_worked" dynamodbav:"hours_worked"`
	Blockers        string       `json:"blockers,omitempty" dynamodbav:"blockers"`
	PlannedTomorrow string       `json:"planned_tomorrow,omitempty" dynamodbav:"planned_tomorrow"`
	Status          ReportStatus `json:"status" dynamodbav:"status"`
	ReviewerID      *string      `json:"reviewed_by,omitempty" dynamodbav:"reviewer_id"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty" dynamodbav:"reviewed_at"`
	ManagerNotes    string       `json:"manager_notes,omitempty" dynamodbav:"manager_notes"`
	CreatedAt       time.Time    `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time    `json:"updated" dynamodbav:"updated_at"`
}

func (r *Report) IsOwnedBy(userID string) bool {
	return r.EmployeeID == userID
}

type CreateReportRequest struct {
	Tasks           []Task   `json:"tasks_completed" validate:"dive"`
	WorkSummary     string   `json:"work_summary" validate:"required,min=10,max=2000"`
	HoursWorked     *float64 `json:"hours_worked" validate:"required,gte=0,lte=24"`
	Blockers        string   `json:"blockers" validate:"max=500"`
	PlannedTomorrow string   `json:"planned_tomorrow" validate:"max=1000"`
}

// UpdateReportRequest mixes owner content fields with reviewer fields.
// Nil fields are left untouched; a non-nil Tasks slice replaces the task list.
type UpdateReportRequest struct {
	Tasks           []Task   `json:"tasks_completed" validate:"omitempty,dive"`
	WorkSummary     *string  `json:"work_summary" validate:"omitempty,min=10,max=2000"`
	HoursWorked     *float64 `json:"hours_worked" validate:"omitempty,gte=0,lte=24"`
	Blockers        *string  `json:"blockers" validate:"omitempty,max=500"`
	PlannedTomorrow *string  `json:"planned_tomorrow" validate:"omitempty,max=1000"`

	Status       *string `json:"status" validate:"omitempty,oneof=Submitted Reviewed Pending"`
	ManagerNotes *string `json:"manager_notes" validate:"omitempty,max=500"`
}

func (r UpdateReportRequest) HasContent() bool {
	return r.Tasks != nil || r.WorkSummary != nil || r.HoursWorked != nil || r.Blockers != nil || r.PlannedTomorrow != nil
}

func (r UpdateReportRequest) HasReview() bool {
	return r.Status != nil || r.ManagerNotes != nil
}

// ReportFilter narrows report listings. Dates are inclusive calendar days.
type ReportFilter struct {
	EmployeeID string
	From       string
	To         string
	Status     string
	Limit      int32
	Cursor     string
}

type ReportStats struct {
	TotalReports       int            `json:"total_reports"`
	TodaySubmissions   int            `json:"today_submissions"`
	AverageHoursWorked float64        `json:"average_hours_worked"`
	StatusBreakdown    map[string]int `json:"status_breakdown"`
}
