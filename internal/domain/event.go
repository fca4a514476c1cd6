package domain

import "time"

const (
	EventReportSubmitted = "report.submitted"
	EventReportReviewed  = "report.reviewed"
	EventReportDeleted   = "report.deleted"
)

// ReportEvent is published after a report changes state.
type ReportEvent struct {
	Type         string    `json:"type"`
	ReportID     string    `json:"report_id"`
	ReportNumber string    `json:"report_number"`
	EmployeeID   string    `json:"employee_id"`
	ReportDate   string    `json:"date"`
	ActorID      string    `json:"actor_id"`
	Status       string    `json:"status,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
