package domain

import "fmt"

// Action names a capability checked by Authorize.
type Action string

const (
	ActionReadReport     Action = "report:read"
	ActionEditContent    Action = "report:edit_content"
	ActionReviewReport   Action = "report:review"
	ActionDeleteReport   Action = "report:delete"
	ActionForceDelete    Action = "report:force_delete"
	ActionListAllReports Action = "report:list_all"
	ActionViewStats      Action = "report:stats"
	ActionExportReports  Action = "report:export"
	ActionListUsers      Action = "user:list"
	ActionManageUsers    Action = "user:manage"
)

// Authorize is the single place role and ownership rules are decided.
// report may be nil for actions that do not target a specific report.
// today is the current calendar day in DateLayout; it only matters for content edits.
// A nil error means allow; denials wrap ErrForbidden, a missing caller wraps ErrUnauthorized.
func Authorize(caller *User, action Action, report *Report, today string) error {
	if caller == nil {
		return fmt.Errorf("no authenticated caller: %w", ErrUnauthorized)
	}
	switch action {
	case ActionReadReport:
		if report == nil {
			return deny("report required")
		}
		if report.IsOwnedBy(caller.UserID) || caller.IsReviewer() {
			return nil
		}
		return deny("not authorized to view this report")

	case ActionEditContent:
		if report == nil {
			return deny("report required")
		}
		if !report.IsOwnedBy(caller.UserID) {
			return deny("only the report owner can edit its content")
		}
		if report.ReportDate != today {
			return deny("you can only edit reports submitted today")
		}
		return nil

	case ActionDeleteReport:
		if report == nil {
			return deny("report required")
		}
		if report.IsOwnedBy(caller.UserID) || caller.Role == RoleAdmin {
			return nil
		}
		return deny("not authorized to delete this report")

	case ActionReviewReport, ActionListAllReports, ActionViewStats, ActionExportReports:
		if caller.IsReviewer() {
			return nil
		}
		return deny("only managers and admins can perform this action")

	case ActionForceDelete, ActionListUsers, ActionManageUsers:
		if caller.Role == RoleAdmin {
			return nil
		}
		return deny("only admins can perform this action")
	}
	return deny("unknown action " + string(action))
}

func deny(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrForbidden)
}
