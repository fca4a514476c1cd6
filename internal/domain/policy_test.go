package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	today     = "2026-03-10"
	yesterday = "2026-03-09"
)

func TestAuthorize(t *testing.T) {
	employee := &User{UserID: "e1", Role: RoleEmployee}
	other := &User{UserID: "e2", Role: RoleEmployee}
	manager := &User{UserID: "m1", Role: RoleManager}
	admin := &User{UserID: "a1", Role: RoleAdmin}

	todays := &Report{ReportID: "r1", EmployeeID: "e1", ReportDate: today}
	old := &Report{ReportID: "r2", EmployeeID: "e1", ReportDate: yesterday}

	cases := []struct {
		name    string
		caller  *User
		action  Action
		report  *Report
		allowed bool
	}{
		{"owner reads own", employee, ActionReadReport, todays, true},
		{"other employee cannot read", other, ActionReadReport, todays, false},
		{"manager reads any", manager, ActionReadReport, todays, true},
		{"owner edits same day", employee, ActionEditContent, todays, true},
		{"owner cannot edit old report", employee, ActionEditContent, old, false},
		{"manager cannot edit content", manager, ActionEditContent, todays, false},
		{"admin cannot edit content", admin, ActionEditContent, todays, false},
		{"owner deletes old report", employee, ActionDeleteReport, old, true},
		{"other employee cannot delete", other, ActionDeleteReport, old, false},
		{"manager cannot delete others", manager, ActionDeleteReport, old, false},
		{"admin deletes any", admin, ActionDeleteReport, old, true},
		{"employee cannot review", employee, ActionReviewReport, todays, false},
		{"manager reviews", manager, ActionReviewReport, todays, true},
		{"admin reviews", admin, ActionReviewReport, todays, true},
		{"employee cannot force delete own", employee, ActionForceDelete, todays, false},
		{"manager cannot force delete", manager, ActionForceDelete, todays, false},
		{"admin force deletes", admin, ActionForceDelete, todays, true},
		{"manager views stats", manager, ActionViewStats, nil, true},
		{"employee cannot view stats", employee, ActionViewStats, nil, false},
		{"manager exports", manager, ActionExportReports, nil, true},
		{"manager cannot list users", manager, ActionListUsers, nil, false},
		{"admin lists users", admin, ActionListUsers, nil, true},
		{"read without report denied", manager, ActionReadReport, nil, false},
		{"unknown action denied", admin, Action("report:teleport"), todays, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.caller, tc.action, tc.report, today)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrForbidden), "expected ErrForbidden, got %v", err)
		})
	}
}

func TestAuthorize_NoCaller_IsAuthenticationFailure(t *testing.T) {
	err := Authorize(nil, ActionReadReport, &Report{}, today)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestAuthorize_EditWindowIgnoresStatus(t *testing.T) {
	employee := &User{UserID: "e1", Role: RoleEmployee}
	reviewer := "m1"
	reviewed := &Report{EmployeeID: "e1", ReportDate: today, Status: StatusReviewed, ReviewerID: &reviewer}
	assert.NoError(t, Authorize(employee, ActionEditContent, reviewed, today))

	pending := &Report{EmployeeID: "e1", ReportDate: yesterday, Status: StatusPending}
	assert.True(t, errors.Is(Authorize(employee, ActionEditContent, pending, today), ErrForbidden))
}
