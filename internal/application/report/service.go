package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/taskpulse-api/internal/domain"
	"github.com/taskpulse-api/internal/infrastructure/excel"
	"github.com/taskpulse-api/internal/pkg/id"
	"github.com/taskpulse-api/internal/pkg/metrics"
	"github.com/taskpulse-api/internal/pkg/validate"
	"go.uber.org/zap"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldTasks           = "tasks"
	fieldWorkSummary     = "work_summary"
	fieldHoursWorked     = "hours_worked"
	fieldBlockers        = "blockers"
	fieldPlannedTomorrow = "planned_tomorrow"
	fieldStatus          = "status"
	fieldManagerNotes    = "manager_notes"
	fieldReviewerID      = "reviewer_id"
	fieldReviewedAt      = "reviewed_at"
	fieldUpdatedAt       = "updated_at"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 100
	exportURLTTL     = 15 * time.Minute
	defaultExportWin = 30 // days
)

// ExportResult points at a generated workbook.
type ExportResult struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service interface {
	Create(ctx context.Context, caller *domain.User, req domain.CreateReportRequest) (*domain.Report, error)
	Get(ctx context.Context, caller *domain.User, reportID string) (*domain.Report, error)
	// Today returns the caller's report for the current day, or nil when none exists.
	Today(ctx context.Context, caller *domain.User) (*domain.Report, error)
	List(ctx context.Context, caller *domain.User, f domain.ReportFilter) ([]domain.Report, string, error)
	Update(ctx context.Context, caller *domain.User, reportID string, req domain.UpdateReportRequest) (*domain.Report, error)
	Delete(ctx context.Context, caller *domain.User, reportID string) error
	ForceDelete(ctx context.Context, caller *domain.User, reportID string) error
	Stats(ctx context.Context, caller *domain.User, from, to string) (*domain.ReportStats, error)
	Export(ctx context.Context, caller *domain.User, from, to string) (*ExportResult, error)
}

type reportStore interface {
	Create(ctx context.Context, r *domain.Report) error
	Get(ctx context.Context, reportID string) (*domain.Report, error)
	GetByEmployeeDay(ctx context.Context, employeeID, day string) (*domain.Report, error)
	Update(ctx context.Context, reportID string, updates map[string]interface{}) (*domain.Report, error)
	Delete(ctx context.Context, r *domain.Report) error
	List(ctx context.Context, f domain.ReportFilter) ([]domain.Report, string, error)
	ListRange(ctx context.Context, from, to string) ([]domain.Report, error)
}

type exportStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type eventPublisher interface {
	PublishReportEvent(ctx context.Context, e domain.ReportEvent) error
}

type service struct {
	reports reportStore
	exports exportStore
	events  eventPublisher
	loc     *time.Location
	now     func() time.Time
}

type ServiceDeps struct {
	Reports  reportStore
	Exports  exportStore
	Events   eventPublisher
	Location *time.Location // calendar days are computed here; UTC when nil
	Now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{reports: deps.Reports, exports: deps.Exports, events: deps.Events, loc: loc, now: now}
}

func (s *service) today() string {
	return s.now().In(s.loc).Format(domain.DateLayout)
}

func (s *service) Create(ctx context.Context, caller *domain.User, req domain.CreateReportRequest) (*domain.Report, error) {
	if caller == nil {
		return nil, fmt.Errorf("no authenticated caller: %w", domain.ErrUnauthorized)
	}
	if req.HoursWorked == nil {
		return nil, fmt.Errorf("hours_worked is required: %w", domain.ErrBadRequest)
	}
	now := s.now()
	tasks := req.Tasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	r := &domain.Report{
		ReportID:        id.New(),
		ReportNumber:    id.ReportNumber(now.In(s.loc)),
		EmployeeID:      caller.UserID,
		EmployeeName:    caller.Name,
		EmployeeEmail:   caller.Email,
		ReportDate:      now.In(s.loc).Format(domain.DateLayout),
		Tasks:           tasks,
		WorkSummary:     req.WorkSummary,
		HoursWorked:     *req.HoursWorked,
		Blockers:        req.Blockers,
		PlannedTomorrow: req.PlannedTomorrow,
		Status:          domain.StatusSubmitted,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
	if err := s.reports.Create(ctx, r); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.ReportsCreated.WithLabelValues("conflict").Inc()
			return nil, fmt.Errorf("you have already submitted a report for today, please update it instead: %w", domain.ErrConflict)
		}
		metrics.ReportsCreated.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ReportsCreated.WithLabelValues("created").Inc()
	s.publish(ctx, domain.EventReportSubmitted, r, caller.UserID)
	return r, nil
}

func (s *service) Get(ctx context.Context, caller *domain.User, reportID string) (*domain.Report, error) {
	r, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(caller, domain.ActionReadReport, r, s.today()); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *service) Today(ctx context.Context, caller *domain.User) (*domain.Report, error) {
	if caller == nil {
		return nil, fmt.Errorf("no authenticated caller: %w", domain.ErrUnauthorized)
	}
	r, err := s.reports.GetByEmployeeDay(ctx, caller.UserID, s.today())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return r, err
}

// List pages through reports. Employees only ever see their own; reviewers
// may narrow by employee.
func (s *service) List(ctx context.Context, caller *domain.User, f domain.ReportFilter) ([]domain.Report, string, error) {
	if caller == nil {
		return nil, "", fmt.Errorf("no authenticated caller: %w", domain.ErrUnauthorized)
	}
	if domain.Authorize(caller, domain.ActionListAllReports, nil, "") != nil {
		f.EmployeeID = caller.UserID
	}
	if err := checkRange(f.From, f.To); err != nil {
		return nil, "", err
	}
	if f.Status != "" && !domain.ValidStatus(f.Status) {
		return nil, "", fmt.Errorf("unknown status %q: %w", f.Status, domain.ErrBadRequest)
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return s.reports.List(ctx, f)
}

// Update applies content and review changes. Each part is authorized on its
// own: content needs the owner on the report's own day, review needs a reviewer.
func (s *service) Update(ctx context.Context, caller *domain.User, reportID string, req domain.UpdateReportRequest) (*domain.Report, error) {
	if !req.HasContent() && !req.HasReview() {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}
	r, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	today := s.today()
	if domain.Authorize(caller, domain.ActionReadReport, r, today) != nil {
		return nil, fmt.Errorf("not authorized to update this report: %w", domain.ErrForbidden)
	}

	updates := map[string]interface{}{}
	if req.HasContent() {
		if err := domain.Authorize(caller, domain.ActionEditContent, r, today); err != nil {
			return nil, err
		}
		if req.Tasks != nil {
			updates[fieldTasks] = req.Tasks
		}
		if req.WorkSummary != nil {
			updates[fieldWorkSummary] = *req.WorkSummary
		}
		if req.HoursWorked != nil {
			updates[fieldHoursWorked] = *req.HoursWorked
		}
		if req.Blockers != nil {
			updates[fieldBlockers] = *req.Blockers
		}
		if req.PlannedTomorrow != nil {
			updates[fieldPlannedTomorrow] = *req.PlannedTomorrow
		}
	}

	reviewed := false
	if req.HasReview() {
		if err := domain.Authorize(caller, domain.ActionReviewReport, r, today); err != nil {
			return nil, err
		}
		if req.Status != nil {
			if !domain.ValidStatus(*req.Status) {
				return nil, fmt.Errorf("unknown status %q: %w", *req.Status, domain.ErrBadRequest)
			}
			updates[fieldStatus] = *req.Status
			if domain.ReportStatus(*req.Status) == domain.StatusReviewed {
				reviewed = true
				updates[fieldReviewerID] = caller.UserID
				updates[fieldReviewedAt] = s.now().UTC()
			}
		}
		if req.ManagerNotes != nil {
			updates[fieldManagerNotes] = *req.ManagerNotes
		}
	}

	updates[fieldUpdatedAt] = s.now().UTC()
	updated, err := s.reports.Update(ctx, reportID, updates)
	if err != nil {
		return nil, err
	}
	if reviewed {
		s.publish(ctx, domain.EventReportReviewed, updated, caller.UserID)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, caller *domain.User, reportID string) error {
	r, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return err
	}
	if err := domain.Authorize(caller, domain.ActionDeleteReport, r, s.today()); err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, r); err != nil {
		return err
	}
	s.publish(ctx, domain.EventReportDeleted, r, caller.UserID)
	return nil
}

func (s *service) ForceDelete(ctx context.Context, caller *domain.User, reportID string) error {
	if err := domain.Authorize(caller, domain.ActionForceDelete, nil, ""); err != nil {
		return err
	}
	r, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, r); err != nil {
		return err
	}
	zap.L().Info("report force deleted",
		zap.String("report_id", r.ReportID), zap.String("employee_id", r.EmployeeID), zap.String("admin_id", caller.UserID))
	s.publish(ctx, domain.EventReportDeleted, r, caller.UserID)
	return nil
}

// Stats aggregates reports dated within [from, to]; empty bounds are open.
func (s *service) Stats(ctx context.Context, caller *domain.User, from, to string) (*domain.ReportStats, error) {
	if err := domain.Authorize(caller, domain.ActionViewStats, nil, ""); err != nil {
		return nil, err
	}
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	inRange, err := s.reports.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	today := s.today()
	todays, err := s.reports.ListRange(ctx, today, today)
	if err != nil {
		return nil, err
	}
	return summarize(inRange, len(todays)), nil
}

func summarize(reports []domain.Report, todaySubmissions int) *domain.ReportStats {
	st := &domain.ReportStats{
		TotalReports:     len(reports),
		TodaySubmissions: todaySubmissions,
		StatusBreakdown:  map[string]int{},
	}
	var hours float64
	for _, r := range reports {
		hours += r.HoursWorked
		st.StatusBreakdown[string(r.Status)]++
	}
	if len(reports) > 0 {
		st.AverageHoursWorked = math.Round(hours/float64(len(reports))*10) / 10
	}
	return st
}

// Export renders reports dated within [from, to] to XLSX and returns a
// short-lived download link. Without bounds the last 30 days are exported.
func (s *service) Export(ctx context.Context, caller *domain.User, from, to string) (*ExportResult, error) {
	if err := domain.Authorize(caller, domain.ActionExportReports, nil, ""); err != nil {
		return nil, err
	}
	if to == "" {
		to = s.today()
	}
	if from == "" {
		end, err := time.Parse(domain.DateLayout, to)
		if err != nil {
			return nil, fmt.Errorf("invalid end date: %w", domain.ErrBadRequest)
		}
		from = end.AddDate(0, 0, -defaultExportWin).Format(domain.DateLayout)
	}
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	reports, err := s.reports.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].ReportDate != reports[j].ReportDate {
			return reports[i].ReportDate < reports[j].ReportDate
		}
		return reports[i].EmployeeName < reports[j].EmployeeName
	})
	buf, err := excel.BuildReportWorkbook(reports)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/reports_%s_%s_%s.xlsx", from, to, id.New())
	if _, err := s.exports.Upload(ctx, key, buf, excel.ContentType); err != nil {
		return nil, err
	}
	url, err := s.exports.PresignedURL(ctx, key, exportURLTTL)
	if err != nil {
		return nil, err
	}
	metrics.ReportsExported.Inc()
	return &ExportResult{URL: url, Key: key, Count: len(reports), ExpiresAt: s.now().UTC().Add(exportURLTTL)}, nil
}

func (s *service) publish(ctx context.Context, typ string, r *domain.Report, actorID string) {
	if s.events == nil {
		return
	}
	err := s.events.PublishReportEvent(ctx, domain.ReportEvent{
		Type:         typ,
		ReportID:     r.ReportID,
		ReportNumber: r.ReportNumber,
		EmployeeID:   r.EmployeeID,
		ReportDate:   r.ReportDate,
		ActorID:      actorID,
		Status:       string(r.Status),
		OccurredAt:   s.now().UTC(),
	})
	if err != nil {
		zap.L().Warn("failed to publish report event", zap.String("type", typ), zap.String("report_id", r.ReportID), zap.Error(err))
	}
}

func checkRange(from, to string) error {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if err := validate.Var(d, "calendarday"); err != nil {
			return fmt.Errorf("dates must use YYYY-MM-DD: %w", domain.ErrBadRequest)
		}
	}
	if from != "" && to != "" && from > to {
		return fmt.Errorf("start date is after end date: %w", domain.ErrBadRequest)
	}
	return nil
}
