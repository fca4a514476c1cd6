package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taskpulse-api/internal/application/report"
	"github.com/taskpulse-api/internal/domain"
)

// ReportHandler serves the daily report endpoints. Every permission decision
// happens in the report service; handlers only pass the caller through.
type ReportHandler struct {
	svc report.Service
}

func NewReportHandler(svc report.Service) *ReportHandler { return &ReportHandler{svc: svc} }

func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req domain.CreateReportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rep, err := h.svc.Create(r.Context(), caller, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ReportEnvelope{Message: "report submitted", Report: rep})
}

func (h *ReportHandler) Today(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	rep, err := h.svc.Today(r.Context(), caller)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportEnvelope{Report: rep})
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	reports, next, err := h.svc.List(r.Context(), caller, domain.ReportFilter{
		EmployeeID: q.Get("employee_id"),
		From:       q.Get("start_date"),
		To:         q.Get("end_date"),
		Status:     q.Get("status"),
		Limit:      int32(queryLimit(r)),
		Cursor:     q.Get("cursor"),
	})
	if err != nil {
		httpError(w, err)
		return
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	writeJSON(w, http.StatusOK, ReportsPageEnvelope{Data: reports, NextCursor: next})
}

func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	rep, err := h.svc.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportEnvelope{Report: rep})
}

func (h *ReportHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req domain.UpdateReportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rep, err := h.svc.Update(r.Context(), caller, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportEnvelope{Message: "report updated", Report: rep})
}

func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "report deleted"})
}

func (h *ReportHandler) ForceDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.svc.ForceDelete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "report permanently deleted"})
}

func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	st, err := h.svc.Stats(r.Context(), caller, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.svc.Export(r.Context(), caller, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
