package handler

import (
	"net/http"

	"fieldsurvey/internal/service"
)

// ReportHandler serves the read-only reports
type ReportHandler struct {
	reportSvc *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

func reportQuery(r *http.Request) service.ReportQuery {
	q := r.URL.Query()
	return service.ReportQuery{
		SurveyID:   q.Get("surveyId"),
		QuestionID: q.Get("questionId"),
		GroupBy:    q.Get("groupBy"),
		StartDate:  q.Get("startDate"),
		EndDate:    q.Get("endDate"),
	}
}

// Crosstab handles GET /responses/crosstab
func (h *ReportHandler) Crosstab(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportSvc.Crosstab(r.Context(), reportQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

// Analytics handles GET /responses/analytics
func (h *ReportHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportSvc.Analytics(r.Context(), reportQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

// Daily handles GET /responses/daily-report
func (h *ReportHandler) Daily(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportSvc.Daily(r.Context(), reportQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

// Summary handles GET /responses/summary-report
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportSvc.Summary(r.Context(), reportQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

// Spatial handles GET /responses/spatial-report
func (h *ReportHandler) Spatial(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportSvc.Spatial(r.Context(), reportQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}
