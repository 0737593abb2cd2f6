package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
	"github.com/syncup/syncup/internal/report"
)

// maxReportRangeDays bounds the date range of a report listing.
const maxReportRangeDays = 92

type reportRequest struct {
	Yesterday string `json:"yesterday"`
	Today     string `json:"today"`
	Blockers  string `json:"blockers"`
}

type reportResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Date      string `json:"date"`
	Yesterday string `json:"yesterday"`
	Today     string `json:"today"`
	Blockers  string `json:"blockers"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type missingResponse struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	TeamID *string `json:"teamId"`
}

func toReportResponse(rep *report.Report) reportResponse {
	return reportResponse{
		ID:        rep.ID.String(),
		UserID:    rep.UserID.String(),
		UserName:  rep.UserName,
		Date:      formatDate(rep.ReportDate),
		Yesterday: rep.Yesterday,
		Today:     rep.Today,
		Blockers:  rep.Blockers,
		CreatedAt: formatTime(rep.CreatedAt),
		UpdatedAt: formatTime(rep.UpdatedAt),
	}
}

// ReportHandler handles daily standup reports.
type ReportHandler struct {
	reports *report.Service
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *report.Service) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Submit handles POST /reports. Submitting twice on the same day replaces the
// earlier report.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req reportRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateReportRequest(validation.ReportRequest(req)), requestID) {
		return
	}

	rep, err := h.reports.Submit(r.Context(), identity, report.Entry(req))
	if err != nil {
		internalError(w, "submit report", err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toReportResponse(rep), requestID)
}

// Edit handles PUT /reports/{id}.
func (h *ReportHandler) Edit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req reportRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateReportRequest(validation.ReportRequest(req)), requestID) {
		return
	}

	rep, err := h.reports.Edit(r.Context(), identity, id, report.Entry(req))
	if err != nil {
		switch {
		case errors.Is(err, report.ErrReportNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Report not found", requestID)
		case errors.Is(err, report.ErrReportLocked):
			response.Err(w, http.StatusForbidden, "REPORT_LOCKED", "Reports can only be edited by their author on the same day", requestID)
		default:
			internalError(w, "edit report", err, requestID, "id", id)
		}
		return
	}

	response.Success(w, http.StatusOK, toReportResponse(rep), requestID)
}

// List handles GET /reports. Either date or a from/to range selects the days;
// without both, today's reports are listed.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	filter, ok := h.parseFilter(w, r, requestID)
	if !ok {
		return
	}
	h.list(w, r, identity.CompanyID, filter, requestID)
}

// Blockers handles GET /reports/blockers, the team lead view of reports that
// list a blocker.
func (h *ReportHandler) Blockers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	filter, ok := h.parseFilter(w, r, requestID)
	if !ok {
		return
	}
	filter.BlockersOnly = true
	h.list(w, r, identity.CompanyID, filter, requestID)
}

// Missing handles GET /reports/missing: active users without a report for the day.
func (h *ReportHandler) Missing(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	day, fieldErrors := queryDate(r, "date", h.reports.Today())
	teamID, errs := queryUUID(r, "teamId")
	fieldErrors = append(fieldErrors, errs...)
	if validationFailed(w, fieldErrors, requestID) {
		return
	}

	missing, err := h.reports.Repo().Missing(r.Context(), identity.CompanyID, day, teamID)
	if err != nil {
		internalError(w, "list missing reports", err, requestID)
		return
	}

	items := make([]missingResponse, 0, len(missing))
	for _, m := range missing {
		items = append(items, missingResponse{
			UserID: m.UserID.String(),
			Name:   m.Name,
			Email:  m.Email,
			TeamID: uuidString(m.TeamID),
		})
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

func (h *ReportHandler) parseFilter(w http.ResponseWriter, r *http.Request, requestID string) (report.Filter, bool) {
	var fieldErrors []validation.FieldError
	var filter report.Filter

	today := h.reports.Today()
	if r.URL.Query().Has("date") {
		day, errs := queryDate(r, "date", today)
		fieldErrors = append(fieldErrors, errs...)
		filter.From, filter.To = day, day
	} else {
		from, errs := queryDate(r, "from", today)
		fieldErrors = append(fieldErrors, errs...)
		to, errs := queryDate(r, "to", from)
		fieldErrors = append(fieldErrors, errs...)
		if len(fieldErrors) == 0 && (from.After(to) || to.Sub(from) > maxReportRangeDays*24*time.Hour) {
			fieldErrors = append(fieldErrors, validation.FieldError{Field: "to", Message: "to must be on or after from and at most 92 days later"})
		}
		filter.From, filter.To = from, to
	}

	userID, errs := queryUUID(r, "userId")
	fieldErrors = append(fieldErrors, errs...)
	teamID, errs := queryUUID(r, "teamId")
	fieldErrors = append(fieldErrors, errs...)
	filter.UserID, filter.TeamID = userID, teamID

	if validationFailed(w, fieldErrors, requestID) {
		return report.Filter{}, false
	}
	return filter, true
}

func (h *ReportHandler) list(w http.ResponseWriter, r *http.Request, companyID uuid.UUID, filter report.Filter, requestID string) {
	reports, err := h.reports.Repo().List(r.Context(), companyID, filter)
	if err != nil {
		internalError(w, "list reports", err, requestID, "companyId", companyID)
		return
	}

	items := make([]reportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, toReportResponse(&reports[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}
