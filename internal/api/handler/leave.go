package handler

import (
	"errors"
	"net/http"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
	"github.com/syncup/syncup/internal/leave"
)

type leaveRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
}

type leavePlanResponse struct {
	ID         string  `json:"id"`
	UserID     string  `json:"userId"`
	UserName   string  `json:"userName"`
	StartDate  string  `json:"startDate"`
	EndDate    string  `json:"endDate"`
	Days       int     `json:"days"`
	Type       string  `json:"type"`
	Reason     string  `json:"reason"`
	Status     string  `json:"status"`
	ReviewedBy *string `json:"reviewedBy"`
	ReviewedAt *string `json:"reviewedAt"`
	CreatedAt  string  `json:"createdAt"`
}

type absenceResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	PlanID string `json:"planId"`
}

type dayAvailabilityResponse struct {
	Date string            `json:"date"`
	Away []absenceResponse `json:"away"`
}

func toLeavePlanResponse(p *leave.Plan) leavePlanResponse {
	return leavePlanResponse{
		ID:         p.ID.String(),
		UserID:     p.UserID.String(),
		UserName:   p.UserName,
		StartDate:  formatDate(p.StartDate),
		EndDate:    formatDate(p.EndDate),
		Days:       p.Days(),
		Type:       p.Type,
		Reason:     p.Reason,
		Status:     p.Status,
		ReviewedBy: uuidString(p.ReviewedBy),
		ReviewedAt: formatTimePtr(p.ReviewedAt),
		CreatedAt:  formatTime(p.CreatedAt),
	}
}

func toAbsenceResponses(away []leave.Absence) []absenceResponse {
	items := make([]absenceResponse, 0, len(away))
	for _, a := range away {
		items = append(items, absenceResponse{
			UserID: a.UserID.String(),
			Name:   a.Name,
			Type:   a.Type,
			PlanID: a.PlanID.String(),
		})
	}
	return items
}

// LeaveHandler handles leave requests and the availability calendar.
type LeaveHandler struct {
	leave *leave.Service
}

// NewLeaveHandler creates a new LeaveHandler.
func NewLeaveHandler(leaveService *leave.Service) *LeaveHandler {
	return &LeaveHandler{leave: leaveService}
}

// Request handles POST /leave.
func (h *LeaveHandler) Request(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req leaveRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateLeaveRequest(validation.LeaveRequest(req)), requestID) {
		return
	}

	p, err := h.leave.Request(r.Context(), identity, leave.Request{
		StartDate: parseDate(req.StartDate),
		EndDate:   parseDate(req.EndDate),
		Type:      req.Type,
		Reason:    req.Reason,
	})
	if err != nil {
		writeLeaveError(w, err, "request leave", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toLeavePlanResponse(p), requestID)
}

// Mine handles GET /leave/mine.
func (h *LeaveHandler) Mine(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	filter := leave.Filter{UserID: &identity.UserID}
	if !h.parseStatus(w, r, &filter, requestID) {
		return
	}
	h.list(w, r, filter, requestID)
}

// List handles GET /leave. Managers see every plan of the company; members
// see approved plans of others and all of their own.
func (h *LeaveHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var filter leave.Filter
	var fieldErrors []validation.FieldError
	userID, errs := queryUUID(r, "userId")
	fieldErrors = append(fieldErrors, errs...)
	from, errs := queryDate(r, "from", filter.From)
	fieldErrors = append(fieldErrors, errs...)
	to, errs := queryDate(r, "to", filter.To)
	fieldErrors = append(fieldErrors, errs...)
	if validationFailed(w, fieldErrors, requestID) {
		return
	}
	filter.UserID, filter.From, filter.To = userID, from, to

	if !h.parseStatus(w, r, &filter, requestID) {
		return
	}
	if !identity.CanManage() && (filter.UserID == nil || *filter.UserID != identity.UserID) {
		filter.Status = leave.StatusApproved
	}
	h.list(w, r, filter, requestID)
}

// Cancel handles POST /leave/{id}/cancel.
func (h *LeaveHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	p, err := h.leave.Cancel(r.Context(), identity, id)
	if err != nil {
		writeLeaveError(w, err, "cancel leave", requestID)
		return
	}

	response.Success(w, http.StatusOK, toLeavePlanResponse(p), requestID)
}

// Review handles POST /leave/{id}/review.
func (h *LeaveHandler) Review(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req reviewRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateReviewRequest(validation.ReviewRequest(req)), requestID) {
		return
	}

	p, err := h.leave.Review(r.Context(), identity, id, req.Decision == "approve")
	if err != nil {
		writeLeaveError(w, err, "review leave", requestID)
		return
	}

	response.Success(w, http.StatusOK, toLeavePlanResponse(p), requestID)
}

// Availability handles GET /leave/availability. The range defaults to the
// next 14 days.
func (h *LeaveHandler) Availability(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	today := h.leave.Today()
	from, fieldErrors := queryDate(r, "from", today)
	to, errs := queryDate(r, "to", from.AddDate(0, 0, 13))
	fieldErrors = append(fieldErrors, errs...)
	if validationFailed(w, fieldErrors, requestID) {
		return
	}

	days, err := h.leave.Availability(r.Context(), identity.CompanyID, from, to)
	if err != nil {
		writeLeaveError(w, err, "load availability", requestID)
		return
	}

	items := make([]dayAvailabilityResponse, 0, len(days))
	for _, d := range days {
		items = append(items, dayAvailabilityResponse{
			Date: formatDate(d.Date),
			Away: toAbsenceResponses(d.Away),
		})
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// WhoIsOut handles GET /leave/out.
func (h *LeaveHandler) WhoIsOut(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	date, fieldErrors := queryDate(r, "date", h.leave.Today())
	if validationFailed(w, fieldErrors, requestID) {
		return
	}

	away, err := h.leave.WhoIsOut(r.Context(), identity.CompanyID, date)
	if err != nil {
		writeLeaveError(w, err, "list absences", requestID)
		return
	}

	items := toAbsenceResponses(away)
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

func (h *LeaveHandler) parseStatus(w http.ResponseWriter, r *http.Request, filter *leave.Filter, requestID string) bool {
	status := r.URL.Query().Get("status")
	if status == "" {
		return true
	}
	if validationFailed(w, validation.ValidateLeaveStatus(status), requestID) {
		return false
	}
	filter.Status = status
	return true
}

func (h *LeaveHandler) list(w http.ResponseWriter, r *http.Request, filter leave.Filter, requestID string) {
	identity := middleware.GetIdentity(r.Context())

	plans, err := h.leave.Repo().List(r.Context(), identity.CompanyID, filter)
	if err != nil {
		internalError(w, "list leave", err, requestID)
		return
	}

	items := make([]leavePlanResponse, 0, len(plans))
	for i := range plans {
		items = append(items, toLeavePlanResponse(&plans[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

func writeLeaveError(w http.ResponseWriter, err error, action, requestID string) {
	switch {
	case errors.Is(err, leave.ErrPlanNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Leave plan not found", requestID)
	case errors.Is(err, leave.ErrOverlap):
		response.Err(w, http.StatusConflict, "LEAVE_OVERLAP", "The dates overlap another pending or approved leave", requestID)
	case errors.Is(err, leave.ErrNotCancellable):
		response.Err(w, http.StatusConflict, "NOT_CANCELLABLE", "Only pending or approved leave that has not started can be cancelled", requestID)
	case errors.Is(err, leave.ErrAlreadyReviewed):
		response.Err(w, http.StatusConflict, "ALREADY_REVIEWED", "The leave request was already reviewed", requestID)
	case errors.Is(err, leave.ErrOwnRequest):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "You cannot review your own leave request", requestID)
	case errors.Is(err, leave.ErrInvalidRange):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "to", Message: "to must be on or after from and span at most 92 days"}}, requestID)
	case errors.Is(err, leave.ErrInvalidType):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "type", Message: "type is not a known leave type"}}, requestID)
	default:
		internalError(w, action, err, requestID)
	}
}
