package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/syncup/syncup/internal/announcement"
	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
)

type createAnnouncementRequest struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Priority  string  `json:"priority"`
	TeamID    *string `json:"teamId"`
	ExpiresAt *string `json:"expiresAt"`
}

type announcementResponse struct {
	ID         string  `json:"id"`
	TeamID     *string `json:"teamId"`
	AuthorID   string  `json:"authorId"`
	AuthorName string  `json:"authorName"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Priority   string  `json:"priority"`
	ExpiresAt  *string `json:"expiresAt"`
	Read       bool    `json:"read"`
	CreatedAt  string  `json:"createdAt"`
}

type countResponse struct {
	Count int `json:"count"`
}

func toAnnouncementResponse(a *announcement.Announcement) announcementResponse {
	return announcementResponse{
		ID:         a.ID.String(),
		TeamID:     uuidString(a.TeamID),
		AuthorID:   a.AuthorID.String(),
		AuthorName: a.AuthorName,
		Title:      a.Title,
		Content:    a.Content,
		Priority:   a.Priority,
		ExpiresAt:  formatTimePtr(a.ExpiresAt),
		Read:       a.Read,
		CreatedAt:  formatTime(a.CreatedAt),
	}
}

// AnnouncementHandler handles company and team announcements.
type AnnouncementHandler struct {
	announcements *announcement.Service
}

// NewAnnouncementHandler creates a new AnnouncementHandler.
func NewAnnouncementHandler(announcements *announcement.Service) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements}
}

// Create handles POST /announcements.
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req createAnnouncementRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateAnnouncementRequest(validation.AnnouncementRequest(req)), requestID) {
		return
	}

	d := announcement.Draft{
		TeamID:   parseOptionalUUID(req.TeamID),
		Title:    req.Title,
		Content:  req.Content,
		Priority: req.Priority,
	}
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		expires, _ := time.Parse(time.RFC3339, *req.ExpiresAt)
		d.ExpiresAt = &expires
	}

	a, err := h.announcements.Create(r.Context(), identity, d)
	if err != nil {
		writeAnnouncementError(w, err, "create announcement", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toAnnouncementResponse(a), requestID)
}

// List handles GET /announcements: active announcements addressed to the
// company or the caller's team.
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	list, err := h.announcements.List(r.Context(), identity)
	if err != nil {
		internalError(w, "list announcements", err, requestID)
		return
	}

	items := make([]announcementResponse, 0, len(list))
	for i := range list {
		items = append(items, toAnnouncementResponse(&list[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// UnreadCount handles GET /announcements/unread-count.
func (h *AnnouncementHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	n, err := h.announcements.UnreadCount(r.Context(), identity)
	if err != nil {
		internalError(w, "count announcements", err, requestID)
		return
	}

	response.Success(w, http.StatusOK, countResponse{Count: n}, requestID)
}

// MarkRead handles POST /announcements/{id}/read.
func (h *AnnouncementHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	if err := h.announcements.MarkRead(r.Context(), identity, id); err != nil {
		writeAnnouncementError(w, err, "mark announcement read", requestID)
		return
	}

	response.NoContent(w)
}

// Delete handles DELETE /announcements/{id}.
func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id", requestID)
	if !ok {
		return
	}

	if err := h.announcements.Delete(r.Context(), identity, id); err != nil {
		writeAnnouncementError(w, err, "delete announcement", requestID)
		return
	}

	response.NoContent(w)
}

func writeAnnouncementError(w http.ResponseWriter, err error, action, requestID string) {
	switch {
	case errors.Is(err, announcement.ErrAnnouncementNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Announcement not found", requestID)
	case errors.Is(err, announcement.ErrNotAuthor):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Only the author or an admin can delete an announcement", requestID)
	case errors.Is(err, announcement.ErrAlreadyExpired):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "expiresAt", Message: "expiresAt must be in the future"}}, requestID)
	case errors.Is(err, announcement.ErrUnknownTeam):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "teamId", Message: "teamId does not reference a team of your company"}}, requestID)
	case errors.Is(err, announcement.ErrInvalidPriority):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "priority", Message: "priority is not a known priority"}}, requestID)
	default:
		internalError(w, action, err, requestID)
	}
}
