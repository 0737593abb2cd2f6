package handler

import (
	"net/http"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/dashboard"
)

type sprintStatusResponse struct {
	sprintResponse
	Summary summaryResponse `json:"summary"`
}

type dashboardResponse struct {
	Date                string                 `json:"date"`
	TodayReport         *reportResponse        `json:"todayReport"`
	UnreadNotifications int                    `json:"unreadNotifications"`
	UnreadAnnouncements int                    `json:"unreadAnnouncements"`
	ActiveSprints       []sprintStatusResponse `json:"activeSprints"`
	OpenTasks           []taskResponse         `json:"openTasks"`
	OutToday            []absenceResponse      `json:"outToday"`
}

// DashboardHandler serves the per-user overview.
type DashboardHandler struct {
	dashboards *dashboard.Service
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboards *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// ServeHTTP handles GET /dashboard.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	d, err := h.dashboards.Build(r.Context(), identity)
	if err != nil {
		internalError(w, "build dashboard", err, requestID)
		return
	}

	resp := dashboardResponse{
		Date:                formatDate(d.Date),
		UnreadNotifications: d.UnreadNotifications,
		UnreadAnnouncements: d.UnreadAnnouncements,
		ActiveSprints:       make([]sprintStatusResponse, 0, len(d.ActiveSprints)),
		OpenTasks:           toTaskResponses(d.OpenTasks),
		OutToday:            toAbsenceResponses(d.OutToday),
	}
	if d.TodayReport != nil {
		rep := toReportResponse(d.TodayReport)
		resp.TodayReport = &rep
	}
	for i := range d.ActiveSprints {
		resp.ActiveSprints = append(resp.ActiveSprints, sprintStatusResponse{
			sprintResponse: toSprintResponse(&d.ActiveSprints[i].Sprint),
			Summary:        toSummaryResponse(d.ActiveSprints[i].Summary),
		})
	}

	response.Success(w, http.StatusOK, resp, requestID)
}
