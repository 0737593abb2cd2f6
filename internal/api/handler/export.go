package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
	"github.com/syncup/syncup/internal/export"
)

type exportFunc func(ctx context.Context, w io.Writer, companyID uuid.UUID, from, to time.Time) error

// ExportHandler serves CSV downloads. The range defaults to the last 30 days.
type ExportHandler struct {
	exporter *export.Exporter
	now      func() time.Time
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exporter *export.Exporter) *ExportHandler {
	return &ExportHandler{exporter: exporter, now: time.Now}
}

// SetClock overrides the time the default range ends at.
func (h *ExportHandler) SetClock(now func() time.Time) {
	h.now = now
}

// Reports handles GET /export/reports.
func (h *ExportHandler) Reports(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "reports", h.exporter.Reports)
}

// Leave handles GET /export/leave.
func (h *ExportHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "leave", h.exporter.Leave)
}

func (h *ExportHandler) serve(w http.ResponseWriter, r *http.Request, kind string, write exportFunc) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	today := h.now().UTC().Truncate(24 * time.Hour)
	to, fieldErrors := queryDate(r, "to", today)
	from, errs := queryDate(r, "from", to.AddDate(0, 0, -29))
	fieldErrors = append(fieldErrors, errs...)
	if validationFailed(w, fieldErrors, requestID) {
		return
	}

	// Buffer the file so a failing query still yields an error envelope.
	var buf bytes.Buffer
	if err := write(r.Context(), &buf, identity.CompanyID, from, to); err != nil {
		if errors.Is(err, export.ErrInvalidRange) {
			response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
				[]validation.FieldError{{Field: "to", Message: err.Error()}}, requestID)
			return
		}
		internalError(w, "export "+kind, err, requestID)
		return
	}

	response.CSVHeaders(w, export.Filename(kind, from, to))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write export", "kind", kind, "error", err)
	}
}
