package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
)

const (
	maxBodyBytes = 1 << 20
	timeLayout   = "2006-01-02T15:04:05Z"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func formatDate(t time.Time) string {
	return t.UTC().Format(validation.DateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// decodeJSON reads a size-limited JSON body into dst and writes INVALID_JSON
// when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return false
	}
	return true
}

func validationFailed(w http.ResponseWriter, fieldErrors []validation.FieldError, requestID string) bool {
	if len(fieldErrors) == 0 {
		return false
	}
	response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
	return true
}

// urlID parses the named URL parameter as a UUID and writes INVALID_ID when it is not one.
func urlID(w http.ResponseWriter, r *http.Request, name, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", name+" must be a valid UUID", requestID)
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(r *http.Request, name string) (*uuid.UUID, []validation.FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, []validation.FieldError{{Field: name, Message: name + " must be a valid UUID"}}
	}
	return &id, nil
}

// queryDate parses an optional date query parameter, returning def when absent.
func queryDate(r *http.Request, name string, def time.Time) (time.Time, []validation.FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.Parse(validation.DateLayout, raw)
	if err != nil {
		return time.Time{}, []validation.FieldError{{Field: name, Message: name + " must be a date (YYYY-MM-DD)"}}
	}
	return d, nil
}

// queryInt parses an optional positive integer query parameter capped at max.
func queryInt(r *http.Request, name string, def, max int) (int, []validation.FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > max {
		return 0, []validation.FieldError{{Field: name, Message: name + " must be between 1 and " + strconv.Itoa(max)}}
	}
	return n, nil
}

func parseDate(value string) time.Time {
	d, _ := time.Parse(validation.DateLayout, value)
	return d
}

func parseOptionalDate(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	d := parseDate(*value)
	return &d
}

// parseOptionalUUID parses a validated optional id. Empty strings yield nil.
func parseOptionalUUID(value *string) *uuid.UUID {
	if value == nil || *value == "" {
		return nil
	}
	id := uuid.MustParse(*value)
	return &id
}

// internalError logs err and writes a 500 for the failed action, e.g. "list teams".
func internalError(w http.ResponseWriter, action string, err error, requestID string, attrs ...any) {
	slog.Error("failed to "+action, append([]any{"error", err}, attrs...)...)
	response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action, requestID)
}
