package validation

import (
	"time"

	"github.com/syncup/syncup/internal/announcement"
)

// AnnouncementRequest mirrors the fields of a new announcement.
type AnnouncementRequest struct {
	Title     string
	Content   string
	Priority  string
	TeamID    *string
	ExpiresAt *string
}

// ValidateAnnouncementRequest validates the fields of a new announcement.
func ValidateAnnouncementRequest(req AnnouncementRequest) []FieldError {
	errs := requiredText(nil, "title", req.Title, 255)
	errs = requiredText(errs, "content", req.Content, 10000)
	if req.Priority != "" {
		errs = oneOf(errs, "priority", req.Priority, announcement.Priorities)
	}
	errs = optionalUUID(errs, "teamId", req.TeamID)
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		if _, err := time.Parse(time.RFC3339, *req.ExpiresAt); err != nil {
			errs = append(errs, FieldError{Field: "expiresAt", Message: "expiresAt must be an RFC 3339 timestamp"})
		}
	}
	return errs
}
