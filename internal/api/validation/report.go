package validation

import "strings"

// ReportRequest mirrors the fields of a standup report submission.
type ReportRequest struct {
	Yesterday string
	Today     string
	Blockers  string
}

// ValidateReportRequest validates a standup report. Today's plan is required.
func ValidateReportRequest(req ReportRequest) []FieldError {
	var errs []FieldError
	errs = maxText(errs, "yesterday", req.Yesterday, 5000)
	if strings.TrimSpace(req.Today) == "" {
		errs = append(errs, FieldError{Field: "today", Message: "today is required"})
	} else {
		errs = maxText(errs, "today", req.Today, 5000)
	}
	errs = maxText(errs, "blockers", req.Blockers, 5000)
	return errs
}
