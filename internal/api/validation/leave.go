package validation

import "github.com/syncup/syncup/internal/leave"

// LeaveRequest mirrors the fields of a leave request.
type LeaveRequest struct {
	StartDate string
	EndDate   string
	Type      string
	Reason    string
}

// ValidateLeaveRequest validates the fields of a leave request.
func ValidateLeaveRequest(req LeaveRequest) []FieldError {
	var errs []FieldError
	errs, start, okStart := requiredDate(errs, "startDate", req.StartDate)
	errs, end, okEnd := requiredDate(errs, "endDate", req.EndDate)
	if okStart && okEnd && start.After(end) {
		errs = append(errs, FieldError{Field: "endDate", Message: "endDate must not be before startDate"})
	}
	if req.Type == "" {
		errs = append(errs, FieldError{Field: "type", Message: "type is required"})
	} else {
		errs = oneOf(errs, "type", req.Type, leave.Types)
	}
	errs = maxText(errs, "reason", req.Reason, 1000)
	return errs
}

// ReviewRequest mirrors the fields of a leave review.
type ReviewRequest struct {
	Decision string
}

// ValidateReviewRequest validates a leave review decision.
func ValidateReviewRequest(req ReviewRequest) []FieldError {
	return oneOf(nil, "decision", req.Decision, []string{"approve", "reject"})
}

// ValidateLeaveStatus validates a leave status filter.
func ValidateLeaveStatus(status string) []FieldError {
	return oneOf(nil, "status", status, leave.Statuses)
}
