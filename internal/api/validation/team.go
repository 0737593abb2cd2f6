package validation

// TeamRequest mirrors the fields of a create or rename team request.
type TeamRequest struct {
	Name string
}

// ValidateTeamRequest validates the fields of a team request.
func ValidateTeamRequest(req TeamRequest) []FieldError {
	return requiredText(nil, "name", req.Name, 100)
}
