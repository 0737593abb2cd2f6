package validation

// AskRequest mirrors the fields of an assistant question.
type AskRequest struct {
	Question string
}

// ValidateAskRequest validates an assistant question.
func ValidateAskRequest(req AskRequest) []FieldError {
	return requiredText(nil, "question", req.Question, 2000)
}
