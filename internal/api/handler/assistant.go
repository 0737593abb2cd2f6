package handler

import (
	"errors"
	"net/http"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
	"github.com/syncup/syncup/internal/api/validation"
	"github.com/syncup/syncup/internal/assistant"
	"github.com/syncup/syncup/internal/auth"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type askRequest struct {
	Question string `json:"question"`
}

type clearHistoryResponse struct {
	Deleted int64 `json:"deleted"`
}

func scopeOf(id *auth.Identity) assistant.Scope {
	return assistant.Scope{CompanyID: id.CompanyID, UserID: id.UserID, Role: id.Role}
}

// AssistantHandler handles questions to the data assistant and the caller's chat history.
type AssistantHandler struct {
	assistant *assistant.Service
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(svc *assistant.Service) *AssistantHandler {
	return &AssistantHandler{assistant: svc}
}

// Ask handles POST /assistant/ask.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	if !h.assistant.Available() {
		response.Err(w, http.StatusServiceUnavailable, "ASSISTANT_UNAVAILABLE", "The assistant is not configured", requestID)
		return
	}

	var req askRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateAskRequest(validation.AskRequest(req)), requestID) {
		return
	}

	answer, err := h.assistant.Ask(r.Context(), scopeOf(identity), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrUnavailable):
			response.Err(w, http.StatusServiceUnavailable, "ASSISTANT_UNAVAILABLE", "The assistant is not configured", requestID)
		case errors.Is(err, assistant.ErrEmptyQuestion):
			response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
				[]validation.FieldError{{Field: "question", Message: "question is required"}}, requestID)
		default:
			internalError(w, "answer question", err, requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, answer, requestID)
}

// History handles GET /assistant/history, oldest message first.
func (h *AssistantHandler) History(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	limit, fieldErrors := queryInt(r, "limit", defaultHistoryLimit, maxHistoryLimit)
	if validationFailed(w, fieldErrors, requestID) {
		return
	}

	messages, err := h.assistant.History(r.Context(), scopeOf(identity), limit)
	if err != nil {
		internalError(w, "load chat history", err, requestID)
		return
	}

	response.SuccessList(w, http.StatusOK, messages, len(messages), requestID)
}

// ClearHistory handles DELETE /assistant/history.
func (h *AssistantHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	n, err := h.assistant.ClearHistory(r.Context(), scopeOf(identity))
	if err != nil {
		internalError(w, "clear chat history", err, requestID)
		return
	}

	response.Success(w, http.StatusOK, clearHistoryResponse{Deleted: n}, requestID)
}
