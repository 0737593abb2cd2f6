package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/api/response"
)

// OpenAPIHandler serves the API document. JSON is converted from the embedded
// YAML once; ?format=yaml returns the source as is.
type OpenAPIHandler struct {
	source []byte

	once    sync.Once
	json    []byte
	jsonErr error
}

// NewOpenAPIHandler creates a new OpenAPIHandler over a YAML document.
func NewOpenAPIHandler(yamlDoc []byte) *OpenAPIHandler {
	return &OpenAPIHandler{source: yamlDoc}
}

// ServeHTTP handles GET /openapi.json.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "yaml" {
		h.write(w, "application/yaml", h.source)
		return
	}

	h.once.Do(func() {
		h.json, h.jsonErr = yaml.YAMLToJSON(h.source)
	})
	if h.jsonErr != nil {
		slog.Error("failed to convert OpenAPI document to JSON", "error", h.jsonErr)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to convert OpenAPI document",
			middleware.GetRequestID(r.Context()))
		return
	}
	h.write(w, "application/json", h.json)
}

func (h *OpenAPIHandler) write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write OpenAPI document", "error", err)
	}
}
