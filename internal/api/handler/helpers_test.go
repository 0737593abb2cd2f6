package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/syncup/syncup/internal/api/middleware"
	"github.com/syncup/syncup/internal/auth"
)

var companyID = uuid.New()

func adminIdentity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New(), CompanyID: companyID, Name: "Ada Admin", Email: "ada@example.com", Role: auth.RoleAdmin}
}

func managerIdentity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New(), CompanyID: companyID, Name: "Max Manager", Email: "max@example.com", Role: auth.RoleManager}
}

func memberIdentity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New(), CompanyID: companyID, Name: "Mia Member", Email: "mia@example.com", Role: auth.RoleMember}
}

func makeChiRequest(method, path string, body []byte, routePattern string, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		rctx.RoutePatterns = append(rctx.RoutePatterns, routePattern)
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, w
}

// asUser attaches identity to req the way the Auth middleware does.
func asUser(req *http.Request, identity *auth.Identity) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := parseEnvelope(t, w)
	errObj, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "response has no error object: %s", w.Body.String())
	return errObj["code"].(string)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
