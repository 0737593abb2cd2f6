package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	specpkg "github.com/syncup/syncup/api"
	"github.com/syncup/syncup/internal/announcement"
	"github.com/syncup/syncup/internal/api"
	"github.com/syncup/syncup/internal/api/handler"
	"github.com/syncup/syncup/internal/assistant"
	"github.com/syncup/syncup/internal/auth"
	"github.com/syncup/syncup/internal/dashboard"
	"github.com/syncup/syncup/internal/database/dbtest"
	"github.com/syncup/syncup/internal/export"
	"github.com/syncup/syncup/internal/leave"
	"github.com/syncup/syncup/internal/notification"
	"github.com/syncup/syncup/internal/project"
	"github.com/syncup/syncup/internal/report"
	"github.com/syncup/syncup/internal/sprint"
	"github.com/syncup/syncup/internal/team"
)

type integrationEnv struct {
	server        *httptest.Server
	adminEmail    string
	adminPassword string
}

func setupIntegrationServer(t *testing.T) *integrationEnv {
	t.Helper()

	pool := dbtest.Pool(t)
	ctx := context.Background()

	userRepo := auth.NewRepository(pool)
	reportRepo := report.NewRepository(pool)
	leaveRepo := leave.NewRepository(pool)
	sprintRepo := sprint.NewRepository(pool)
	notificationRepo := notification.NewRepository(pool)
	notifier := notification.NewNotifier(notificationRepo)

	authService := auth.NewService(userRepo, "integration-test-secret", time.Hour, 4)
	projectService := project.NewService(project.NewRepository(pool))
	sprintService := sprint.NewService(sprintRepo, notifier)
	leaveService := leave.NewService(leaveRepo, notifier)
	announcementService := announcement.NewService(announcement.NewRepository(pool), notifier)

	password, err := authService.Bootstrap(ctx, "Acme", "admin@acme.test")
	require.NoError(t, err)
	require.NotEmpty(t, password)

	router := api.NewRouter(api.RouterDeps{
		DBPinger:      pool,
		Version:       "0.1.0-test",
		OpenAPISpec:   specpkg.OpenAPISpec,
		Authenticator: authService,

		Auth:          handler.NewAuthHandler(authService, userRepo),
		Users:         handler.NewUserHandler(authService, userRepo),
		Teams:         handler.NewTeamHandler(team.NewRepository(pool)),
		Projects:      handler.NewProjectHandler(projectService),
		Sprints:       handler.NewSprintHandler(sprintService, projectService),
		Tasks:         handler.NewTaskHandler(sprintService, projectService),
		Reports:       handler.NewReportHandler(report.NewService(reportRepo)),
		Leave:         handler.NewLeaveHandler(leaveService),
		Announcements: handler.NewAnnouncementHandler(announcementService),
		Notifications: handler.NewNotificationHandler(notificationRepo, notification.NewHub(1)),
		Assistant:     handler.NewAssistantHandler(assistant.NewService(nil, assistant.NewChatRepository(pool), nil, nil)),
		Dashboard: handler.NewDashboardHandler(dashboard.NewService(dashboard.Sources{
			Reports:       reportRepo,
			Notifications: notificationRepo,
			Announcements: announcementService,
			Projects:      projectService,
			Sprints:       sprintRepo,
			Leave:         leaveService,
		})),
		Export: handler.NewExportHandler(export.New(reportRepo, leaveRepo)),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &integrationEnv{server: server, adminEmail: "admin@acme.test", adminPassword: password}
}

// do sends a JSON request and decodes the envelope. A 204 yields a nil map.
func (e *integrationEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	var env map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (e *integrationEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	status, env := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status, "login failed: %v", env)
	return env["data"].(map[string]interface{})["token"].(string)
}

func dataField(env map[string]interface{}, key string) interface{} {
	return env["data"].(map[string]interface{})[key]
}

func TestIntegration_TaskAssignmentFlow(t *testing.T) {
	env := setupIntegrationServer(t)

	adminToken := env.login(t, env.adminEmail, env.adminPassword)

	// Admin creates a member and a project the member is assigned to.
	status, body := env.do(t, http.MethodPost, "/users", adminToken, map[string]string{
		"email": "mia@acme.test", "name": "Mia", "role": auth.RoleMember, "password": "member-pass-1",
	})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	memberID := dataField(body, "id").(string)
	assert.Nil(t, dataField(body, "password"), "an explicit password is never echoed")

	status, body = env.do(t, http.MethodPost, "/projects", adminToken, map[string]string{"name": "Apollo"})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	projectID := dataField(body, "id").(string)

	status, _ = env.do(t, http.MethodPost, "/projects/"+projectID+"/members", adminToken, map[string]string{"userId": memberID})
	require.Equal(t, http.StatusNoContent, status)

	memberToken := env.login(t, "mia@acme.test", "member-pass-1")

	// Members see assigned projects but cannot manage them.
	status, body = env.do(t, http.MethodGet, "/projects", memberToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = env.do(t, http.MethodPost, "/projects", memberToken, map[string]string{"name": "Rogue"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["error"].(map[string]interface{})["code"])

	// Assigning a task notifies the member.
	status, body = env.do(t, http.MethodPost, "/tasks", adminToken, map[string]interface{}{
		"projectId": projectID, "title": "Write launch checklist", "storyPoints": 3, "assigneeId": memberID,
	})
	require.Equal(t, http.StatusCreated, status, "%v", body)

	status, body = env.do(t, http.MethodGet, "/notifications/unread-count", memberToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), dataField(body, "count"))

	status, body = env.do(t, http.MethodGet, "/tasks", memberToken, nil)
	require.Equal(t, http.StatusOK, status)
	tasks := body["data"].([]interface{})
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write launch checklist", tasks[0].(map[string]interface{})["title"])

	status, body = env.do(t, http.MethodGet, "/dashboard", memberToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, dataField(body, "openTasks"), 1)
	assert.Equal(t, float64(1), dataField(body, "unreadNotifications"))
}

func TestIntegration_HealthAndAuth(t *testing.T) {
	env := setupIntegrationServer(t)

	status, body := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", dataField(body, "status"))

	status, body = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": env.adminEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]interface{})["code"])

	status, _ = env.do(t, http.MethodGet, "/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = env.do(t, http.MethodPost, "/assistant/ask", env.login(t, env.adminEmail, env.adminPassword), map[string]string{"question": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "ASSISTANT_UNAVAILABLE", body["error"].(map[string]interface{})["code"])
}
