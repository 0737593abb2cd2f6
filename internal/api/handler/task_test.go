package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncup/syncup/internal/api/handler"
	"github.com/syncup/syncup/internal/notification"
	"github.com/syncup/syncup/internal/project"
	"github.com/syncup/syncup/internal/sprint"
)

func newTaskHandler(sprints *mockSprintRepo, projects *mockProjectRepo, sender notification.Sender) *handler.TaskHandler {
	return handler.NewTaskHandler(sprint.NewService(sprints, sender), project.NewService(projects))
}

func TestTaskList_MemberDefaultsToOwnTasks(t *testing.T) {
	t.Parallel()

	member := memberIdentity()
	var got sprint.TaskFilter
	repo := &mockSprintRepo{listTasksFn: func(_ context.Context, _ uuid.UUID, f sprint.TaskFilter) ([]sprint.Task, error) {
		got = f
		return []sprint.Task{{ID: uuid.New(), Title: "Write tests", Status: sprint.TaskTodo, AssigneeID: &member.UserID}}, nil
	}}
	h := newTaskHandler(repo, &mockProjectRepo{}, &recordingSender{})

	req, w := makeChiRequest(http.MethodGet, "/tasks?open=true", nil, "/tasks", nil)
	h.List(w, asUser(req, member))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.AssigneeID)
	assert.Equal(t, member.UserID, *got.AssigneeID)
	assert.True(t, got.OpenOnly)
	data := parseEnvelope(t, w)["data"].([]interface{})
	assert.Equal(t, member.UserID.String(), data[0].(map[string]interface{})["assigneeId"])
}

func TestTaskList_MemberCannotListOthersWithoutProject(t *testing.T) {
	t.Parallel()

	h := newTaskHandler(&mockSprintRepo{}, &mockProjectRepo{}, &recordingSender{})

	req, w := makeChiRequest(http.MethodGet, "/tasks?assigneeId="+uuid.NewString(), nil, "/tasks", nil)
	h.List(w, asUser(req, memberIdentity()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestTaskList_SprintResolvesProject(t *testing.T) {
	t.Parallel()

	sprintID, projectID := uuid.New(), uuid.New()
	var got sprint.TaskFilter
	repo := &mockSprintRepo{
		getSprintFn: func(context.Context, uuid.UUID, uuid.UUID) (*sprint.Sprint, error) {
			return tenDaySprint(sprintID, projectID, sprint.StatusActive), nil
		},
		listTasksFn: func(_ context.Context, _ uuid.UUID, f sprint.TaskFilter) ([]sprint.Task, error) {
			got = f
			return []sprint.Task{}, nil
		},
	}
	var checked uuid.UUID
	projects := &mockProjectRepo{isAssignedFn: func(_ context.Context, pid, _ uuid.UUID) (bool, error) {
		checked = pid
		return true, nil
	}}
	h := newTaskHandler(repo, projects, &recordingSender{})

	req, w := makeChiRequest(http.MethodGet, "/tasks?sprintId="+sprintID.String(), nil, "/tasks", nil)
	h.List(w, asUser(req, memberIdentity()))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, projectID, checked)
	require.NotNil(t, got.ProjectID)
	assert.Equal(t, projectID, *got.ProjectID)
	assert.Nil(t, got.AssigneeID)
}

func TestTaskList_InvalidQuery(t *testing.T) {
	t.Parallel()

	h := newTaskHandler(&mockSprintRepo{}, &mockProjectRepo{}, &recordingSender{})

	req, w := makeChiRequest(http.MethodGet, "/tasks?projectId=x&status=blocked", nil, "/tasks", nil)
	h.List(w, asUser(req, managerIdentity()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, parseEnvelope(t, w)["error"].(map[string]interface{})["details"], 2)
}

func TestTaskCreate_NotifiesAssignee(t *testing.T) {
	t.Parallel()

	assignee := uuid.New()
	sender := &recordingSender{}
	h := newTaskHandler(&mockSprintRepo{}, &mockProjectRepo{}, sender)

	body := mustJSON(t, map[string]interface{}{
		"projectId":   uuid.NewString(),
		"title":       "  Fix login  ",
		"storyPoints": 3,
		"assigneeId":  assignee.String(),
		"dueDate":     "2026-03-10",
	})
	req, w := makeChiRequest(http.MethodPost, "/tasks", body, "/tasks", nil)
	h.Create(w, asUser(req, managerIdentity()))

	require.Equal(t, http.StatusCreated, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Fix login", data["title"])
	assert.Equal(t, "todo", data["status"])
	assert.Equal(t, "2026-03-10", data["dueDate"])
	assert.Nil(t, data["sprintId"])

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []uuid.UUID{assignee}, msgs[0].userIDs)
	assert.Equal(t, notification.KindTaskAssigned, msgs[0].msg.Kind)
}

func TestTaskCreate_SelfAssignedIsSilent(t *testing.T) {
	t.Parallel()

	identity := managerIdentity()
	sender := &recordingSender{}
	h := newTaskHandler(&mockSprintRepo{}, &mockProjectRepo{}, sender)

	body := mustJSON(t, map[string]interface{}{
		"projectId":  uuid.NewString(),
		"title":      "Mine",
		"assigneeId": identity.UserID.String(),
	})
	req, w := makeChiRequest(http.MethodPost, "/tasks", body, "/tasks", nil)
	h.Create(w, asUser(req, identity))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, sender.messages())
}

func TestTaskCreate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		repoErr  error
		assigned bool
		wantCode int
		wantErr  string
	}{
		{name: "closed sprint", repoErr: sprint.ErrSprintMismatch, assigned: true, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
		{name: "foreign assignee", repoErr: sprint.ErrInvalidAssignee, assigned: true, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
		{name: "project not visible", assigned: false, wantCode: http.StatusNotFound, wantErr: "NOT_FOUND"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := &mockSprintRepo{createTaskFn: func(context.Context, *sprint.Task) error { return tc.repoErr }}
			projects := &mockProjectRepo{isAssignedFn: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
				return tc.assigned, nil
			}}
			h := newTaskHandler(repo, projects, &recordingSender{})

			body := mustJSON(t, map[string]interface{}{
				"projectId":  uuid.NewString(),
				"sprintId":   uuid.NewString(),
				"title":      "Task",
				"assigneeId": uuid.NewString(),
			})
			req, w := makeChiRequest(http.MethodPost, "/tasks", body, "/tasks", nil)
			h.Create(w, asUser(req, memberIdentity()))

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantErr, errorCode(t, w))
		})
	}
}

func TestTaskUpdate_ClearsSprintAndAssignee(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	sprintID, assignee := uuid.New(), uuid.New()
	var got sprint.TaskUpdate
	repo := &mockSprintRepo{
		getTaskFn: func(context.Context, uuid.UUID, uuid.UUID) (*sprint.Task, error) {
			return &sprint.Task{ID: id, ProjectID: uuid.New(), SprintID: &sprintID, AssigneeID: &assignee, Status: sprint.TaskTodo}, nil
		},
		updateTaskFn: func(_ context.Context, _, tid uuid.UUID, upd sprint.TaskUpdate) (*sprint.Task, error) {
			got = upd
			return &sprint.Task{ID: tid, Status: *upd.Status}, nil
		},
	}
	sender := &recordingSender{}
	h := newTaskHandler(repo, &mockProjectRepo{}, sender)

	body := []byte(`{"sprintId":"","assigneeId":"","status":"done"}`)
	req, w := makeChiRequest(http.MethodPatch, "/tasks/"+id.String(), body, "/tasks/{id}", map[string]string{"id": id.String()})
	h.Update(w, asUser(req, managerIdentity()))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, got.ClearSprint)
	assert.True(t, got.ClearAssignee)
	assert.Nil(t, got.SprintID)
	assert.Nil(t, got.AssigneeID)
	assert.Equal(t, "done", parseEnvelope(t, w)["data"].(map[string]interface{})["status"])
	assert.Empty(t, sender.messages())
}

func TestTaskUpdate_ReassignNotifies(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	before, after := uuid.New(), uuid.New()
	repo := &mockSprintRepo{
		getTaskFn: func(context.Context, uuid.UUID, uuid.UUID) (*sprint.Task, error) {
			return &sprint.Task{ID: id, ProjectID: uuid.New(), AssigneeID: &before}, nil
		},
		updateTaskFn: func(_ context.Context, _, tid uuid.UUID, upd sprint.TaskUpdate) (*sprint.Task, error) {
			return &sprint.Task{ID: tid, Title: "Task", AssigneeID: upd.AssigneeID}, nil
		},
	}
	sender := &recordingSender{}
	h := newTaskHandler(repo, &mockProjectRepo{}, sender)

	body := mustJSON(t, map[string]string{"assigneeId": after.String()})
	req, w := makeChiRequest(http.MethodPatch, "/tasks/"+id.String(), body, "/tasks/{id}", map[string]string{"id": id.String()})
	h.Update(w, asUser(req, managerIdentity()))

	require.Equal(t, http.StatusOK, w.Code)
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []uuid.UUID{after}, msgs[0].userIDs)
}

func TestTaskGetByID_HiddenProject(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	repo := &mockSprintRepo{getTaskFn: func(context.Context, uuid.UUID, uuid.UUID) (*sprint.Task, error) {
		return &sprint.Task{ID: id, ProjectID: uuid.New()}, nil
	}}
	h := newTaskHandler(repo, &mockProjectRepo{}, &recordingSender{})

	req, w := makeChiRequest(http.MethodGet, "/tasks/"+id.String(), nil, "/tasks/{id}", map[string]string{"id": id.String()})
	h.GetByID(w, asUser(req, memberIdentity()))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskDelete(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	var deleted uuid.UUID
	repo := &mockSprintRepo{
		getTaskFn: func(context.Context, uuid.UUID, uuid.UUID) (*sprint.Task, error) {
			return &sprint.Task{ID: id, ProjectID: uuid.New()}, nil
		},
		deleteTaskFn: func(_ context.Context, _, tid uuid.UUID) error {
			deleted = tid
			return nil
		},
	}
	h := newTaskHandler(repo, &mockProjectRepo{}, &recordingSender{})

	req, w := makeChiRequest(http.MethodDelete, "/tasks/"+id.String(), nil, "/tasks/{id}", map[string]string{"id": id.String()})
	h.Delete(w, asUser(req, adminIdentity()))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, id, deleted)
}
