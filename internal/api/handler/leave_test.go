package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncup/syncup/internal/api/handler"
	"github.com/syncup/syncup/internal/auth"
	"github.com/syncup/syncup/internal/leave"
	"github.com/syncup/syncup/internal/notification"
)

type mockLeaveRepo struct {
	createFn  func(ctx context.Context, p *leave.Plan) error
	getByIDFn func(ctx context.Context, companyID, id uuid.UUID) (*leave.Plan, error)
	listFn    func(ctx context.Context, companyID uuid.UUID, filter leave.Filter) ([]leave.Plan, error)
	cancelFn  func(ctx context.Context, companyID, userID, id uuid.UUID, today time.Time) (*leave.Plan, error)
	reviewFn  func(ctx context.Context, companyID, id, reviewerID uuid.UUID, status string) (*leave.Plan, error)
}

func (m *mockLeaveRepo) Create(ctx context.Context, p *leave.Plan) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = uuid.New()
	p.Status = leave.StatusPending
	p.CreatedAt = time.Now().UTC()
	return nil
}

func (m *mockLeaveRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*leave.Plan, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, companyID, id)
	}
	return nil, leave.ErrPlanNotFound
}

func (m *mockLeaveRepo) List(ctx context.Context, companyID uuid.UUID, filter leave.Filter) ([]leave.Plan, error) {
	if m.listFn != nil {
		return m.listFn(ctx, companyID, filter)
	}
	return []leave.Plan{}, nil
}

func (m *mockLeaveRepo) Cancel(ctx context.Context, companyID, userID, id uuid.UUID, today time.Time) (*leave.Plan, error) {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, companyID, userID, id, today)
	}
	return nil, leave.ErrPlanNotFound
}

func (m *mockLeaveRepo) Review(ctx context.Context, companyID, id, reviewerID uuid.UUID, status string) (*leave.Plan, error) {
	if m.reviewFn != nil {
		return m.reviewFn(ctx, companyID, id, reviewerID, status)
	}
	return nil, leave.ErrPlanNotFound
}

// leaveClock is 2026-03-06 08:00 UTC.
var leaveClock = time.Date(2026, 3, 6, 8, 0, 0, 0, time.UTC)

func newLeaveHandler(repo leave.Repository, sender notification.Sender) *handler.LeaveHandler {
	svc := leave.NewService(repo, sender)
	svc.SetClock(func() time.Time { return leaveClock })
	return handler.NewLeaveHandler(svc)
}

func TestLeaveRequest(t *testing.T) {
	t.Parallel()

	identity := memberIdentity()
	h := newLeaveHandler(&mockLeaveRepo{}, &recordingSender{})

	body := mustJSON(t, map[string]string{"startDate": "2026-03-10", "endDate": "2026-03-12", "type": "vacation", "reason": " Trip "})
	req, w := makeChiRequest(http.MethodPost, "/leave", body, "/leave", nil)
	h.Request(w, asUser(req, identity))

	require.Equal(t, http.StatusCreated, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, float64(3), data["days"])
	assert.Equal(t, "Trip", data["reason"])
	assert.Equal(t, identity.UserID.String(), data["userId"])
}

func TestLeaveRequest_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     map[string]string
		repoErr  error
		wantCode int
		wantErr  string
	}{
		{
			name:     "end before start",
			body:     map[string]string{"startDate": "2026-03-12", "endDate": "2026-03-10", "type": "vacation"},
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "unknown type",
			body:     map[string]string{"startDate": "2026-03-10", "endDate": "2026-03-10", "type": "sabbatical"},
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "overlap",
			body:     map[string]string{"startDate": "2026-03-10", "endDate": "2026-03-12", "type": "sick"},
			repoErr:  leave.ErrOverlap,
			wantCode: http.StatusConflict,
			wantErr:  "LEAVE_OVERLAP",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := &mockLeaveRepo{createFn: func(context.Context, *leave.Plan) error { return tc.repoErr }}
			h := newLeaveHandler(repo, &recordingSender{})

			req, w := makeChiRequest(http.MethodPost, "/leave", mustJSON(t, tc.body), "/leave", nil)
			h.Request(w, asUser(req, memberIdentity()))

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantErr, errorCode(t, w))
		})
	}
}

func TestLeaveList_MemberSeesApprovedOfOthers(t *testing.T) {
	t.Parallel()

	member := memberIdentity()
	tests := []struct {
		name       string
		identity   func() *auth.Identity
		query      string
		wantStatus string
	}{
		{name: "member all users", query: "?status=pending", wantStatus: leave.StatusApproved},
		{name: "member own plans", query: "?status=pending&userId=" + member.UserID.String(), wantStatus: leave.StatusPending},
		{name: "manager", identity: managerIdentity, query: "?status=pending", wantStatus: leave.StatusPending},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var got leave.Filter
			repo := &mockLeaveRepo{listFn: func(_ context.Context, _ uuid.UUID, f leave.Filter) ([]leave.Plan, error) {
				got = f
				return []leave.Plan{}, nil
			}}
			h := newLeaveHandler(repo, &recordingSender{})

			caller := member
			if tc.identity != nil {
				caller = tc.identity()
			}
			req, w := makeChiRequest(http.MethodGet, "/leave"+tc.query, nil, "/leave", nil)
			h.List(w, asUser(req, caller))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.wantStatus, got.Status)
		})
	}
}

func TestLeaveMine(t *testing.T) {
	t.Parallel()

	member := memberIdentity()
	var got leave.Filter
	repo := &mockLeaveRepo{listFn: func(_ context.Context, _ uuid.UUID, f leave.Filter) ([]leave.Plan, error) {
		got = f
		return []leave.Plan{{ID: uuid.New(), UserID: member.UserID, StartDate: date(2026, 3, 10), EndDate: date(2026, 3, 10), Status: leave.StatusPending}}, nil
	}}
	h := newLeaveHandler(repo, &recordingSender{})

	req, w := makeChiRequest(http.MethodGet, "/leave/mine", nil, "/leave/mine", nil)
	h.Mine(w, asUser(req, member))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.UserID)
	assert.Equal(t, member.UserID, *got.UserID)
	assert.Empty(t, got.Status)
	data := parseEnvelope(t, w)["data"].([]interface{})
	assert.Equal(t, float64(1), data[0].(map[string]interface{})["days"])
}

func TestLeaveMine_InvalidStatus(t *testing.T) {
	t.Parallel()

	h := newLeaveHandler(&mockLeaveRepo{}, &recordingSender{})

	req, w := makeChiRequest(http.MethodGet, "/leave/mine?status=maybe", nil, "/leave/mine", nil)
	h.Mine(w, asUser(req, memberIdentity()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaveCancel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "success", wantCode: http.StatusOK},
		{name: "already started", err: leave.ErrNotCancellable, wantCode: http.StatusConflict, wantErr: "NOT_CANCELLABLE"},
		{name: "not found", err: leave.ErrPlanNotFound, wantCode: http.StatusNotFound, wantErr: "NOT_FOUND"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			member := memberIdentity()
			repo := &mockLeaveRepo{cancelFn: func(_ context.Context, _, userID, id uuid.UUID, today time.Time) (*leave.Plan, error) {
				assert.Equal(t, member.UserID, userID)
				assert.Equal(t, date(2026, 3, 6), today)
				if tc.err != nil {
					return nil, tc.err
				}
				return &leave.Plan{ID: id, UserID: userID, StartDate: date(2026, 3, 9), EndDate: date(2026, 3, 9), Status: leave.StatusCancelled}, nil
			}}
			h := newLeaveHandler(repo, &recordingSender{})

			id := uuid.NewString()
			req, w := makeChiRequest(http.MethodPost, "/leave/"+id+"/cancel", nil, "/leave/{id}/cancel", map[string]string{"id": id})
			h.Cancel(w, asUser(req, member))

			assert.Equal(t, tc.wantCode, w.Code)
			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, errorCode(t, w))
				return
			}
			assert.Equal(t, "cancelled", parseEnvelope(t, w)["data"].(map[string]interface{})["status"])
		})
	}
}

func TestLeaveReview_ApproveNotifiesRequester(t *testing.T) {
	t.Parallel()

	requester := uuid.New()
	reviewer := managerIdentity()
	sender := &recordingSender{}
	var gotStatus string
	repo := &mockLeaveRepo{reviewFn: func(_ context.Context, cid, id, reviewerID uuid.UUID, status string) (*leave.Plan, error) {
		assert.Equal(t, reviewer.UserID, reviewerID)
		gotStatus = status
		now := leaveClock
		return &leave.Plan{
			ID: id, CompanyID: cid, UserID: requester, Type: "vacation",
			StartDate: date(2026, 3, 10), EndDate: date(2026, 3, 12),
			Status: status, ReviewedBy: &reviewerID, ReviewedAt: &now,
		}, nil
	}}
	h := newLeaveHandler(repo, sender)

	id := uuid.NewString()
	req, w := makeChiRequest(http.MethodPost, "/leave/"+id+"/review", []byte(`{"decision":"approve"}`), "/leave/{id}/review", map[string]string{"id": id})
	h.Review(w, asUser(req, reviewer))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, leave.StatusApproved, gotStatus)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, reviewer.UserID.String(), data["reviewedBy"])

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []uuid.UUID{requester}, msgs[0].userIDs)
	assert.Equal(t, notification.KindLeaveReviewed, msgs[0].msg.Kind)
	assert.Contains(t, msgs[0].msg.Title, "approved")
}

func TestLeaveReview_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "bad decision", body: `{"decision":"maybe"}`, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
		{name: "own request", body: `{"decision":"approve"}`, err: leave.ErrOwnRequest, wantCode: http.StatusForbidden, wantErr: "FORBIDDEN"},
		{name: "already reviewed", body: `{"decision":"reject"}`, err: leave.ErrAlreadyReviewed, wantCode: http.StatusConflict, wantErr: "ALREADY_REVIEWED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sender := &recordingSender{}
			repo := &mockLeaveRepo{reviewFn: func(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, string) (*leave.Plan, error) {
				return nil, tc.err
			}}
			h := newLeaveHandler(repo, sender)

			id := uuid.NewString()
			req, w := makeChiRequest(http.MethodPost, "/leave/"+id+"/review", []byte(tc.body), "/leave/{id}/review", map[string]string{"id": id})
			h.Review(w, asUser(req, managerIdentity()))

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantErr, errorCode(t, w))
			assert.Empty(t, sender.messages())
		})
	}
}

func TestLeaveAvailability_DefaultsToTwoWeeks(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	var got leave.Filter
	repo := &mockLeaveRepo{listFn: func(_ context.Context, _ uuid.UUID, f leave.Filter) ([]leave.Plan, error) {
		got = f
		return []leave.Plan{{
			ID: uuid.New(), UserID: userID, UserName: "Away Amy", Type: "vacation",
			StartDate: date(2026, 3, 7), EndDate: date(2026, 3, 8), Status: leave.StatusApproved,
		}}, nil
	}}
	h := newLeaveHandler(repo, &recordingSender{})

	req, w := makeChiRequest(http.MethodGet, "/leave/availability", nil, "/leave/availability", nil)
	h.Availability(w, asUser(req, memberIdentity()))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, leave.StatusApproved, got.Status)
	assert.Equal(t, date(2026, 3, 6), got.From)
	assert.Equal(t, date(2026, 3, 19), got.To)

	days := parseEnvelope(t, w)["data"].([]interface{})
	require.Len(t, days, 14)
	assert.Empty(t, days[0].(map[string]interface{})["away"])
	away := days[1].(map[string]interface{})["away"].([]interface{})
	require.Len(t, away, 1)
	assert.Equal(t, "Away Amy", away[0].(map[string]interface{})["name"])
}

func TestLeaveAvailability_RangeTooLarge(t *testing.T) {
	t.Parallel()

	h := newLeaveHandler(&mockLeaveRepo{}, &recordingSender{})

	req, w := makeChiRequest(http.MethodGet, "/leave/availability?from=2026-01-01&to=2026-12-31", nil, "/leave/availability", nil)
	h.Availability(w, asUser(req, memberIdentity()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestLeaveWhoIsOut(t *testing.T) {
	t.Parallel()

	repo := &mockLeaveRepo{listFn: func(_ context.Context, _ uuid.UUID, f leave.Filter) ([]leave.Plan, error) {
		assert.Equal(t, date(2026, 3, 9), f.From)
		assert.Equal(t, date(2026, 3, 9), f.To)
		return []leave.Plan{{ID: uuid.New(), UserID: uuid.New(), UserName: "Sick Sam", Type: "sick",
			StartDate: date(2026, 3, 9), EndDate: date(2026, 3, 9), Status: leave.StatusApproved}}, nil
	}}
	h := newLeaveHandler(repo, &recordingSender{})

	req, w := makeChiRequest(http.MethodGet, "/leave/out?date=2026-03-09", nil, "/leave/out", nil)
	h.WhoIsOut(w, asUser(req, memberIdentity()))

	require.Equal(t, http.StatusOK, w.Code)
	env := parseEnvelope(t, w)
	data := env["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "sick", data[0].(map[string]interface{})["type"])
	assert.Equal(t, float64(1), env["meta"].(map[string]interface{})["total"])
}
