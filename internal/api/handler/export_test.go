package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncup/syncup/internal/api/handler"
	"github.com/syncup/syncup/internal/export"
	"github.com/syncup/syncup/internal/leave"
	"github.com/syncup/syncup/internal/report"
)

func newExportHandler(reports report.Repository, plans leave.Repository) *handler.ExportHandler {
	h := handler.NewExportHandler(export.New(reports, plans))
	h.SetClock(func() time.Time { return time.Date(2026, 3, 6, 17, 45, 0, 0, time.UTC) })
	return h
}

func TestExportReports_DefaultRange(t *testing.T) {
	t.Parallel()

	var got report.Filter
	reports := &mockReportRepo{listFn: func(_ context.Context, cid uuid.UUID, f report.Filter) ([]report.Report, error) {
		assert.Equal(t, companyID, cid)
		got = f
		return []report.Report{{
			UserName: "Mia Member", ReportDate: date(2026, 3, 5),
			Yesterday: "Reviewed PRs", Today: "Write tests", Blockers: "CI, flaky",
		}}, nil
	}}
	h := newExportHandler(reports, &mockLeaveRepo{})

	req, w := makeChiRequest(http.MethodGet, "/export/reports", nil, "/export/reports", nil)
	h.Reports(w, asUser(req, managerIdentity()))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="reports_2026-02-05_2026-03-06.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, date(2026, 2, 5), got.From)
	assert.Equal(t, date(2026, 3, 6), got.To)

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,user,yesterday,today,blockers", lines[0])
	assert.Equal(t, `2026-03-05,Mia Member,Reviewed PRs,Write tests,"CI, flaky"`, lines[1])
}

func TestExportLeave_ExplicitRange(t *testing.T) {
	t.Parallel()

	plans := &mockLeaveRepo{listFn: func(_ context.Context, _ uuid.UUID, f leave.Filter) ([]leave.Plan, error) {
		assert.Equal(t, date(2026, 1, 1), f.From)
		assert.Equal(t, date(2026, 1, 31), f.To)
		return []leave.Plan{{
			UserName: "Olga", Type: "vacation", Status: leave.StatusApproved,
			StartDate: date(2026, 1, 12), EndDate: date(2026, 1, 14),
		}}, nil
	}}
	h := newExportHandler(&mockReportRepo{}, plans)

	req, w := makeChiRequest(http.MethodGet, "/export/leave?from=2026-01-01&to=2026-01-31", nil, "/export/leave", nil)
	h.Leave(w, asUser(req, adminIdentity()))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "leave_2026-01-01_2026-01-31.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "user,type,status,start_date,end_date,days,reason", lines[0])
	assert.Equal(t, "Olga,vacation,approved,2026-01-12,2026-01-14,3,", lines[1])
}

func TestExport_InvalidRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		field string
	}{
		{name: "reversed", query: "?from=2026-03-06&to=2026-03-01", field: "to"},
		{name: "longer than a year", query: "?from=2024-01-01&to=2026-01-01", field: "to"},
		{name: "bad date", query: "?from=yesterday", field: "from"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newExportHandler(&mockReportRepo{}, &mockLeaveRepo{})

			req, w := makeChiRequest(http.MethodGet, "/export/reports"+tc.query, nil, "/export/reports", nil)
			h.Reports(w, asUser(req, managerIdentity()))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			errObj := parseEnvelope(t, w)["error"].(map[string]interface{})
			assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
			assert.Equal(t, tc.field, errObj["details"].([]interface{})[0].(map[string]interface{})["field"])
		})
	}
}
