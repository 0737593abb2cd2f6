package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncup/syncup/internal/auth"
	"github.com/syncup/syncup/internal/report"
)

type mockRepo struct {
	report.Repository
	upsertFn  func(ctx context.Context, r *report.Report) error
	getByIDFn func(ctx context.Context, companyID, id uuid.UUID) (*report.Report, error)
}

func (m *mockRepo) Upsert(ctx context.Context, r *report.Report) error {
	return m.upsertFn(ctx, r)
}

func (m *mockRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*report.Report, error) {
	return m.getByIDFn(ctx, companyID, id)
}

var clock = time.Date(2025, 3, 12, 16, 45, 0, 0, time.UTC)

func newService(repo report.Repository) *report.Service {
	svc := report.NewService(repo)
	svc.SetClock(func() time.Time { return clock })
	return svc
}

func TestSubmit_UsesTodayAndTrims(t *testing.T) {
	// Arrange
	id := &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Name: "Ana"}
	var stored *report.Report
	repo := &mockRepo{upsertFn: func(_ context.Context, r *report.Report) error {
		stored = r
		r.ID = uuid.New()
		return nil
	}}

	// Act
	rep, err := newService(repo).Submit(context.Background(), id, report.Entry{
		Yesterday: " api ", Today: "tests\n", Blockers: "  ",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), stored.ReportDate)
	assert.Equal(t, "api", rep.Yesterday)
	assert.Equal(t, "tests", rep.Today)
	assert.False(t, rep.HasBlockers())
	assert.Equal(t, id.CompanyID, stored.CompanyID)
}

func TestEdit_Rules(t *testing.T) {
	author := &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New()}
	other := &auth.Identity{UserID: uuid.New(), CompanyID: author.CompanyID}

	tests := []struct {
		name    string
		editor  *auth.Identity
		day     time.Time
		wantErr error
	}{
		{"author same day", author, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), nil},
		{"author next day", author, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), report.ErrReportLocked},
		{"someone else", other, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), report.ErrReportLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upserted := false
			repo := &mockRepo{
				getByIDFn: func(_ context.Context, _, id uuid.UUID) (*report.Report, error) {
					return &report.Report{ID: id, UserID: author.UserID, ReportDate: tt.day}, nil
				},
				upsertFn: func(context.Context, *report.Report) error {
					upserted = true
					return nil
				},
			}

			_, err := newService(repo).Edit(context.Background(), tt.editor, uuid.New(), report.Entry{Today: "x"})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, upserted)
				return
			}
			require.NoError(t, err)
			assert.True(t, upserted)
		})
	}
}

func TestDay(t *testing.T) {
	local := time.FixedZone("UTC+3", 3*3600)
	got := report.Day(time.Date(2025, 3, 13, 1, 0, 0, 0, local))
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), got)
}
