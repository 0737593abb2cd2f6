package report

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/auth"
)

// ErrReportLocked is returned when a report is edited after its day or by
// someone other than its author.
var ErrReportLocked = errors.New("report can only be edited by its author on the same day")

// Entry is the content of a standup report.
type Entry struct {
	Yesterday string
	Today     string
	Blockers  string
}

// Service implements the standup workflow.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new report Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Repo exposes the underlying repository for plain reads.
func (s *Service) Repo() Repository {
	return s.repo
}

// Today returns the current UTC calendar day.
func (s *Service) Today() time.Time {
	return Day(s.now())
}

// Submit stores the caller's report for today, replacing an earlier
// submission of the same day.
func (s *Service) Submit(ctx context.Context, id *auth.Identity, e Entry) (*Report, error) {
	rep := &Report{
		CompanyID:  id.CompanyID,
		UserID:     id.UserID,
		UserName:   id.Name,
		ReportDate: s.Today(),
		Yesterday:  strings.TrimSpace(e.Yesterday),
		Today:      strings.TrimSpace(e.Today),
		Blockers:   strings.TrimSpace(e.Blockers),
	}
	if err := s.repo.Upsert(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// Edit replaces the content of an existing report. Only the author may edit,
// and only on the report's day.
func (s *Service) Edit(ctx context.Context, id *auth.Identity, reportID uuid.UUID, e Entry) (*Report, error) {
	existing, err := s.repo.GetByID(ctx, id.CompanyID, reportID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != id.UserID || !Day(existing.ReportDate).Equal(s.Today()) {
		return nil, ErrReportLocked
	}
	return s.Submit(ctx, id, e)
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
