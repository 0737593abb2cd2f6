// Package dashboard assembles the per-user overview shown after login.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syncup/syncup/internal/auth"
	"github.com/syncup/syncup/internal/leave"
	"github.com/syncup/syncup/internal/notification"
	"github.com/syncup/syncup/internal/report"
	"github.com/syncup/syncup/internal/sprint"
	"github.com/syncup/syncup/internal/sprintmetrics"
)

// sprintFanOut bounds concurrent task loads for active sprints.
const sprintFanOut = 4

// ProjectLister returns the projects visible to a caller.
type ProjectLister interface {
	VisibleIDs(ctx context.Context, id *auth.Identity) ([]uuid.UUID, error)
}

// AnnouncementCounter counts a caller's unread announcements.
type AnnouncementCounter interface {
	UnreadCount(ctx context.Context, id *auth.Identity) (int, error)
}

// AbsenceLister lists the users away on a day.
type AbsenceLister interface {
	WhoIsOut(ctx context.Context, companyID uuid.UUID, date time.Time) ([]leave.Absence, error)
}

// Sources are the data the dashboard is built from.
type Sources struct {
	Reports       report.Repository
	Notifications notification.Repository
	Announcements AnnouncementCounter
	Projects      ProjectLister
	Sprints       sprint.Repository
	Leave         AbsenceLister
}

// SprintStatus is an active sprint with its metrics.
type SprintStatus struct {
	Sprint  sprint.Sprint
	Summary sprintmetrics.Summary
}

// Dashboard is the overview of one user on one day.
type Dashboard struct {
	Date                time.Time
	TodayReport         *report.Report
	UnreadNotifications int
	UnreadAnnouncements int
	ActiveSprints       []SprintStatus
	OpenTasks           []sprint.Task
	OutToday            []leave.Absence
}

// Service builds dashboards.
type Service struct {
	src Sources
	now func() time.Time
}

// NewService creates a new dashboard Service.
func NewService(src Sources) *Service {
	return &Service{src: src, now: time.Now}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Build gathers every dashboard section concurrently. The first failing
// section cancels the others and its error is returned.
func (s *Service) Build(ctx context.Context, id *auth.Identity) (*Dashboard, error) {
	now := s.now()
	d := &Dashboard{Date: report.Day(now)}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reports, err := s.src.Reports.List(ctx, id.CompanyID, report.Filter{
			From: d.Date, To: d.Date, UserID: &id.UserID,
		})
		if err != nil {
			return fmt.Errorf("loading today's report: %w", err)
		}
		if len(reports) > 0 {
			d.TodayReport = &reports[0]
		}
		return nil
	})

	g.Go(func() error {
		n, err := s.src.Notifications.UnreadCount(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("counting notifications: %w", err)
		}
		d.UnreadNotifications = n
		return nil
	})

	g.Go(func() error {
		n, err := s.src.Announcements.UnreadCount(ctx, id)
		if err != nil {
			return fmt.Errorf("counting announcements: %w", err)
		}
		d.UnreadAnnouncements = n
		return nil
	})

	g.Go(func() error {
		sprints, err := s.activeSprints(ctx, id, now)
		if err != nil {
			return err
		}
		d.ActiveSprints = sprints
		return nil
	})

	g.Go(func() error {
		tasks, err := s.src.Sprints.ListTasks(ctx, id.CompanyID, sprint.TaskFilter{
			AssigneeID: &id.UserID, OpenOnly: true,
		})
		if err != nil {
			return fmt.Errorf("loading open tasks: %w", err)
		}
		d.OpenTasks = tasks
		return nil
	})

	g.Go(func() error {
		away, err := s.src.Leave.WhoIsOut(ctx, id.CompanyID, d.Date)
		if err != nil {
			return fmt.Errorf("loading absences: %w", err)
		}
		d.OutToday = away
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) activeSprints(ctx context.Context, id *auth.Identity, now time.Time) ([]SprintStatus, error) {
	projectIDs, err := s.src.Projects.VisibleIDs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}
	if len(projectIDs) == 0 {
		return []SprintStatus{}, nil
	}

	sprints, err := s.src.Sprints.ListActiveSprints(ctx, id.CompanyID, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("loading active sprints: %w", err)
	}

	statuses := make([]SprintStatus, len(sprints))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sprintFanOut)
	for i := range sprints {
		g.Go(func() error {
			tasks, err := s.src.Sprints.ListTasks(ctx, id.CompanyID, sprint.TaskFilter{SprintID: &sprints[i].ID})
			if err != nil {
				return fmt.Errorf("loading tasks of sprint %s: %w", sprints[i].ID, err)
			}
			statuses[i] = SprintStatus{
				Sprint:  sprints[i],
				Summary: sprintmetrics.Summarize(sprints[i], tasks, now),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}
