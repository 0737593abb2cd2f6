// Package scheduler runs periodic background jobs: standup reminders and
// the sprint lifecycle.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/notification"
	"github.com/syncup/syncup/internal/report"
)

// MissingReports lists users without a standup report for a day.
type MissingReports interface {
	MissingAll(ctx context.Context, day time.Time) ([]report.Missing, error)
}

// SentLog tells which users already received a notification kind.
type SentLog interface {
	SentSince(ctx context.Context, userIDs []uuid.UUID, kind string, since time.Time) (map[uuid.UUID]bool, error)
}

// SprintLifecycle completes ended sprints and starts due ones.
type SprintLifecycle interface {
	AdvanceLifecycle(ctx context.Context, now time.Time) (completed, started int, err error)
}

// Options configures a Scheduler.
type Options struct {
	Interval     time.Duration
	ReminderHour int
}

// Scheduler runs its jobs on every tick until the context is cancelled.
type Scheduler struct {
	reports  MissingReports
	sent     SentLog
	notifier notification.Sender
	sprints  SprintLifecycle
	opts     Options
	now      func() time.Time
}

// New creates a new Scheduler.
func New(reports MissingReports, sent SentLog, notifier notification.Sender, sprints SprintLifecycle, opts Options) *Scheduler {
	return &Scheduler{
		reports:  reports,
		sent:     sent,
		notifier: notifier,
		sprints:  sprints,
		opts:     opts,
		now:      time.Now,
	}
}

// SetClock overrides the time source.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start begins the job loop. It blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("scheduler started", "interval", s.opts.Interval.String(), "reminderHour", s.opts.ReminderHour)
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs every job once.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().UTC()

	s.remindStandups(ctx, now)
	if ctx.Err() != nil {
		return
	}
	s.advanceSprints(ctx, now)
}

func (s *Scheduler) remindStandups(ctx context.Context, now time.Time) {
	if !isWorkday(now) || now.Hour() < s.opts.ReminderHour {
		return
	}
	day := report.Day(now)

	missing, err := s.reports.MissingAll(ctx, day)
	if err != nil {
		slog.Error("scheduler: failed to list missing reports", "day", day.Format(time.DateOnly), "error", err)
		return
	}
	if len(missing) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(missing))
	for i, m := range missing {
		ids[i] = m.UserID
	}
	reminded, err := s.sent.SentSince(ctx, ids, notification.KindStandupReminder, day)
	if err != nil {
		slog.Error("scheduler: failed to check sent reminders", "error", err)
		return
	}

	byCompany := map[uuid.UUID][]uuid.UUID{}
	for _, m := range missing {
		if !reminded[m.UserID] {
			byCompany[m.CompanyID] = append(byCompany[m.CompanyID], m.UserID)
		}
	}

	msg := notification.Message{
		Kind:  notification.KindStandupReminder,
		Title: "Daily standup reminder",
		Body:  "You have not submitted today's standup report yet.",
		Link:  "/reports",
	}
	for companyID, userIDs := range byCompany {
		if ctx.Err() != nil {
			return
		}
		if err := s.notifier.Notify(ctx, companyID, userIDs, msg); err != nil {
			slog.Error("scheduler: failed to send standup reminders", "companyId", companyID, "error", err)
			continue
		}
		slog.Info("scheduler: standup reminders sent", "companyId", companyID, "users", len(userIDs))
	}
}

func (s *Scheduler) advanceSprints(ctx context.Context, now time.Time) {
	completed, started, err := s.sprints.AdvanceLifecycle(ctx, now)
	if err != nil {
		slog.Error("scheduler: failed to advance sprints", "error", err)
		return
	}
	if completed > 0 || started > 0 {
		slog.Info("scheduler: sprints advanced", "completed", completed, "started", started)
	}
}

func isWorkday(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}
