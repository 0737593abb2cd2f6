package sprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/notification"
)

// Service implements sprint lifecycle and task workflows on top of the
// Repository and notifies the users affected.
type Service struct {
	repo     Repository
	notifier notification.Sender
}

// NewService creates a new sprint Service.
func NewService(repo Repository, notifier notification.Sender) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Repo exposes the underlying repository for plain reads.
func (s *Service) Repo() Repository {
	return s.repo
}

// StartSprint moves a Planning sprint to Active and tells its assignees.
func (s *Service) StartSprint(ctx context.Context, companyID, id uuid.UUID) (*Sprint, error) {
	sp, err := s.repo.StartSprint(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	s.notifyAssignees(ctx, sp, notification.Message{
		Kind:  notification.KindSprintStarted,
		Title: fmt.Sprintf("Sprint %q started", sp.Name),
		Body:  sp.Goal,
		Link:  sprintLink(sp),
	})
	return sp, nil
}

// CompleteSprint closes an Active sprint. Unfinished tasks return to the
// backlog; the number moved is returned.
func (s *Service) CompleteSprint(ctx context.Context, companyID, id uuid.UUID) (*Sprint, int, error) {
	// Collect assignees first, unfinished tasks leave the sprint on completion.
	sp, err := s.repo.GetSprint(ctx, companyID, id)
	if err != nil {
		return nil, 0, err
	}
	recipients, err := s.assignees(ctx, sp)
	if err != nil {
		return nil, 0, err
	}

	sp, moved, err := s.repo.CompleteSprint(ctx, companyID, id)
	if err != nil {
		return nil, 0, err
	}

	s.notify(ctx, companyID, recipients, notification.Message{
		Kind:  notification.KindSprintCompleted,
		Title: fmt.Sprintf("Sprint %q completed", sp.Name),
		Body:  fmt.Sprintf("%d unfinished tasks moved to the backlog", moved),
		Link:  sprintLink(sp),
	})
	return sp, moved, nil
}

// CreateTask stores a new task and notifies its assignee unless the creator
// assigned it to themselves.
func (s *Service) CreateTask(ctx context.Context, actorID uuid.UUID, t *Task) error {
	if err := s.repo.CreateTask(ctx, t); err != nil {
		return err
	}
	if t.AssigneeID != nil && *t.AssigneeID != actorID {
		s.notifyAssigned(ctx, t)
	}
	return nil
}

// UpdateTask applies upd and notifies a newly assigned user.
func (s *Service) UpdateTask(ctx context.Context, actorID, companyID, id uuid.UUID, upd TaskUpdate) (*Task, error) {
	before, err := s.repo.GetTask(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	t, err := s.repo.UpdateTask(ctx, companyID, id, upd)
	if err != nil {
		return nil, err
	}

	reassigned := t.AssigneeID != nil &&
		(before.AssigneeID == nil || *before.AssigneeID != *t.AssigneeID)
	if reassigned && *t.AssigneeID != actorID {
		s.notifyAssigned(ctx, t)
	}
	return t, nil
}

// AdvanceLifecycle completes Active sprints that ended before now's day and
// starts Planning sprints whose start day has arrived. It returns how many
// sprints were completed and started.
func (s *Service) AdvanceLifecycle(ctx context.Context, now time.Time) (completed, started int, err error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	ended, err := s.repo.EndedSprints(ctx, today)
	if err != nil {
		return 0, 0, err
	}
	for _, sp := range ended {
		if _, _, err := s.CompleteSprint(ctx, sp.CompanyID, sp.ID); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return completed, started, fmt.Errorf("completing sprint %s: %w", sp.ID, err)
		}
		completed++
		slog.Info("sprint auto-completed", "sprintId", sp.ID, "projectId", sp.ProjectID)
	}

	startable, err := s.repo.StartableSprints(ctx, today)
	if err != nil {
		return completed, started, err
	}
	for _, sp := range startable {
		if _, err := s.StartSprint(ctx, sp.CompanyID, sp.ID); err != nil {
			// Another sprint of the same project started first.
			if errors.Is(err, ErrActiveSprintExists) || errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return completed, started, fmt.Errorf("starting sprint %s: %w", sp.ID, err)
		}
		started++
		slog.Info("sprint auto-started", "sprintId", sp.ID, "projectId", sp.ProjectID)
	}

	return completed, started, nil
}

func (s *Service) assignees(ctx context.Context, sp *Sprint) ([]uuid.UUID, error) {
	tasks, err := s.repo.ListTasks(ctx, sp.CompanyID, TaskFilter{SprintID: &sp.ID})
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, t := range tasks {
		if t.AssigneeID != nil && !seen[*t.AssigneeID] {
			seen[*t.AssigneeID] = true
			ids = append(ids, *t.AssigneeID)
		}
	}
	return ids, nil
}

func (s *Service) notifyAssignees(ctx context.Context, sp *Sprint, msg notification.Message) {
	recipients, err := s.assignees(ctx, sp)
	if err != nil {
		slog.Warn("failed to collect sprint assignees", "sprintId", sp.ID, "error", err)
		return
	}
	s.notify(ctx, sp.CompanyID, recipients, msg)
}

func (s *Service) notifyAssigned(ctx context.Context, t *Task) {
	s.notify(ctx, t.CompanyID, []uuid.UUID{*t.AssigneeID}, notification.Message{
		Kind:  notification.KindTaskAssigned,
		Title: "You were assigned a task",
		Body:  t.Title,
		Link:  "/tasks/" + t.ID.String(),
	})
}

// notify logs delivery failures; the triggering change is already committed.
func (s *Service) notify(ctx context.Context, companyID uuid.UUID, userIDs []uuid.UUID, msg notification.Message) {
	if err := s.notifier.Notify(ctx, companyID, userIDs, msg); err != nil {
		slog.Warn("failed to send notification", "kind", msg.Kind, "error", err)
	}
}

func sprintLink(sp *Sprint) string {
	return "/projects/" + sp.ProjectID.String() + "/sprints/" + sp.ID.String()
}
