package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/auth"
	"github.com/syncup/syncup/internal/notification"
)

// MaxCalendarDays bounds the range of an availability calendar.
const MaxCalendarDays = 92

var (
	// ErrInvalidRange is returned when a start date is after the end date or a
	// calendar range is too large.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrInvalidType is returned for an unknown leave type.
	ErrInvalidType = errors.New("invalid leave type")
)

// Request is a leave request submitted by a user.
type Request struct {
	StartDate time.Time
	EndDate   time.Time
	Type      string
	Reason    string
}

// Absence is one user away on a given day.
type Absence struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	PlanID uuid.UUID `json:"planId"`
}

// DayAvailability lists the users away on Date.
type DayAvailability struct {
	Date time.Time `json:"date"`
	Away []Absence `json:"away"`
}

// Service implements the leave request workflow.
type Service struct {
	repo     Repository
	notifier notification.Sender
	now      func() time.Time
}

// NewService creates a new leave Service.
func NewService(repo Repository, notifier notification.Sender) *Service {
	return &Service{repo: repo, notifier: notifier, now: time.Now}
}

// Repo exposes the underlying repository for plain reads.
func (s *Service) Repo() Repository {
	return s.repo
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Today returns the current UTC calendar day.
func (s *Service) Today() time.Time {
	return day(s.now())
}

// Request files a pending leave plan for the caller.
func (s *Service) Request(ctx context.Context, id *auth.Identity, req Request) (*Plan, error) {
	start, end := day(req.StartDate), day(req.EndDate)
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	if !slices.Contains(Types, req.Type) {
		return nil, ErrInvalidType
	}

	p := &Plan{
		CompanyID: id.CompanyID,
		UserID:    id.UserID,
		UserName:  id.Name,
		StartDate: start,
		EndDate:   end,
		Type:      req.Type,
		Reason:    strings.TrimSpace(req.Reason),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Cancel withdraws one of the caller's plans before it starts.
func (s *Service) Cancel(ctx context.Context, id *auth.Identity, planID uuid.UUID) (*Plan, error) {
	return s.repo.Cancel(ctx, id.CompanyID, id.UserID, planID, day(s.now()))
}

// Review approves or rejects a pending plan and notifies the requester.
func (s *Service) Review(ctx context.Context, reviewer *auth.Identity, planID uuid.UUID, approve bool) (*Plan, error) {
	status := StatusRejected
	if approve {
		status = StatusApproved
	}

	p, err := s.repo.Review(ctx, reviewer.CompanyID, planID, reviewer.UserID, status)
	if err != nil {
		return nil, err
	}

	msg := notification.Message{
		Kind: notification.KindLeaveReviewed,
		Title: fmt.Sprintf("Your %s leave %s was %s", p.Type,
			formatRange(p.StartDate, p.EndDate), p.Status),
		Body: "Reviewed by " + reviewer.Name,
		Link: "/leave",
	}
	if err := s.notifier.Notify(ctx, p.CompanyID, []uuid.UUID{p.UserID}, msg); err != nil {
		slog.Warn("failed to send notification", "kind", msg.Kind, "planId", p.ID, "error", err)
	}
	return p, nil
}

// Availability returns, for every day in [from, to], the users on approved leave.
func (s *Service) Availability(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]DayAvailability, error) {
	from, to = day(from), day(to)
	if from.After(to) || int(to.Sub(from).Hours()/24) >= MaxCalendarDays {
		return nil, ErrInvalidRange
	}

	plans, err := s.repo.List(ctx, companyID, Filter{Status: StatusApproved, From: from, To: to})
	if err != nil {
		return nil, err
	}
	return Calendar(plans, from, to), nil
}

// WhoIsOut returns the users on approved leave on date.
func (s *Service) WhoIsOut(ctx context.Context, companyID uuid.UUID, date time.Time) ([]Absence, error) {
	days, err := s.Availability(ctx, companyID, date, date)
	if err != nil {
		return nil, err
	}
	return days[0].Away, nil
}

// Calendar lays plans out per day from from to to inclusive. Days without
// absences carry an empty list.
func Calendar(plans []Plan, from, to time.Time) []DayAvailability {
	var days []DayAvailability
	for d := day(from); !d.After(day(to)); d = d.AddDate(0, 0, 1) {
		away := []Absence{}
		for i := range plans {
			if plans[i].Covers(d) {
				away = append(away, Absence{
					UserID: plans[i].UserID,
					Name:   plans[i].UserName,
					Type:   plans[i].Type,
					PlanID: plans[i].ID,
				})
			}
		}
		days = append(days, DayAvailability{Date: d, Away: away})
	}
	return days
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatRange(start, end time.Time) string {
	if start.Equal(end) {
		return "on " + start.Format(time.DateOnly)
	}
	return fmt.Sprintf("from %s to %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
}
