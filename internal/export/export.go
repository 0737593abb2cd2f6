// Package export writes company data as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/syncup/syncup/internal/leave"
	"github.com/syncup/syncup/internal/report"
)

// MaxRangeDays bounds the date range of one export.
const MaxRangeDays = 366

// ErrInvalidRange is returned for an empty, inverted or oversized range.
var ErrInvalidRange = fmt.Errorf("invalid export range: at most %d days", MaxRangeDays)

// ReportLister lists daily reports.
type ReportLister interface {
	List(ctx context.Context, companyID uuid.UUID, filter report.Filter) ([]report.Report, error)
}

// LeaveLister lists leave plans.
type LeaveLister interface {
	List(ctx context.Context, companyID uuid.UUID, filter leave.Filter) ([]leave.Plan, error)
}

// Exporter writes CSV exports of a company's reports and leave plans.
type Exporter struct {
	reports ReportLister
	leave   LeaveLister
}

// New creates a new Exporter.
func New(reports ReportLister, leave LeaveLister) *Exporter {
	return &Exporter{reports: reports, leave: leave}
}

// Filename returns the download name of an export of kind over [from, to].
func Filename(kind string, from, to time.Time) string {
	return fmt.Sprintf("%s_%s_%s.csv", kind, from.Format(time.DateOnly), to.Format(time.DateOnly))
}

// Reports writes the daily reports submitted in [from, to].
func (e *Exporter) Reports(ctx context.Context, w io.Writer, companyID uuid.UUID, from, to time.Time) error {
	if err := checkRange(from, to); err != nil {
		return err
	}
	reports, err := e.reports.List(ctx, companyID, report.Filter{From: from, To: to})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "user", "yesterday", "today", "blockers"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range reports {
		err := cw.Write([]string{
			r.ReportDate.Format(time.DateOnly), r.UserName, r.Yesterday, r.Today, r.Blockers,
		})
		if err != nil {
			return fmt.Errorf("writing report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Leave writes the leave plans overlapping [from, to].
func (e *Exporter) Leave(ctx context.Context, w io.Writer, companyID uuid.UUID, from, to time.Time) error {
	if err := checkRange(from, to); err != nil {
		return err
	}
	plans, err := e.leave.List(ctx, companyID, leave.Filter{From: from, To: to})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"user", "type", "status", "start_date", "end_date", "days", "reason"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, p := range plans {
		err := cw.Write([]string{
			p.UserName, p.Type, p.Status,
			p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly),
			fmt.Sprint(p.Days()), p.Reason,
		})
		if err != nil {
			return fmt.Errorf("writing leave row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func checkRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() || from.After(to) || to.Sub(from) > MaxRangeDays*24*time.Hour {
		return ErrInvalidRange
	}
	return nil
}
