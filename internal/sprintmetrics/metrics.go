// Package sprintmetrics derives progress, health and capacity figures from a
// sprint and its tasks. Every function is pure and takes the reference time
// explicitly.
package sprintmetrics

import (
	"math"
	"time"

	"github.com/syncup/syncup/internal/sprint"
)

// Health labels.
const (
	OnTrack  = "on_track"
	AtRisk   = "at_risk"
	OffTrack = "off_track"
)

const (
	overduePenalty    = 5
	maxOverduePenalty = 30
	reviewPenalty     = 10
	reviewThreshold   = 30 // percent of tasks in review
)

// HealthReport is the 0-100 health score of a sprint with the inputs that shaped it.
type HealthReport struct {
	Score          int
	Label          string
	TimeProgress   int
	CompletionRate int
	OverdueTasks   int
	InReviewTasks  int
}

// Summary bundles every metric of a sprint at a point in time.
type Summary struct {
	Progress       int
	CompletionRate int
	Health         HealthReport
	Velocity       int
	Capacity       int
	RemainingDays  int
	TotalTasks     int
	TaskCounts     map[string]int
	PointsByStatus map[string]int
}

// Progress returns elapsed time as a percentage: 0 before the start date,
// 100 from the end date on and linear in between. The timeline runs from
// midnight of the start date to midnight of the end date, the same day the
// ideal burndown line reaches zero. The lifecycle job closes the sprint one
// day later.
func Progress(s sprint.Sprint, now time.Time) int {
	start := dayStart(s.StartDate)
	end := dayStart(s.EndDate)

	if now.Before(start) {
		return 0
	}
	if !now.Before(end) {
		return 100
	}

	elapsed := now.Sub(start)
	total := end.Sub(start)
	return int(math.Round(float64(elapsed) / float64(total) * 100))
}

// CompletionRate returns the share of done tasks as a percentage. An empty list is 0.
func CompletionRate(tasks []sprint.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for i := range tasks {
		if tasks[i].IsDone() {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(tasks)) * 100))
}

// Health scores a sprint from 0 to 100. The score starts at 100 and loses
// half of the points by which time progress runs ahead of completion, 5 per
// overdue task (30 at most) and 10 when more than 30% of tasks sit in review.
// A completed sprint keeps its completion-based score with no time penalty.
func Health(s sprint.Sprint, tasks []sprint.Task, now time.Time) HealthReport {
	report := HealthReport{
		TimeProgress:   Progress(s, now),
		CompletionRate: CompletionRate(tasks),
	}
	if s.Status == sprint.StatusCompleted {
		report.TimeProgress = 100
	}

	today := dayStart(now)
	for i := range tasks {
		t := &tasks[i]
		if t.Status == sprint.TaskReview {
			report.InReviewTasks++
		}
		if !t.IsDone() && t.DueDate != nil && dayStart(*t.DueDate).Before(today) {
			report.OverdueTasks++
		}
	}

	score := 100.0
	if gap := report.TimeProgress - report.CompletionRate; gap > 0 && s.Status != sprint.StatusCompleted {
		score -= float64(gap) / 2
	}
	score -= float64(min(report.OverdueTasks*overduePenalty, maxOverduePenalty))
	if len(tasks) > 0 && report.InReviewTasks*100 > reviewThreshold*len(tasks) {
		score -= reviewPenalty
	}

	report.Score = int(math.Round(math.Max(0, math.Min(100, score))))
	report.Label = label(report.Score)
	return report
}

// Velocity sums the story points of done tasks.
func Velocity(tasks []sprint.Task) int {
	points := 0
	for i := range tasks {
		if tasks[i].IsDone() {
			points += tasks[i].StoryPoints
		}
	}
	return points
}

// Capacity sums the story points of all tasks.
func Capacity(tasks []sprint.Task) int {
	points := 0
	for i := range tasks {
		points += tasks[i].StoryPoints
	}
	return points
}

// PointsByStatus sums story points per task status. Every status is present.
func PointsByStatus(tasks []sprint.Task) map[string]int {
	out := make(map[string]int, len(sprint.TaskStatuses))
	for _, st := range sprint.TaskStatuses {
		out[st] = 0
	}
	for i := range tasks {
		out[tasks[i].Status] += tasks[i].StoryPoints
	}
	return out
}

// CountByStatus counts tasks per status. Every status is present.
func CountByStatus(tasks []sprint.Task) map[string]int {
	out := make(map[string]int, len(sprint.TaskStatuses))
	for _, st := range sprint.TaskStatuses {
		out[st] = 0
	}
	for i := range tasks {
		out[tasks[i].Status]++
	}
	return out
}

// RemainingDays returns the whole days left until the end date, never negative.
func RemainingDays(s sprint.Sprint, now time.Time) int {
	end := dayStart(s.EndDate)
	if !now.Before(end) {
		return 0
	}
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

// Summarize computes every metric of the sprint at now.
func Summarize(s sprint.Sprint, tasks []sprint.Task, now time.Time) Summary {
	return Summary{
		Progress:       Progress(s, now),
		CompletionRate: CompletionRate(tasks),
		Health:         Health(s, tasks, now),
		Velocity:       Velocity(tasks),
		Capacity:       Capacity(tasks),
		RemainingDays:  RemainingDays(s, now),
		TotalTasks:     len(tasks),
		TaskCounts:     CountByStatus(tasks),
		PointsByStatus: PointsByStatus(tasks),
	}
}

func label(score int) string {
	switch {
	case score >= 80:
		return OnTrack
	case score >= 50:
		return AtRisk
	default:
		return OffTrack
	}
}

// dayStart truncates t to midnight UTC of its calendar day.
func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
