package sprintmetrics

import (
	"math"
	"time"

	"github.com/syncup/syncup/internal/sprint"
)

// BurndownPoint is the remaining story points at the end of one sprint day.
// Actual is nil for days that have not happened yet.
type BurndownPoint struct {
	Date   time.Time
	Ideal  float64
	Actual *int
}

// Burndown returns one point per calendar day from the start to the end date.
// The ideal line falls linearly from capacity to zero; the actual line is
// capacity minus the points of tasks completed on or before that day. Done
// tasks without a completion time count from their last update.
func Burndown(s sprint.Sprint, tasks []sprint.Task, now time.Time) []BurndownPoint {
	start := dayStart(s.StartDate)
	end := dayStart(s.EndDate)
	if end.Before(start) {
		return []BurndownPoint{}
	}

	days := int(end.Sub(start).Hours()/24) + 1
	capacity := Capacity(tasks)
	today := dayStart(now)

	points := make([]BurndownPoint, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)

		ideal := 0.0
		if days > 1 {
			ideal = float64(capacity) * (1 - float64(i)/float64(days-1))
		}

		p := BurndownPoint{Date: day, Ideal: math.Round(ideal*100) / 100}
		if !day.After(today) {
			remaining := capacity - completedBy(tasks, day)
			p.Actual = &remaining
		}
		points = append(points, p)
	}
	return points
}

// completedBy sums the points of done tasks finished on or before day.
func completedBy(tasks []sprint.Task, day time.Time) int {
	total := 0
	for i := range tasks {
		t := &tasks[i]
		if !t.IsDone() {
			continue
		}
		finished := t.UpdatedAt
		if t.CompletedAt != nil {
			finished = *t.CompletedAt
		}
		if !dayStart(finished).After(day) {
			total += t.StoryPoints
		}
	}
	return total
}
