// Package dashboard derives task views: overdue and due-soon
// classification, filter buckets, a deterministic sort order and
// aggregate counts. Everything is a pure function over a task slice
// and a reference date; deadlines compare date-only.
package dashboard

import (
	"sort"

	"github.com/starford/ansuz/internal/models"
)

// Filter selects one derived task bucket.
type Filter string

const (
	FilterPending   Filter = "pending"
	FilterDueSoon   Filter = "due_soon"
	FilterOverdue   Filter = "overdue"
	FilterCompleted Filter = "completed"
)

// dueSoonWindowDays is the inclusive look-ahead for due-soon tasks.
const dueSoonWindowDays = 7

// IsOverdue reports whether a pending task's deadline lies strictly
// before today.
func IsOverdue(t models.Task, today models.Date) bool {
	if t.Completed() || t.Deadline == nil {
		return false
	}
	return t.Deadline.Before(today)
}

// IsDueSoon reports whether a pending task's deadline falls between
// today and today+7 days, both inclusive.
func IsDueSoon(t models.Task, today models.Date) bool {
	if t.Completed() || t.Deadline == nil {
		return false
	}
	d := *t.Deadline
	return !d.Before(today) && !d.After(today.AddDays(dueSoonWindowDays))
}

// Apply returns the tasks matching the filter. Overdue and DueSoon are
// subsets of Pending; a task without a deadline can only appear under
// Pending or Completed.
func Apply(tasks []models.Task, f Filter, today models.Date) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		switch f {
		case FilterPending:
			if !t.Completed() {
				out = append(out, t)
			}
		case FilterDueSoon:
			if IsDueSoon(t, today) {
				out = append(out, t)
			}
		case FilterOverdue:
			if IsOverdue(t, today) {
				out = append(out, t)
			}
		case FilterCompleted:
			if t.Completed() {
				out = append(out, t)
			}
		}
	}
	return out
}

// Less is the dashboard ordering. It is a strict weak order with ties
// broken by id, so any two distinct tasks compare consistently:
//  1. pending tasks sort before completed ones; completed tasks order
//     among themselves by id descending, deadlines ignored;
//  2. among pending tasks, overdue before non-overdue;
//  3. deadline-bearing tasks by deadline ascending, and always before
//     tasks without a deadline;
//  4. remaining ties by id descending.
func Less(a, b models.Task, today models.Date) bool {
	if a.Completed() != b.Completed() {
		return !a.Completed()
	}
	if a.Completed() {
		return a.ID > b.ID
	}

	ao, bo := IsOverdue(a, today), IsOverdue(b, today)
	if ao != bo {
		return ao
	}

	switch {
	case a.Deadline != nil && b.Deadline == nil:
		return true
	case a.Deadline == nil && b.Deadline != nil:
		return false
	case a.Deadline != nil && b.Deadline != nil:
		if a.Deadline.Before(*b.Deadline) {
			return true
		}
		if b.Deadline.Before(*a.Deadline) {
			return false
		}
	}
	return a.ID > b.ID
}

// Sort orders tasks by Less without mutating the input.
func Sort(tasks []models.Task, today models.Date) []models.Task {
	out := append([]models.Task(nil), tasks...)
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j], today) })
	return out
}

// Counts holds the size of every filter bucket.
type Counts struct {
	Pending   int `json:"pending"`
	DueSoon   int `json:"due_soon"`
	Overdue   int `json:"overdue"`
	Completed int `json:"completed"`
}

// Count tallies all buckets in one pass.
func Count(tasks []models.Task, today models.Date) Counts {
	var c Counts
	for _, t := range tasks {
		if t.Completed() {
			c.Completed++
			continue
		}
		c.Pending++
		if IsOverdue(t, today) {
			c.Overdue++
		}
		if IsDueSoon(t, today) {
			c.DueSoon++
		}
	}
	return c
}
