package views

import (
	"sort"
	"strings"
	"time"

	"github.com/kortlane/ticktick-mcp/internal/ticktick"
)

// Engine computes derived task views over an in-memory task list. All methods
// are pure with respect to their input slice and carry no network dependency;
// fetching the task set is the caller's job.
//
// Date boundaries are evaluated against calendar dates in the engine's
// configured zone, never the ambient system zone, so "due today" means the
// same thing regardless of where the process runs.
type Engine struct {
	loc *time.Location

	// now is swapped out in tests for deterministic date boundaries.
	now func() time.Time
}

// NewEngine creates an engine evaluating dates in loc. A nil loc selects UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc, now: time.Now}
}

// today returns the current calendar date at midnight in the engine's zone.
func (e *Engine) today() time.Time {
	y, m, d := e.now().In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
}

// dueDay returns the task's due calendar date at midnight in the engine's
// zone, or ok=false when the task has no (parseable) due date.
func (e *Engine) dueDay(t ticktick.Task) (time.Time, bool) {
	due, ok := t.Due(e.loc)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := due.In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc), true
}

// All returns every task, sorted by the standard view ordering.
func (e *Engine) All(tasks []ticktick.Task) []ticktick.Task {
	return e.filter(tasks, func(ticktick.Task) bool { return true })
}

// ByPriority returns tasks whose priority equals p exactly.
func (e *Engine) ByPriority(tasks []ticktick.Task, p ticktick.Priority) []ticktick.Task {
	return e.filter(tasks, func(t ticktick.Task) bool { return t.Priority == p })
}

// DueToday returns tasks whose due date falls on today's calendar date.
// Tasks without a due date never qualify.
func (e *Engine) DueToday(tasks []ticktick.Task) []ticktick.Task {
	return e.DueInDays(tasks, 0)
}

// DueTomorrow returns tasks due on tomorrow's calendar date.
func (e *Engine) DueTomorrow(tasks []ticktick.Task) []ticktick.Task {
	return e.DueInDays(tasks, 1)
}

// DueInDays returns tasks whose due calendar date is exactly n days from
// today.
func (e *Engine) DueInDays(tasks []ticktick.Task, n int) []ticktick.Task {
	target := e.today().AddDate(0, 0, n)
	return e.filter(tasks, func(t ticktick.Task) bool {
		day, ok := e.dueDay(t)
		return ok && day.Equal(target)
	})
}

// DueThisWeek returns tasks due in [today, today+7): today through the sixth
// day out, exclusive of the seven-day boundary.
func (e *Engine) DueThisWeek(tasks []ticktick.Task) []ticktick.Task {
	start := e.today()
	end := start.AddDate(0, 0, 7)
	return e.filter(tasks, func(t ticktick.Task) bool {
		day, ok := e.dueDay(t)
		return ok && !day.Before(start) && day.Before(end)
	})
}

// Overdue returns open tasks whose due calendar date is strictly before
// today. A completed task past its due date is not overdue.
func (e *Engine) Overdue(tasks []ticktick.Task) []ticktick.Task {
	return e.filter(tasks, e.isOverdue)
}

func (e *Engine) isOverdue(t ticktick.Task) bool {
	if !t.Open() {
		return false
	}
	day, ok := e.dueDay(t)
	return ok && day.Before(e.today())
}

// Search returns tasks where term matches the title, content or any subtask
// title, case-insensitively.
func (e *Engine) Search(tasks []ticktick.Task, term string) []ticktick.Task {
	needle := strings.ToLower(term)
	return e.filter(tasks, func(t ticktick.Task) bool {
		if strings.Contains(strings.ToLower(t.Title), needle) {
			return true
		}
		if strings.Contains(strings.ToLower(t.Content), needle) {
			return true
		}
		for _, item := range t.Items {
			if strings.Contains(strings.ToLower(item.Title), needle) {
				return true
			}
		}
		return false
	})
}

// Engaged returns the GTD "engaged" set: open tasks that are high priority,
// due today, or overdue.
func (e *Engine) Engaged(tasks []ticktick.Task) []ticktick.Task {
	return e.filter(tasks, e.isEngaged)
}

func (e *Engine) isEngaged(t ticktick.Task) bool {
	if !t.Open() {
		return false
	}
	if t.Priority == ticktick.PriorityHigh {
		return true
	}
	day, ok := e.dueDay(t)
	if !ok {
		return false
	}
	today := e.today()
	return day.Equal(today) || day.Before(today)
}

// Next returns the GTD "next" set: open tasks that are not engaged and are
// medium priority or due tomorrow.
func (e *Engine) Next(tasks []ticktick.Task) []ticktick.Task {
	tomorrow := e.today().AddDate(0, 0, 1)
	return e.filter(tasks, func(t ticktick.Task) bool {
		if !t.Open() || e.isEngaged(t) {
			return false
		}
		if t.Priority == ticktick.PriorityMedium {
			return true
		}
		day, ok := e.dueDay(t)
		return ok && day.Equal(tomorrow)
	})
}

// filter applies pred and returns the matches in the standard view ordering:
// due date ascending with undated tasks last, then priority descending. The
// sort is stable, so equal keys keep their fetch order.
func (e *Engine) filter(tasks []ticktick.Task, pred func(ticktick.Task) bool) []ticktick.Task {
	out := make([]ticktick.Task, 0, len(tasks))
	for _, t := range tasks {
		if pred(t) {
			out = append(out, t)
		}
	}
	e.sortTasks(out)
	return out
}

func (e *Engine) sortTasks(tasks []ticktick.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		di, iOK := tasks[i].Due(e.loc)
		dj, jOK := tasks[j].Due(e.loc)
		switch {
		case iOK && !jOK:
			return true
		case !iOK && jOK:
			return false
		case iOK && jOK && !di.Equal(dj):
			return di.Before(dj)
		}
		return tasks[i].Priority > tasks[j].Priority
	})
}
