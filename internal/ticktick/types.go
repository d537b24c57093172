package ticktick

import (
	"fmt"
	"time"
)

// Priority levels as defined by the TickTick API.
type Priority int

const (
	PriorityNone   Priority = 0
	PriorityLow    Priority = 1
	PriorityMedium Priority = 3
	PriorityHigh   Priority = 5
)

// ValidPriority reports whether p is one of the priority values the API accepts.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// String returns the human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityNone:
		return "None"
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// Task status values as defined by the TickTick API.
const (
	StatusOpen      = 0
	StatusCompleted = 2
)

// Checklist item status values. Note these differ from task status values.
const (
	ItemStatusOpen = 0
	ItemStatusDone = 1
)

// Project represents a TickTick project. Fields are passed through from the
// remote API unchanged.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	ViewMode string `json:"viewMode,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Closed   bool   `json:"closed,omitempty"`
}

// ChecklistItem is a subtask owned by its parent task. Items have no identity
// outside the parent; deleting the parent removes them.
type ChecklistItem struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
}

// Task represents a TickTick task.
type Task struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	Title     string          `json:"title"`
	Content   string          `json:"content,omitempty"`
	Desc      string          `json:"desc,omitempty"`
	IsAllDay  bool            `json:"isAllDay,omitempty"`
	StartDate string          `json:"startDate,omitempty"`
	DueDate   string          `json:"dueDate,omitempty"`
	TimeZone  string          `json:"timeZone,omitempty"`
	Priority  Priority        `json:"priority"`
	Status    int             `json:"status"`
	ParentID  string          `json:"parentId,omitempty"`
	Items     []ChecklistItem `json:"items,omitempty"`
}

// Open reports whether the task has not been completed.
func (t Task) Open() bool {
	return t.Status != StatusCompleted
}

// dateLayouts are the due date formats observed from the TickTick API, most
// specific first. The API emits "2006-01-02T15:04:05.000+0000"; RFC 3339 is
// accepted for tolerance with caller-supplied dates echoed back.
var dateLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses a TickTick timestamp. Timestamps without an explicit offset
// are interpreted in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Due returns the parsed due date, or ok=false if the task has none or it
// cannot be parsed.
func (t Task) Due(loc *time.Location) (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	due, err := ParseDate(t.DueDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return due, true
}

// ProjectData is a project together with its uncompleted tasks and kanban
// columns, as returned by GET /project/{id}/data.
type ProjectData struct {
	Project Project  `json:"project"`
	Tasks   []Task   `json:"tasks"`
	Columns []Column `json:"columns,omitempty"`
}

// Column is a kanban column within a project.
type Column struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
}

// ProjectInput holds the fields for creating or updating a project.
type ProjectInput struct {
	Name     string `json:"name,omitempty"`
	Color    string `json:"color,omitempty"`
	ViewMode string `json:"viewMode,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// TaskInput holds the fields for creating a task. Title and ProjectID are
// required; everything else is optional.
type TaskInput struct {
	Title     string
	ProjectID string
	Content   string
	StartDate string
	DueDate   string
	Priority  Priority
	IsAllDay  bool
}

// TaskUpdate holds a partial update for an existing task. Nil fields are left
// untouched on the remote side; the API merges supplied fields into the stored
// task rather than replacing it.
type TaskUpdate struct {
	Title     *string
	Content   *string
	Priority  *Priority
	StartDate *string
	DueDate   *string
}
