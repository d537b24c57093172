package batch

import (
	"encoding/json"
	"fmt"

	"github.com/kortlane/ticktick-mcp/internal/ticktick"
)

// Result represents the outcome of a single item in a batch operation.
type Result struct {
	Index  int            `json:"index"`
	Title  string         `json:"title"`
	Status string         `json:"status"` // "success" or "error"
	Task   *ticktick.Task `json:"task,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Report represents the aggregated results of a batch operation.
type Report struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseTaskSpecs parses the "tasks" tool argument into task inputs. Each
// element must be an object with at least title and project_id; optional
// fields mirror the single-task creation tool. Parse errors reject the whole
// batch before any remote call is made.
func ParseTaskSpecs(param interface{}) ([]ticktick.TaskInput, error) {
	if param == nil {
		return nil, fmt.Errorf("tasks is required")
	}

	items, ok := param.([]interface{})
	if !ok {
		return nil, fmt.Errorf("tasks must be an array of task objects")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("tasks cannot be empty")
	}

	specs := make([]ticktick.TaskInput, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("tasks[%d] must be an object", i)
		}

		spec := ticktick.TaskInput{
			Title:     stringField(obj, "title"),
			ProjectID: stringField(obj, "project_id"),
			Content:   stringField(obj, "content"),
			StartDate: stringField(obj, "start_date"),
			DueDate:   stringField(obj, "due_date"),
		}

		if v, present := obj["priority"]; present {
			n, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("tasks[%d].priority must be a number", i)
			}
			spec.Priority = ticktick.Priority(int(n))
		}
		if v, ok := obj["is_all_day"].(bool); ok {
			spec.IsAllDay = v
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

// FormatOutcomes renders per-item batch outcomes as an indented JSON report.
// The report keeps the input order and counts successes and failures.
func FormatOutcomes(outcomes []ticktick.BatchOutcome) string {
	report := Report{
		Total:   len(outcomes),
		Results: make([]Result, 0, len(outcomes)),
	}

	for _, o := range outcomes {
		r := Result{Index: o.Index, Title: o.Title}
		if o.Err != nil {
			r.Status = "error"
			r.Error = o.Err.Error()
			report.Failed++
		} else {
			r.Status = "success"
			r.Task = o.Task
			report.Successful++
		}
		report.Results = append(report.Results, r)
	}

	jsonBytes, _ := json.MarshalIndent(report, "", "  ")
	return string(jsonBytes)
}

func stringField(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}
