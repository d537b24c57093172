package batch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kortlane/ticktick-mcp/internal/ticktick"
)

func TestParseTaskSpecs(t *testing.T) {
	tests := []struct {
		name    string
		param   interface{}
		want    []ticktick.TaskInput
		wantErr bool
	}{
		{
			name:    "nil",
			param:   nil,
			wantErr: true,
		},
		{
			name:    "not an array",
			param:   "a task",
			wantErr: true,
		},
		{
			name:    "empty array",
			param:   []interface{}{},
			wantErr: true,
		},
		{
			name:    "element not an object",
			param:   []interface{}{"a task"},
			wantErr: true,
		},
		{
			name: "priority not a number",
			param: []interface{}{
				map[string]interface{}{"title": "x", "project_id": "p1", "priority": "high"},
			},
			wantErr: true,
		},
		{
			name: "minimal task",
			param: []interface{}{
				map[string]interface{}{"title": "Buy milk", "project_id": "p1"},
			},
			want: []ticktick.TaskInput{
				{Title: "Buy milk", ProjectID: "p1"},
			},
		},
		{
			name: "all fields",
			param: []interface{}{
				map[string]interface{}{
					"title":      "Report",
					"project_id": "p1",
					"content":    "quarterly numbers",
					"start_date": "2026-08-25T09:00:00+0000",
					"due_date":   "2026-08-25T17:00:00+0000",
					"priority":   float64(5),
					"is_all_day": true,
				},
			},
			want: []ticktick.TaskInput{
				{
					Title:     "Report",
					ProjectID: "p1",
					Content:   "quarterly numbers",
					StartDate: "2026-08-25T09:00:00+0000",
					DueDate:   "2026-08-25T17:00:00+0000",
					Priority:  ticktick.PriorityHigh,
					IsAllDay:  true,
				},
			},
		},
		{
			name: "multiple tasks keep order",
			param: []interface{}{
				map[string]interface{}{"title": "first", "project_id": "p1"},
				map[string]interface{}{"title": "second", "project_id": "p2"},
			},
			want: []ticktick.TaskInput{
				{Title: "first", ProjectID: "p1"},
				{Title: "second", ProjectID: "p2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskSpecs(tt.param)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d specs, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("spec[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFormatOutcomes(t *testing.T) {
	outcomes := []ticktick.BatchOutcome{
		{Index: 0, Title: "first", Task: &ticktick.Task{ID: "t1", ProjectID: "p1", Title: "first"}},
		{Index: 1, Title: "second", Err: errors.New("invalid_arguments: task title is required")},
		{Index: 2, Title: "third", Task: &ticktick.Task{ID: "t3", ProjectID: "p1", Title: "third"}},
	}

	var report Report
	if err := json.Unmarshal([]byte(FormatOutcomes(outcomes)), &report); err != nil {
		t.Fatalf("FormatOutcomes produced invalid JSON: %v", err)
	}

	if report.Total != 3 || report.Successful != 2 || report.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", report.Total, report.Successful, report.Failed)
	}
	if len(report.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(report.Results))
	}

	if report.Results[0].Status != "success" || report.Results[0].Task == nil {
		t.Errorf("result[0] = %+v, want success with task", report.Results[0])
	}
	if report.Results[1].Status != "error" || report.Results[1].Error == "" {
		t.Errorf("result[1] = %+v, want error with message", report.Results[1])
	}
	if report.Results[1].Task != nil {
		t.Error("failed result carries a task")
	}
	if report.Results[2].Index != 2 {
		t.Errorf("result[2].Index = %d, want 2", report.Results[2].Index)
	}
}
