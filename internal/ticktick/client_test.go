package ticktick

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		AccessToken:     "test-token",
		BaseURL:         srv.URL,
		MinRequestDelay: time.Nanosecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAccessToken(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuthentication))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TICKTICK_CLIENT_ID", "cid")
	t.Setenv("TICKTICK_CLIENT_SECRET", "csecret")
	t.Setenv("TICKTICK_ACCESS_TOKEN", "atoken")
	t.Setenv("TICKTICK_REFRESH_TOKEN", "rtoken")
	t.Setenv("TICKTICK_RATE_LIMIT_DELAY", "1.5")

	cfg := ConfigFromEnv()
	assert.Equal(t, "cid", cfg.ClientID)
	assert.Equal(t, "csecret", cfg.ClientSecret)
	assert.Equal(t, "atoken", cfg.AccessToken)
	assert.Equal(t, "rtoken", cfg.RefreshToken)
	assert.Equal(t, 1500*time.Millisecond, cfg.MinRequestDelay)
	assert.True(t, cfg.HasCredentials())
}

func TestConfigFromEnvIgnoresInvalidDelay(t *testing.T) {
	t.Setenv("TICKTICK_RATE_LIMIT_DELAY", "not-a-number")
	cfg := ConfigFromEnv()
	assert.Equal(t, time.Duration(0), cfg.MinRequestDelay)
}

func TestValidateTaskInput(t *testing.T) {
	tests := []struct {
		name    string
		input   TaskInput
		wantErr bool
	}{
		{
			name:  "valid minimal",
			input: TaskInput{Title: "Buy milk", ProjectID: "p1"},
		},
		{
			name:  "valid with dates and priority",
			input: TaskInput{Title: "Report", ProjectID: "p1", DueDate: "2026-08-25T17:00:00+0000", Priority: PriorityHigh},
		},
		{
			name:    "missing title",
			input:   TaskInput{ProjectID: "p1"},
			wantErr: true,
		},
		{
			name:    "whitespace title",
			input:   TaskInput{Title: "   ", ProjectID: "p1"},
			wantErr: true,
		},
		{
			name:    "missing project",
			input:   TaskInput{Title: "Buy milk"},
			wantErr: true,
		},
		{
			name:    "invalid priority",
			input:   TaskInput{Title: "Buy milk", ProjectID: "p1", Priority: 2},
			wantErr: true,
		},
		{
			name:    "unparseable due date",
			input:   TaskInput{Title: "Buy milk", ProjectID: "p1", DueDate: "next tuesday"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTaskInput(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, KindInvalidArguments))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCreateProjectAppliesDefaults(t *testing.T) {
	var got ProjectInput
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"id":"p1","name":"Inbox"}`)
	}))

	_, err := client.CreateProject(context.Background(), ProjectInput{Name: "Inbox"})
	require.NoError(t, err)
	assert.Equal(t, "#F18181", got.Color)
	assert.Equal(t, "list", got.ViewMode)
	assert.Equal(t, "TASK", got.Kind)
}

func TestCreateProjectRequiresName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.CreateProject(context.Background(), ProjectInput{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidArguments))
}

func TestUpdateTaskSendsOnlyChangedFields(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task/t1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"New title"}`)
	}))

	title := "New title"
	_, err := client.UpdateTask(context.Background(), "t1", "p1", TaskUpdate{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "t1", got["id"])
	assert.Equal(t, "p1", got["projectId"])
	assert.Equal(t, "New title", got["title"])
	assert.NotContains(t, got, "content")
	assert.NotContains(t, got, "priority")
	assert.NotContains(t, got, "dueDate")
}

func TestUpdateTaskRejectsEmptyTitle(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	empty := "  "
	_, err := client.UpdateTask(context.Background(), "t1", "p1", TaskUpdate{Title: &empty})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidArguments))
}

func TestCreateSubtaskCarriesParent(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"id":"t2","projectId":"p1","parentId":"t1","title":"Step one"}`)
	}))

	task, err := client.CreateSubtask(context.Background(), "t1", "p1", "Step one", "", PriorityNone)
	require.NoError(t, err)
	assert.Equal(t, "t1", got["parentId"])
	assert.Equal(t, "t1", task.ParentID)
}

func TestBatchCreateTasksReportsPerItemOutcomes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if payload["title"] == "rejected upstream" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"bad task"}`)
			return
		}
		fmt.Fprintf(w, `{"id":"t-%s","projectId":"p1","title":%q}`, payload["title"], payload["title"])
	}))

	specs := []TaskInput{
		{Title: "first", ProjectID: "p1"},
		{Title: "", ProjectID: "p1"},
		{Title: "rejected upstream", ProjectID: "p1"},
		{Title: "last", ProjectID: "p1"},
	}

	outcomes := client.BatchCreateTasks(context.Background(), specs)
	require.Len(t, outcomes, len(specs))

	assert.NoError(t, outcomes[0].Err)
	require.NotNil(t, outcomes[0].Task)
	assert.Equal(t, "first", outcomes[0].Task.Title)

	// Local validation failure does not abort the batch.
	require.Error(t, outcomes[1].Err)
	assert.True(t, IsKind(outcomes[1].Err, KindInvalidArguments))

	require.Error(t, outcomes[2].Err)
	assert.True(t, IsKind(outcomes[2].Err, KindInvalidRequest))

	// Items after a failure are still attempted.
	assert.NoError(t, outcomes[3].Err)
	assert.Equal(t, 3, outcomes[3].Index)
}

func TestAllTasksSkipsClosedAndVanishedProjects(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/project":
			fmt.Fprint(w, `[
				{"id":"p1","name":"Open"},
				{"id":"p2","name":"Closed","closed":true},
				{"id":"p3","name":"Vanished"}
			]`)
		case r.URL.Path == "/project/p1/data":
			fmt.Fprint(w, `{"project":{"id":"p1","name":"Open"},"tasks":[{"id":"t1","projectId":"p1","title":"Task one"}]}`)
		case r.URL.Path == "/project/p3/data":
			w.WriteHeader(http.StatusNotFound)
		case strings.HasPrefix(r.URL.Path, "/project/p2"):
			t.Errorf("closed project must not be fetched: %s", r.URL.Path)
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
		}
	}))

	tasks, err := client.AllTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Kind: KindRateLimit, Message: "rate limited", Detail: "slow down"}
	assert.Equal(t, "rate_limit: rate limited (slow down)", err.Error())

	bare := &Error{Kind: KindNotFound, Message: "resource not found"}
	assert.Equal(t, "not_found: resource not found", bare.Error())
}

func TestKindOfDefaultsToUpstream(t *testing.T) {
	assert.Equal(t, KindUpstream, KindOf(fmt.Errorf("plain error")))
	assert.Equal(t, KindNotFound, KindOf(&Error{Kind: KindNotFound}))
}
