package ticktick

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kortlane/ticktick-mcp/internal/instrumentation"
	"github.com/kortlane/ticktick-mcp/internal/logging"
)

const (
	// DefaultBaseURL is the TickTick Open API v1 endpoint.
	DefaultBaseURL = "https://api.ticktick.com/open/v1"

	// DefaultTokenURL is the TickTick OAuth token endpoint.
	DefaultTokenURL = "https://ticktick.com/oauth/token"

	requestTimeout = 30 * time.Second
)

// Config holds the credentials and tuning knobs for a Client. All values are
// static for the process lifetime; only the token pair mutates, and only
// through the token manager.
type Config struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	BaseURL      string
	TokenURL     string
	// MinRequestDelay is the pacing gate spacing. Zero selects the default.
	MinRequestDelay time.Duration
}

// ConfigFromEnv reads configuration from TICKTICK_* environment variables.
func ConfigFromEnv() Config {
	cfg := Config{
		ClientID:     os.Getenv("TICKTICK_CLIENT_ID"),
		ClientSecret: os.Getenv("TICKTICK_CLIENT_SECRET"),
		AccessToken:  os.Getenv("TICKTICK_ACCESS_TOKEN"),
		RefreshToken: os.Getenv("TICKTICK_REFRESH_TOKEN"),
		BaseURL:      os.Getenv("TICKTICK_BASE_URL"),
		TokenURL:     os.Getenv("TICKTICK_TOKEN_URL"),
	}
	if v := os.Getenv("TICKTICK_RATE_LIMIT_DELAY"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			cfg.MinRequestDelay = time.Duration(secs * float64(time.Second))
		}
	}
	return cfg
}

// applyDefaults fills in defaulted fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.MinRequestDelay <= 0 {
		c.MinRequestDelay = DefaultMinRequestDelay
	}
}

// HasCredentials reports whether the config carries a usable token setup. Used
// by the readiness probe; no live check is performed.
func (c Config) HasCredentials() bool {
	return c.AccessToken != ""
}

// Client is the authenticated, rate-limited gateway to the TickTick API. It
// holds no task or project state: every operation reflects the remote system
// at call time.
type Client struct {
	cfg    Config
	tokens *tokenManager
	exec   *executor
	logger *slog.Logger
}

// NewClient creates a client from cfg. The access token is required; client
// id/secret and refresh token are only needed for automatic token refresh.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, NewError(KindAuthentication,
			"TICKTICK_ACCESS_TOKEN is not set; provide TickTick credentials before starting the server")
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithService(logger, "ticktick")

	httpClient := &http.Client{Timeout: requestTimeout}
	tokens := newTokenManager(cfg, httpClient, logger)

	return &Client{
		cfg:    cfg,
		tokens: tokens,
		exec:   newExecutor(cfg, tokens, httpClient, logger),
		logger: logger,
	}, nil
}

// HasCredentials reports whether the client was configured with a token.
func (c *Client) HasCredentials() bool {
	return c.cfg.HasCredentials()
}

// SetMetrics attaches a metrics recorder for API operation and token refresh
// counters. A nil recorder records nothing.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.exec.metrics = m
	c.tokens.metrics = m
}

// Projects lists all projects.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	body, err := c.exec.do(ctx, "list_projects", http.MethodGet, "/project", nil)
	if err != nil {
		return nil, err
	}
	var projects []Project
	if err := decode(body, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Project retrieves a single project by id.
func (c *Client) Project(ctx context.Context, projectID string) (*Project, error) {
	body, err := c.exec.do(ctx, "get_project", http.MethodGet, "/project/"+projectID, nil)
	if err != nil {
		return nil, err
	}
	var p Project
	if err := decode(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProjectData retrieves a project together with its uncompleted tasks and
// columns.
func (c *Client) ProjectData(ctx context.Context, projectID string) (*ProjectData, error) {
	body, err := c.exec.do(ctx, "get_project_data", http.MethodGet, "/project/"+projectID+"/data", nil)
	if err != nil {
		return nil, err
	}
	var pd ProjectData
	if err := decode(body, &pd); err != nil {
		return nil, err
	}
	return &pd, nil
}

// CreateProject creates a new project. Name is required; color, view mode and
// kind fall back to TickTick's conventions when empty.
func (c *Client) CreateProject(ctx context.Context, input ProjectInput) (*Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, NewError(KindInvalidArguments, "project name is required")
	}
	if input.Color == "" {
		input.Color = "#F18181"
	}
	if input.ViewMode == "" {
		input.ViewMode = "list"
	}
	if input.Kind == "" {
		input.Kind = "TASK"
	}
	body, err := c.exec.do(ctx, "create_project", http.MethodPost, "/project", input)
	if err != nil {
		return nil, err
	}
	var p Project
	if err := decode(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject updates the supplied fields of an existing project; empty
// fields keep their remote values.
func (c *Client) UpdateProject(ctx context.Context, projectID string, input ProjectInput) (*Project, error) {
	body, err := c.exec.do(ctx, "update_project", http.MethodPost, "/project/"+projectID, input)
	if err != nil {
		return nil, err
	}
	var p Project
	if err := decode(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject deletes a project and everything in it.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	_, err := c.exec.do(ctx, "delete_project", http.MethodDelete, "/project/"+projectID, nil)
	return err
}

// Task retrieves a single task.
func (c *Client) Task(ctx context.Context, projectID, taskID string) (*Task, error) {
	body, err := c.exec.do(ctx, "get_task", http.MethodGet, "/project/"+projectID+"/task/"+taskID, nil)
	if err != nil {
		return nil, err
	}
	var t Task
	if err := decode(body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a new task.
func (c *Client) CreateTask(ctx context.Context, input TaskInput) (*Task, error) {
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"title":     input.Title,
		"projectId": input.ProjectID,
		"priority":  input.Priority,
		"isAllDay":  input.IsAllDay,
	}
	if input.Content != "" {
		payload["content"] = input.Content
	}
	if input.StartDate != "" {
		payload["startDate"] = input.StartDate
	}
	if input.DueDate != "" {
		payload["dueDate"] = input.DueDate
	}
	body, err := c.exec.do(ctx, "create_task", http.MethodPost, "/task", payload)
	if err != nil {
		return nil, err
	}
	var t Task
	if err := decode(body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies a partial update to an existing task. Only the supplied
// fields change; the remote API merges them into the stored task.
func (c *Client) UpdateTask(ctx context.Context, taskID, projectID string, update TaskUpdate) (*Task, error) {
	if taskID == "" || projectID == "" {
		return nil, NewError(KindInvalidArguments, "task id and project id are required")
	}
	payload := map[string]any{
		"id":        taskID,
		"projectId": projectID,
	}
	if update.Title != nil {
		if strings.TrimSpace(*update.Title) == "" {
			return nil, NewError(KindInvalidArguments, "task title cannot be empty")
		}
		payload["title"] = *update.Title
	}
	if update.Content != nil {
		payload["content"] = *update.Content
	}
	if update.Priority != nil {
		if !ValidPriority(*update.Priority) {
			return nil, invalidPriorityError(*update.Priority)
		}
		payload["priority"] = *update.Priority
	}
	if update.StartDate != nil {
		payload["startDate"] = *update.StartDate
	}
	if update.DueDate != nil {
		payload["dueDate"] = *update.DueDate
	}
	body, err := c.exec.do(ctx, "update_task", http.MethodPost, "/task/"+taskID, payload)
	if err != nil {
		return nil, err
	}
	var t Task
	if err := decode(body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CompleteTask marks a task completed. Completing an already-completed task is
// not an error; the remote API treats the call as idempotent.
func (c *Client) CompleteTask(ctx context.Context, projectID, taskID string) error {
	_, err := c.exec.do(ctx, "complete_task", http.MethodPost, "/project/"+projectID+"/task/"+taskID+"/complete", nil)
	return err
}

// DeleteTask deletes a task and its subtasks.
func (c *Client) DeleteTask(ctx context.Context, projectID, taskID string) error {
	_, err := c.exec.do(ctx, "delete_task", http.MethodDelete, "/project/"+projectID+"/task/"+taskID, nil)
	return err
}

// CreateSubtask creates a task parented under parentTaskID. Parent and subtask
// must live in the same project.
func (c *Client) CreateSubtask(ctx context.Context, parentTaskID, projectID, title, content string, priority Priority) (*Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, NewError(KindInvalidArguments, "subtask title is required")
	}
	if parentTaskID == "" || projectID == "" {
		return nil, NewError(KindInvalidArguments, "parent task id and project id are required")
	}
	if !ValidPriority(priority) {
		return nil, invalidPriorityError(priority)
	}
	payload := map[string]any{
		"title":     title,
		"projectId": projectID,
		"parentId":  parentTaskID,
		"priority":  priority,
	}
	if content != "" {
		payload["content"] = content
	}
	body, err := c.exec.do(ctx, "create_subtask", http.MethodPost, "/task", payload)
	if err != nil {
		return nil, err
	}
	var t Task
	if err := decode(body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// BatchOutcome is the per-item result of a batch creation. Exactly one of Task
// and Err is set.
type BatchOutcome struct {
	Index int
	Title string
	Task  *Task
	Err   error
}

// BatchCreateTasks creates the given tasks sequentially through the pacing
// gate. Failures are reported per item and never roll back earlier creations;
// the returned slice has the same length and order as specs.
func (c *Client) BatchCreateTasks(ctx context.Context, specs []TaskInput) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(specs))
	for i, spec := range specs {
		outcomes[i] = BatchOutcome{Index: i, Title: spec.Title}
		if err := validateTaskInput(spec); err != nil {
			outcomes[i].Err = err
			continue
		}
		task, err := c.CreateTask(ctx, spec)
		if err != nil {
			outcomes[i].Err = err
			continue
		}
		outcomes[i].Task = task
	}
	return outcomes
}

// AllTasks fetches the full task set across all open projects, one data call
// per project. The remote API has no cross-project listing; derived views
// filter this set locally. Closed projects are skipped.
func (c *Client) AllTasks(ctx context.Context) ([]Task, error) {
	projects, err := c.Projects(ctx)
	if err != nil {
		return nil, err
	}
	var all []Task
	for _, p := range projects {
		if p.Closed {
			continue
		}
		pd, err := c.ProjectData(ctx, p.ID)
		if err != nil {
			// A project deleted between the listing and the data call is
			// not a failure of the whole view.
			if IsKind(err, KindNotFound) {
				c.logger.Debug("project vanished during listing", slog.String("project_id", p.ID))
				continue
			}
			return nil, err
		}
		all = append(all, pd.Tasks...)
	}
	return all, nil
}

func validateTaskInput(input TaskInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return NewError(KindInvalidArguments, "task title is required and cannot be empty")
	}
	if input.ProjectID == "" {
		return NewError(KindInvalidArguments, "project id is required")
	}
	if !ValidPriority(input.Priority) {
		return invalidPriorityError(input.Priority)
	}
	for _, d := range []string{input.StartDate, input.DueDate} {
		if d == "" {
			continue
		}
		if _, err := ParseDate(d, time.UTC); err != nil {
			return NewError(KindInvalidArguments,
				"invalid date %q: use ISO format YYYY-MM-DDTHH:mm:ss with optional timezone offset", d)
		}
	}
	return nil
}

func invalidPriorityError(p Priority) error {
	return NewError(KindInvalidArguments,
		"invalid priority %d: must be 0 (None), 1 (Low), 3 (Medium) or 5 (High)", int(p))
}

func decode(body []byte, v any) error {
	if body == nil {
		return &Error{Kind: KindUpstream, Message: "empty response where a body was expected"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{
			Kind:    KindUpstream,
			Message: fmt.Sprintf("cannot decode response: %v", err),
			Detail:  truncate(string(body), 512),
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
