package ticktick_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kortlane/ticktick-mcp/internal/server"
	"github.com/kortlane/ticktick-mcp/internal/tools/common"
)

// registerQueryTools registers the derived-view tools. Each view fetches the
// cross-project task set and filters it locally; nothing is cached between
// calls.
func registerQueryTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getAllTasksTool := mcp.NewTool("get_all_tasks",
		mcp.WithDescription("Get all uncompleted tasks across all open projects"),
	)

	s.AddTool(getAllTasksTool, common.InstrumentedToolHandler("get_all_tasks", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, errResult := fetchAllTasks(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(sc.Views().All(tasks)), nil
	}))

	getTasksByPriorityTool := mcp.NewTool("get_tasks_by_priority",
		mcp.WithDescription("Get all tasks with a specific priority level"),
		mcp.WithNumber("priority_id",
			mcp.Required(),
			mcp.Description("Priority level: 0 (None), 1 (Low), 3 (Medium) or 5 (High)"),
		),
	)

	s.AddTool(getTasksByPriorityTool, common.InstrumentedToolHandler("get_tasks_by_priority", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		priority, present, errResult := priorityFromArgs(args, "priority_id")
		if errResult != nil {
			return errResult, nil
		}
		if !present {
			return argErrorResult("priority_id is required"), nil
		}

		tasks, errResult := fetchAllTasks(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(sc.Views().ByPriority(tasks, priority)), nil
	}))

	getTasksDueTodayTool := mcp.NewTool("get_tasks_due_today",
		mcp.WithDescription("Get all tasks due today"),
	)

	s.AddTool(getTasksDueTodayTool, common.InstrumentedToolHandler("get_tasks_due_today", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, errResult := fetchAllTasks(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(sc.Views().DueToday(tasks)), nil
	}))

	getTasksDueTomorrowTool := mcp.NewTool("get_tasks_due_tomorrow",
		mcp.WithDescription("Get all tasks due tomorrow"),
	)

	s.AddTool(getTasksDueTomorrowTool, common.InstrumentedToolHandler("get_tasks_due_tomorrow", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, errResult := fetchAllTasks(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(sc.Views().DueTomorrow(tasks)), nil
	}))

	getTasksDueInDaysTool := mcp.NewTool("get_tasks_due_in_days",
		mcp.WithDescription("Get all tasks due exactly N days from today"),
		mcp.WithNumber("days",
			mcp.Required(),
			mcp.Description("Number of days from today (0 = today, 1 = tomorrow)"),
		),
	)

	s.AddTool(getTasksDueInDaysTool, common.InstrumentedToolHandler("get_tasks_due_in_days", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		daysRaw, present := args["days"]
		if !present {
			return argErrorResult("days is required"), nil
		}
		daysNum, ok := daysRaw.(float64)
		if !ok {
			return argErrorResult("days must be a number"), nil
		}
		days := int(daysNum)
		if days < 0 {
			return argErrorResult("days cannot be negative"), nil
		}

		tasks, errResult := fetchAllTasks(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(sc.Views().DueInDays(tasks, days)), nil
	}))

	getTasksDueThisWeekTool := mcp.NewTool("get_tasks_due_this_week",
		mcp.WithDescription("Get all tasks due within the next seven days, today included"),
	)

	s.AddTool(getTasksDueThisWeekTool, common.InstrumentedToolHandler("get_tasks_due_this_week", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, errResult := fetchAllTasks(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(sc.Views().DueThisWeek(tasks)), nil
	}))

	getOverdueTasksTool := mcp.NewTool("get_overdue_tasks",
		mcp.WithDescription("Get all uncompleted tasks whose due date has passed"),
	)

	s.AddTool(getOverdueTasksTool, common.InstrumentedToolHandler("get_overdue_tasks", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, errResult := fetchAllTasks(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(sc.Views().Overdue(tasks)), nil
	}))

	searchTasksTool := mcp.NewTool("search_tasks",
		mcp.WithDescription("Search tasks by a case-insensitive term over titles, contents and checklist items"),
		mcp.WithString("search_term",
			mcp.Required(),
			mcp.Description("Text to search for (case-insensitive)"),
		),
	)

	s.AddTool(searchTasksTool, common.InstrumentedToolHandler("search_tasks", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		term, errResult := requireString(args, "search_term")
		if errResult != nil {
			return errResult, nil
		}

		tasks, errResult := fetchAllTasks(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(sc.Views().Search(tasks, term)), nil
	}))

	getEngagedTasksTool := mcp.NewTool("get_engaged_tasks",
		mcp.WithDescription("Get tasks that need attention now: open tasks that are high priority, due today or overdue"),
	)

	s.AddTool(getEngagedTasksTool, common.InstrumentedToolHandler("get_engaged_tasks", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, errResult := fetchAllTasks(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(sc.Views().Engaged(tasks)), nil
	}))

	getNextTasksTool := mcp.NewTool("get_next_tasks",
		mcp.WithDescription("Get tasks to pick up next: open tasks that are medium priority or due tomorrow, excluding engaged tasks"),
	)

	s.AddTool(getNextTasksTool, common.InstrumentedToolHandler("get_next_tasks", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, errResult := fetchAllTasks(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(sc.Views().Next(tasks)), nil
	}))

	return nil
}
