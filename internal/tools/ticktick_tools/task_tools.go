package ticktick_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kortlane/ticktick-mcp/internal/server"
	"github.com/kortlane/ticktick-mcp/internal/ticktick"
	"github.com/kortlane/ticktick-mcp/internal/tools/batch"
	"github.com/kortlane/ticktick-mcp/internal/tools/common"
)

// registerTaskTools registers task management tools.
func registerTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	getTaskTool := mcp.NewTool("get_task",
		mcp.WithDescription("Get details of a specific task"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The ID of the project the task belongs to"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to retrieve"),
		),
	)

	s.AddTool(getTaskTool, common.InstrumentedToolHandler("get_task", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, errResult := requireString(args, "project_id")
		if errResult != nil {
			return errResult, nil
		}
		taskID, errResult := requireString(args, "task_id")
		if errResult != nil {
			return errResult, nil
		}

		client, errResult := requireClient(sc)
		if errResult != nil {
			return errResult, nil
		}

		task, err := client.Task(ctx, projectID, taskID)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(task), nil
	}))

	if readOnly {
		return nil
	}

	createTaskTool := mcp.NewTool("create_task",
		mcp.WithDescription("Create a new task in a project"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The title of the task"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The ID of the project to create the task in"),
		),
		mcp.WithString("content",
			mcp.Description("Notes or description for the task"),
		),
		mcp.WithString("start_date",
			mcp.Description("Start date in ISO format (e.g. 2026-08-25T09:00:00+0000)"),
		),
		mcp.WithString("due_date",
			mcp.Description("Due date in ISO format (e.g. 2026-08-25T17:00:00+0000)"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Priority: 0 (None), 1 (Low), 3 (Medium) or 5 (High). Default 0."),
		),
		mcp.WithBoolean("is_all_day",
			mcp.Description("Whether the task is an all-day task"),
		),
	)

	s.AddTool(createTaskTool, common.InstrumentedToolHandler("create_task", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		title, errResult := requireString(args, "title")
		if errResult != nil {
			return errResult, nil
		}
		projectID, errResult := requireString(args, "project_id")
		if errResult != nil {
			return errResult, nil
		}
		priority, _, errResult := priorityFromArgs(args, "priority")
		if errResult != nil {
			return errResult, nil
		}

		input := ticktick.TaskInput{
			Title:     title,
			ProjectID: projectID,
			Priority:  priority,
		}
		if content, ok := args["content"].(string); ok {
			input.Content = content
		}
		if startDate, ok := args["start_date"].(string); ok {
			input.StartDate = startDate
		}
		if dueDate, ok := args["due_date"].(string); ok {
			input.DueDate = dueDate
		}
		if isAllDay, ok := args["is_all_day"].(bool); ok {
			input.IsAllDay = isAllDay
		}

		client, errResult := requireClient(sc)
		if errResult != nil {
			return errResult, nil
		}

		task, err := client.CreateTask(ctx, input)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(task), nil
	}))

	updateTaskTool := mcp.NewTool("update_task",
		mcp.WithDescription("Update an existing task. Only the supplied fields change."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to update"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The ID of the project the task belongs to"),
		),
		mcp.WithString("title",
			mcp.Description("New title for the task"),
		),
		mcp.WithString("content",
			mcp.Description("New notes or description for the task"),
		),
		mcp.WithString("start_date",
			mcp.Description("New start date in ISO format"),
		),
		mcp.WithString("due_date",
			mcp.Description("New due date in ISO format"),
		),
		mcp.WithNumber("priority",
			mcp.Description("New priority: 0 (None), 1 (Low), 3 (Medium) or 5 (High)"),
		),
	)

	s.AddTool(updateTaskTool, common.InstrumentedToolHandler("update_task", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		taskID, errResult := requireString(args, "task_id")
		if errResult != nil {
			return errResult, nil
		}
		projectID, errResult := requireString(args, "project_id")
		if errResult != nil {
			return errResult, nil
		}

		update := ticktick.TaskUpdate{}
		changed := false
		if title, ok := args["title"].(string); ok {
			update.Title = &title
			changed = true
		}
		if content, ok := args["content"].(string); ok {
			update.Content = &content
			changed = true
		}
		if startDate, ok := args["start_date"].(string); ok {
			update.StartDate = &startDate
			changed = true
		}
		if dueDate, ok := args["due_date"].(string); ok {
			update.DueDate = &dueDate
			changed = true
		}
		priority, present, errResult := priorityFromArgs(args, "priority")
		if errResult != nil {
			return errResult, nil
		}
		if present {
			update.Priority = &priority
			changed = true
		}
		if !changed {
			return argErrorResult("at least one field to update is required"), nil
		}

		client, errResult := requireClient(sc)
		if errResult != nil {
			return errResult, nil
		}

		task, err := client.UpdateTask(ctx, taskID, projectID, update)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(task), nil
	}))

	completeTaskTool := mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task as completed"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The ID of the project the task belongs to"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to complete"),
		),
	)

	s.AddTool(completeTaskTool, common.InstrumentedToolHandler("complete_task", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, errResult := requireString(args, "project_id")
		if errResult != nil {
			return errResult, nil
		}
		taskID, errResult := requireString(args, "task_id")
		if errResult != nil {
			return errResult, nil
		}

		client, errResult := requireClient(sc)
		if errResult != nil {
			return errResult, nil
		}

		if err := client.CompleteTask(ctx, projectID, taskID); err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %s completed successfully", taskID)), nil
	}))

	deleteTaskTool := mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task and its subtasks"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The ID of the project the task belongs to"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to delete"),
		),
	)

	s.AddTool(deleteTaskTool, common.InstrumentedToolHandler("delete_task", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, errResult := requireString(args, "project_id")
		if errResult != nil {
			return errResult, nil
		}
		taskID, errResult := requireString(args, "task_id")
		if errResult != nil {
			return errResult, nil
		}

		client, errResult := requireClient(sc)
		if errResult != nil {
			return errResult, nil
		}

		if err := client.DeleteTask(ctx, projectID, taskID); err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %s deleted successfully", taskID)), nil
	}))

	createSubtaskTool := mcp.NewTool("create_subtask",
		mcp.WithDescription("Create a subtask under an existing task. Parent and subtask must be in the same project."),
		mcp.WithString("parent_task_id",
			mcp.Required(),
			mcp.Description("The ID of the parent task"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The ID of the project the parent task belongs to"),
		),
		mcp.WithString("subtask_title",
			mcp.Required(),
			mcp.Description("The title of the subtask"),
		),
		mcp.WithString("content",
			mcp.Description("Notes or description for the subtask"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Priority: 0 (None), 1 (Low), 3 (Medium) or 5 (High). Default 0."),
		),
	)

	s.AddTool(createSubtaskTool, common.InstrumentedToolHandler("create_subtask", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		parentTaskID, errResult := requireString(args, "parent_task_id")
		if errResult != nil {
			return errResult, nil
		}
		projectID, errResult := requireString(args, "project_id")
		if errResult != nil {
			return errResult, nil
		}
		title, errResult := requireString(args, "subtask_title")
		if errResult != nil {
			return errResult, nil
		}
		priority, _, errResult := priorityFromArgs(args, "priority")
		if errResult != nil {
			return errResult, nil
		}

		content, _ := args["content"].(string)

		client, errResult := requireClient(sc)
		if errResult != nil {
			return errResult, nil
		}

		task, err := client.CreateSubtask(ctx, parentTaskID, projectID, title, content, priority)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(task), nil
	}))

	batchCreateTasksTool := mcp.NewTool("batch_create_tasks",
		mcp.WithDescription("Create multiple tasks in one call. Tasks are created sequentially and failures are reported per item; successful creations are never rolled back."),
		mcp.WithArray("tasks",
			mcp.Required(),
			mcp.Description("Array of task objects. Each needs title and project_id; content, start_date, due_date, priority and is_all_day are optional."),
		),
	)

	s.AddTool(batchCreateTasksTool, common.InstrumentedToolHandler("batch_create_tasks", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		specs, err := batch.ParseTaskSpecs(args["tasks"])
		if err != nil {
			return argErrorResult("%s", err.Error()), nil
		}

		client, errResult := requireClient(sc)
		if errResult != nil {
			return errResult, nil
		}

		outcomes := client.BatchCreateTasks(ctx, specs)
		return mcp.NewToolResultText(batch.FormatOutcomes(outcomes)), nil
	}))

	return nil
}
