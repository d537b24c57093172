package ticktick_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kortlane/ticktick-mcp/internal/server"
	"github.com/kortlane/ticktick-mcp/internal/ticktick"
	"github.com/kortlane/ticktick-mcp/internal/tools/common"
)

// registerProjectTools registers project management tools.
func registerProjectTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	getProjectsTool := mcp.NewTool("get_projects",
		mcp.WithDescription("List all TickTick projects for the authenticated user"),
	)

	s.AddTool(getProjectsTool, common.InstrumentedToolHandler("get_projects", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, errResult := requireClient(sc)
		if errResult != nil {
			return errResult, nil
		}

		projects, err := client.Projects(ctx)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(projects), nil
	}))

	getProjectTool := mcp.NewTool("get_project",
		mcp.WithDescription("Get details of a specific TickTick project"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The ID of the project to retrieve"),
		),
	)

	s.AddTool(getProjectTool, common.InstrumentedToolHandler("get_project", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, errResult := requireString(args, "project_id")
		if errResult != nil {
			return errResult, nil
		}

		client, errResult := requireClient(sc)
		if errResult != nil {
			return errResult, nil
		}

		project, err := client.Project(ctx, projectID)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(project), nil
	}))

	getProjectTasksTool := mcp.NewTool("get_project_tasks",
		mcp.WithDescription("Get a project together with its uncompleted tasks and kanban columns"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The ID of the project whose tasks to retrieve"),
		),
	)

	s.AddTool(getProjectTasksTool, common.InstrumentedToolHandler("get_project_tasks", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, errResult := requireString(args, "project_id")
		if errResult != nil {
			return errResult, nil
		}

		client, errResult := requireClient(sc)
		if errResult != nil {
			return errResult, nil
		}

		data, err := client.ProjectData(ctx, projectID)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(data), nil
	}))

	if !readOnly {
		createProjectTool := mcp.NewTool("create_project",
			mcp.WithDescription("Create a new TickTick project"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("The name of the new project"),
			),
			mcp.WithString("color",
				mcp.Description("Project color as a hex code (default: '#F18181')"),
			),
			mcp.WithString("view_mode",
				mcp.Description("View mode: 'list', 'kanban' or 'timeline' (default: 'list')"),
			),
		)

		s.AddTool(createProjectTool, common.InstrumentedToolHandler("create_project", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			name, errResult := requireString(args, "name")
			if errResult != nil {
				return errResult, nil
			}

			input := ticktick.ProjectInput{Name: name}
			if color, ok := args["color"].(string); ok {
				input.Color = color
			}
			if viewMode, ok := args["view_mode"].(string); ok {
				input.ViewMode = viewMode
			}

			client, errResult := requireClient(sc)
			if errResult != nil {
				return errResult, nil
			}

			project, err := client.CreateProject(ctx, input)
			if err != nil {
				return errorResult(err), nil
			}
			return jsonResult(project), nil
		}))

		updateProjectTool := mcp.NewTool("update_project",
			mcp.WithDescription("Update a TickTick project's name, color or view mode"),
			mcp.WithString("project_id",
				mcp.Required(),
				mcp.Description("The ID of the project to update"),
			),
			mcp.WithString("name",
				mcp.Description("New name for the project"),
			),
			mcp.WithString("color",
				mcp.Description("New project color as a hex code"),
			),
			mcp.WithString("view_mode",
				mcp.Description("New view mode: 'list', 'kanban' or 'timeline'"),
			),
		)

		s.AddTool(updateProjectTool, common.InstrumentedToolHandler("update_project", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			projectID, errResult := requireString(args, "project_id")
			if errResult != nil {
				return errResult, nil
			}

			input := ticktick.ProjectInput{}
			if name, ok := args["name"].(string); ok {
				input.Name = name
			}
			if color, ok := args["color"].(string); ok {
				input.Color = color
			}
			if viewMode, ok := args["view_mode"].(string); ok {
				input.ViewMode = viewMode
			}
			if input == (ticktick.ProjectInput{}) {
				return argErrorResult("at least one of name, color or view_mode is required"), nil
			}

			client, errResult := requireClient(sc)
			if errResult != nil {
				return errResult, nil
			}

			project, err := client.UpdateProject(ctx, projectID, input)
			if err != nil {
				return errorResult(err), nil
			}
			return jsonResult(project), nil
		}))

		deleteProjectTool := mcp.NewTool("delete_project",
			mcp.WithDescription("Delete a TickTick project and all tasks in it"),
			mcp.WithString("project_id",
				mcp.Required(),
				mcp.Description("The ID of the project to delete"),
			),
		)

		s.AddTool(deleteProjectTool, common.InstrumentedToolHandler("delete_project", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			projectID, errResult := requireString(args, "project_id")
			if errResult != nil {
				return errResult, nil
			}

			client, errResult := requireClient(sc)
			if errResult != nil {
				return errResult, nil
			}

			if err := client.DeleteProject(ctx, projectID); err != nil {
				return errorResult(err), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Project %s deleted successfully", projectID)), nil
		}))
	}

	return nil
}
