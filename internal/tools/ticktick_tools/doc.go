// Package ticktick_tools provides the MCP tools of the TickTick gateway.
//
// # Available Tools
//
// Project Management:
//   - get_projects: List all projects
//   - get_project: Get details of a specific project
//   - get_project_tasks: Get a project with its uncompleted tasks and columns
//   - create_project: Create a new project
//   - update_project: Update a project's name, color or view mode
//   - delete_project: Delete a project and everything in it
//
// Task Management:
//   - get_task: Get details of a specific task
//   - create_task: Create a new task
//   - update_task: Update the supplied fields of a task
//   - complete_task: Mark a task as completed
//   - delete_task: Delete a task and its subtasks
//   - create_subtask: Create a task under a parent task
//   - batch_create_tasks: Create multiple tasks with per-item outcomes
//
// Derived Views:
//   - get_all_tasks: All uncompleted tasks across open projects
//   - get_tasks_by_priority: Tasks with a specific priority level
//   - get_tasks_due_today, get_tasks_due_tomorrow, get_tasks_due_in_days,
//     get_tasks_due_this_week: Calendar-day due date filters
//   - get_overdue_tasks: Open tasks whose due date has passed
//   - search_tasks: Case-insensitive text search
//   - get_engaged_tasks, get_next_tasks: Priority and due date triage views
//
// Every failed call returns a JSON error envelope with a machine-readable
// kind, a message and optional upstream detail. Mutating tools are only
// registered when the server runs with write access enabled.
package ticktick_tools
