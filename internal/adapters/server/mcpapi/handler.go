// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/metier/internal/adapters/server/common"
	"github.com/hylla/metier/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing schedule views and quick mutations.
func NewHandler(cfg Config, views common.ViewService, sched common.ScheduleService) (*Handler, error) {
	if views == nil {
		return nil, fmt.Errorf("view service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerViewTools(mcpSrv, views)
	if sched != nil {
		registerScheduleTools(mcpSrv, sched)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "metier"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

func statusEnum() []string {
	out := make([]string, 0, len(domain.PhaseStatuses()))
	for _, s := range domain.PhaseStatuses() {
		out = append(out, string(s))
	}
	return out
}

// registerViewTools registers the read-only schedule tools.
func registerViewTools(srv *mcpserver.MCPServer, views common.ViewService) {
	srv.AddTool(
		mcp.NewTool(
			"metier.list_tasks",
			mcp.WithDescription("List tasks with derived health, delay days, and progress."),
			mcp.WithString("query", mcp.Description("Case-insensitive title substring")),
			mcp.WithString("project_id", mcp.Description("Project identifier")),
			mcp.WithString("team_id", mcp.Description("Department owning at least one phase")),
			mcp.WithString("user_id", mcp.Description("Assignee of at least one phase")),
			mcp.WithString("status", mcp.Description("Status of at least one phase"), mcp.Enum(statusEnum()...)),
			mcp.WithString("priority", mcp.Description("Task priority"), mcp.Enum("low", "medium", "high", "urgent")),
			mcp.WithString("start", mcp.Description("Window start, YYYY-MM-DD")),
			mcp.WithString("end", mcp.Description("Window end, YYYY-MM-DD")),
			mcp.WithString("sort", mcp.Description("Sort key"), mcp.Enum("start", "end", "delay")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := views.ListTasks(ctx, common.TaskListRequest{
				Query:     req.GetString("query", ""),
				ProjectID: req.GetString("project_id", ""),
				TeamID:    req.GetString("team_id", ""),
				UserID:    req.GetString("user_id", ""),
				Status:    req.GetString("status", ""),
				Priority:  req.GetString("priority", ""),
				Start:     req.GetString("start", ""),
				End:       req.GetString("end", ""),
				Sort:      req.GetString("sort", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"tasks": rows})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"metier.task_health",
			mcp.WithDescription("Return ON_TRACK, AT_RISK, or DELAYED plus delay days for every task."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := views.TaskHealth(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"tasks": rows})
			if err != nil {
				return nil, fmt.Errorf("encode task_health result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"metier.timeline",
			mcp.WithDescription("Lay out phases on the timeline grid. Equal start and end select the single-day work-hour grid."),
			mcp.WithString("start", mcp.Description("Window start, YYYY-MM-DD")),
			mcp.WithString("end", mcp.Description("Window end, YYYY-MM-DD")),
			mcp.WithString("user_id", mcp.Description("Only phases assigned to this user")),
			mcp.WithString("team_id", mcp.Description("Only phases owned by this department")),
			mcp.WithString("status", mcp.Description("Only phases in this status"), mcp.Enum(statusEnum()...)),
			mcp.WithString("mode", mcp.Description("Row grouping"), mcp.Enum("project", "person")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			out, err := views.Timeline(ctx, common.TimelineRequest{
				Start:  req.GetString("start", ""),
				End:    req.GetString("end", ""),
				UserID: req.GetString("user_id", ""),
				TeamID: req.GetString("team_id", ""),
				Status: req.GetString("status", ""),
				Mode:   req.GetString("mode", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode timeline result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"metier.workload",
			mcp.WithDescription("Aggregate pending estimated hours per person, department, and project."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			out, err := views.Workload(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode workload result: %w", err)
			}
			return result, nil
		},
	)
}

// registerScheduleTools registers template and phase-status mutations.
func registerScheduleTools(srv *mcpserver.MCPServer, sched common.ScheduleService) {
	srv.AddTool(
		mcp.NewTool(
			"metier.instantiate_template",
			mcp.WithDescription("Expand a task template into dated phases; with create=true save it as a new task."),
			mcp.WithString("template_id", mcp.Required(), mcp.Description("Template identifier")),
			mcp.WithBoolean("create", mcp.Description("Persist the result as a new task")),
			mcp.WithString("project_id", mcp.Description("Project for the created task")),
			mcp.WithString("title", mcp.Description("Title for the created task")),
			mcp.WithString("priority", mcp.Description("Priority for the created task"), mcp.Enum("low", "medium", "high", "urgent")),
			mcp.WithString("link", mcp.Description("Optional reference link")),
			mcp.WithString("actor_id", mcp.Description("User id recorded in the activity log")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			templateID, err := req.RequireString("template_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			out, err := sched.InstantiateTemplate(common.WithActor(ctx, req.GetString("actor_id", "")), common.InstantiateTemplateRequest{
				TemplateID: templateID,
				Create:     req.GetBool("create", false),
				ProjectID:  req.GetString("project_id", ""),
				Title:      req.GetString("title", ""),
				Priority:   req.GetString("priority", ""),
				Link:       req.GetString("link", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode instantiate_template result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"metier.set_phase_status",
			mcp.WithDescription("Change the status of one task phase. Dependencies are advisory and not enforced."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("phase_id", mcp.Required(), mcp.Description("Phase identifier")),
			mcp.WithString("status", mcp.Required(), mcp.Description("New status"), mcp.Enum(statusEnum()...)),
			mcp.WithString("actor_id", mcp.Description("User id recorded in the activity log")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			phaseID, err := req.RequireString("phase_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			out, err := sched.SetPhaseStatus(common.WithActor(ctx, req.GetString("actor_id", "")), common.PhaseStatusRequest{
				TaskID:  taskID,
				PhaseID: phaseID,
				Status:  status,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode set_phase_status result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"metier.add_phase",
			mcp.WithDescription("Append a default phase for today to a task, chained to its current last phase."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("actor_id", mcp.Description("User id recorded in the activity log")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			out, err := sched.AddPhase(common.WithActor(ctx, req.GetString("actor_id", "")), common.AddPhaseRequest{TaskID: taskID})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode add_phase result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrConflict):
		return mcp.NewToolResultError("conflict: " + err.Error())
	case errors.Is(err, common.ErrUnavailable):
		return mcp.NewToolResultError("unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
