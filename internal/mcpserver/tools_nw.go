package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerNavisworksTools() {
	s.mcp.AddTool(mcp.NewTool("nw_status",
		mcp.WithDescription("Report the Navisworks plugin state and the open federated document."),
	), s.handleNWStatus)

	s.mcp.AddTool(mcp.NewTool("nw_get_clashes",
		mcp.WithDescription("List clash tests with their result counts and statuses."),
		mcp.WithString("test_filter",
			mcp.Description("Substring filter on the test name."),
		),
	), s.handleNWClashes)

	s.mcp.AddTool(mcp.NewTool("nw_run_clash",
		mcp.WithDescription("Run one clash test by name and return its fresh results."),
		mcp.WithString("test_name",
			mcp.Required(),
			mcp.Description("The clash test name."),
		),
	), s.handleNWRunClash)

	s.mcp.AddTool(mcp.NewTool("nw_get_volumes",
		mcp.WithDescription("Quantity takeoff from the federated model, optionally filtered by category."),
		mcp.WithString("category",
			mcp.Description("Category filter. Empty returns all categories."),
		),
	), s.handleNWVolumes)

	s.mcp.AddTool(mcp.NewTool("nw_aggregate_models",
		mcp.WithDescription("Federate the given model files into one Navisworks document."),
		mcp.WithString("models",
			mcp.Required(),
			mcp.Description("Comma-separated model file paths."),
		),
		mcp.WithString("output_path",
			mcp.Description("Target document path. Empty lets the plugin choose."),
		),
	), s.handleNWAggregate)
}

func (s *Server) handleNWStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.engine.NWStatus(ctx)
	if err != nil {
		return errorResult("navisworks status failed", err), nil
	}
	return jsonResult(status), nil
}

func (s *Server) handleNWClashes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clashes, err := s.engine.NWClashes(ctx, request.GetString("test_filter", ""))
	if err != nil {
		return errorResult("clash listing failed", err), nil
	}
	return jsonResult(clashes), nil
}

func (s *Server) handleNWRunClash(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testName := request.GetString("test_name", "")
	if testName == "" {
		return mcp.NewToolResultError("test_name parameter required"), nil
	}

	run, err := s.engine.NWRunClash(ctx, testName)
	if err != nil {
		return errorResult("clash run failed", err), nil
	}
	return jsonResult(run), nil
}

func (s *Server) handleNWVolumes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	volumes, err := s.engine.NWVolumes(ctx, request.GetString("category", ""))
	if err != nil {
		return errorResult("takeoff failed", err), nil
	}
	return jsonResult(volumes), nil
}

func (s *Server) handleNWAggregate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	models := splitList(request.GetString("models", ""))
	if len(models) == 0 {
		return mcp.NewToolResultError("models parameter required"), nil
	}

	result, err := s.engine.NWAggregate(ctx, models, request.GetString("output_path", ""))
	if err != nil {
		return errorResult("aggregation failed", err), nil
	}
	return jsonResult(result), nil
}
