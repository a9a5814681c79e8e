package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbagrov/bimtally/internal/engine"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/report"
)

func (s *Server) registerModelTools() {
	s.mcp.AddTool(mcp.NewTool("bim_summary",
		mcp.WithDescription("Build a semantic quantity summary of the model: elements classified into construction groups (walls, slabs, ducts, ...) with counts, volumes, areas and lengths."),
		mcp.WithString("mode",
			mcp.Description("Discipline filter: full, structural, architectural or mep. Default full."),
		),
		mcp.WithString("categories",
			mcp.Description("Comma-separated category names to scan. Empty scans the whole registry."),
		),
		mcp.WithBoolean("include_links",
			mcp.Description("Merge loaded linked models into the summary."),
		),
		mcp.WithBoolean("by_level",
			mcp.Description("Attach per-level quantity breakdowns to every group."),
		),
	), s.handleSummary)

	s.mcp.AddTool(mcp.NewTool("bim_catalog",
		mcp.WithDescription("Scan the raw per-type catalog of the model without semantic classification."),
		mcp.WithString("categories",
			mcp.Description("Comma-separated category names. Empty scans the whole registry."),
		),
		mcp.WithBoolean("include_params",
			mcp.Description("Include sampled type parameters for each type."),
		),
		mcp.WithBoolean("include_links",
			mcp.Description("Also scan loaded linked models, prefixing their categories with the link title."),
		),
	), s.handleCatalog)

	s.mcp.AddTool(mcp.NewTool("bim_query",
		mcp.WithDescription("Answer a natural-language question about model elements, e.g. 'стены на 2 этаже'. Returns the interpretation and the matching elements."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question, in Russian or English."),
		),
		mcp.WithBoolean("colorize",
			mcp.Description("Highlight the matching elements in the active view."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum elements to return."),
		),
	), s.handleQuery)

	s.mcp.AddTool(mcp.NewTool("bim_search",
		mcp.WithDescription("Structured element search by category, level and parameter filters."),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Category name, e.g. Walls."),
		),
		mcp.WithString("level",
			mcp.Description("Level name or number to filter by."),
		),
		mcp.WithString("filters",
			mcp.Description(`JSON array of parameter conditions, e.g. [{"param": "Объем", "op": "gt", "value": "5"}].`),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum elements to return."),
		),
		mcp.WithBoolean("colorize",
			mcp.Description("Highlight the matching elements in the active view."),
		),
		mcp.WithString("color",
			mcp.Description("Highlight color name when colorize is set."),
		),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("bim_inspect",
		mcp.WithDescription("Dump one element's instance and type parameters by element id."),
		mcp.WithNumber("element_id",
			mcp.Required(),
			mcp.Description("The element id."),
		),
		mcp.WithNumber("max_params",
			mcp.Description("Cap on parameters returned per block."),
		),
	), s.handleInspect)

	s.mcp.AddTool(mcp.NewTool("bim_volumes",
		mcp.WithDescription("Per-type or per-level quantity totals for the given categories."),
		mcp.WithString("categories",
			mcp.Description("Comma-separated category names. Empty uses the default quantity set."),
		),
		mcp.WithString("group_by",
			mcp.Description("type (default) or level."),
		),
	), s.handleVolumes)

	s.mcp.AddTool(mcp.NewTool("list_linked_files",
		mcp.WithDescription("List linked model files in the host document with their load state."),
	), s.handleLinks)

	s.mcp.AddTool(mcp.NewTool("execute_revit_code",
		mcp.WithDescription("Run a raw IronPython snippet on the host and return its captured OUTPUT."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("IronPython source. Assign the result to the OUTPUT variable."),
		),
		mcp.WithString("description",
			mcp.Description("Short label for the run, used in logs."),
		),
	), s.handleExecuteCode)

	s.mcp.AddTool(mcp.NewTool("bim_audit",
		mcp.WithDescription("Run modeling-quality checks against the host document: unplaced rooms, zero-volume elements, duplicate type names and more."),
		mcp.WithString("checks",
			mcp.Description("Comma-separated check names. Empty runs all checks."),
		),
	), s.handleAudit)

	s.mcp.AddTool(mcp.NewTool("bim_report",
		mcp.WithDescription("Render a Markdown tender-readiness report from a fresh model summary, optionally with a reconciliation against a bill-of-quantities file."),
		mcp.WithString("sections",
			mcp.Description("Comma-separated section names. Empty renders all sections."),
		),
		mcp.WithNumber("top_groups",
			mcp.Description("Cap on the top-groups-by-volume table."),
		),
		mcp.WithString("vor_path",
			mcp.Description("Optional bill-of-quantities file (.json or .xlsx) to reconcile and include."),
		),
		mcp.WithNumber("tolerance_pct",
			mcp.Description("Red-flag threshold in percent for the optional reconciliation."),
		),
		mcp.WithBoolean("include_links",
			mcp.Description("Merge loaded linked models into the underlying summary."),
		),
	), s.handleReport)
}

func (s *Server) handleSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.engine.BuildSummary(ctx, engine.SummaryOptions{
		Mode:         request.GetString("mode", ""),
		Categories:   splitList(request.GetString("categories", "")),
		IncludeLinks: request.GetBool("include_links", false),
		ByLevel:      request.GetBool("by_level", false),
	})
	if err != nil {
		return errorResult("summary failed", err), nil
	}
	return jsonResult(sum), nil
}

func (s *Server) handleCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.engine.Catalog(ctx, engine.CatalogOptions{
		Categories:    splitList(request.GetString("categories", "")),
		IncludeParams: request.GetBool("include_params", false),
		IncludeLinks:  request.GetBool("include_links", false),
	})
	if err != nil {
		return errorResult("catalog scan failed", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("query", "")
	if text == "" {
		return mcp.NewToolResultError("query parameter required"), nil
	}

	result, err := s.engine.Query(ctx, text,
		request.GetBool("colorize", false),
		int(request.GetFloat("limit", 0)))
	if err != nil {
		return errorResult("query failed", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spec := model.QuerySpec{
		Category: request.GetString("category", ""),
		Level:    request.GetString("level", ""),
		Limit:    int(request.GetFloat("limit", 0)),
		Colorize: request.GetBool("colorize", false),
		Color:    request.GetString("color", ""),
	}
	if spec.Category == "" {
		return mcp.NewToolResultError("category parameter required"), nil
	}
	if raw := request.GetString("filters", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &spec.Filters); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("filters must be a JSON array of conditions: %v", err)), nil
		}
	}

	result, err := s.engine.Search(ctx, spec)
	if err != nil {
		return errorResult("search failed", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	elementID := int64(request.GetFloat("element_id", 0))
	if elementID == 0 {
		return mcp.NewToolResultError("element_id parameter required"), nil
	}

	info, err := s.engine.Inspect(ctx, elementID, int(request.GetFloat("max_params", 0)))
	if err != nil {
		return errorResult("inspect failed", err), nil
	}
	return jsonResult(info), nil
}

func (s *Server) handleVolumes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.engine.Volumes(ctx,
		splitList(request.GetString("categories", "")),
		request.GetString("group_by", ""))
	if err != nil {
		return errorResult("volumes failed", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleLinks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	links, err := s.engine.Links(ctx)
	if err != nil {
		return errorResult("link listing failed", err), nil
	}
	return jsonResult(links), nil
}

func (s *Server) handleExecuteCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := request.GetString("code", "")
	if code == "" {
		return mcp.NewToolResultError("code parameter required"), nil
	}

	out, err := s.engine.ExecuteCode(ctx, code, request.GetString("description", "mcp execute_revit_code"))
	if err != nil {
		return errorResult("execution failed", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) handleAudit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.engine.Audit(ctx, splitList(request.GetString("checks", "")))
	if err != nil {
		return errorResult("audit failed", err), nil
	}
	return jsonResult(rep), nil
}

func (s *Server) handleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.engine.BuildSummary(ctx, engine.SummaryOptions{
		IncludeLinks: request.GetBool("include_links", false),
	})
	if err != nil {
		return errorResult("report failed", err), nil
	}

	var rec *model.ReconciliationReport
	if vorPath := request.GetString("vor_path", ""); vorPath != "" {
		doc, err := s.engine.LoadBoQFile(vorPath)
		if err != nil {
			return errorResult("report failed", err), nil
		}
		rec, err = s.engine.Reconcile(ctx, doc, sum, request.GetFloat("tolerance_pct", 0))
		if err != nil {
			return errorResult("report failed", err), nil
		}
	}

	text, err := s.engine.RenderReport(sum, rec, report.Options{
		Sections:  splitList(request.GetString("sections", "")),
		TopGroups: int(request.GetFloat("top_groups", 0)),
	})
	if err != nil {
		return errorResult("report failed", err), nil
	}
	return mcp.NewToolResultText(text), nil
}
