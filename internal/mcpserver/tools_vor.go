package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbagrov/bimtally/internal/service"
	"github.com/mbagrov/bimtally/internal/vor"
)

func (s *Server) registerVORTools() {
	s.mcp.AddTool(mcp.NewTool("vor_vs_bim",
		mcp.WithDescription("Reconcile a pasted bill of quantities (ВОР) against a fresh model summary. Flags quantity deviations beyond tolerance, unmatched lines and groups missing from the bill."),
		mcp.WithString("vor_data",
			mcp.Required(),
			mcp.Description(`Bill lines as a JSON array: [{"name": "Кладка стен", "unit": "м3", "volume": 120.5}, ...].`),
		),
		mcp.WithNumber("tolerance_pct",
			mcp.Description("Red-flag threshold in percent. Default from configuration."),
		),
	), s.handleVORvsBIM)

	s.mcp.AddTool(mcp.NewTool("vor_vs_bim_file",
		mcp.WithDescription("Reconcile a bill-of-quantities file (.json array or .xlsx with header detection) against a fresh model summary."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the bill file."),
		),
		mcp.WithNumber("tolerance_pct",
			mcp.Description("Red-flag threshold in percent. Default from configuration."),
		),
	), s.handleVORvsBIMFile)

	s.mcp.AddTool(mcp.NewTool("bim_vor_generate",
		mcp.WithDescription("Generate a bill of quantities from the model: one position per semantic group, quantified in the group's canonical unit."),
		mcp.WithString("group_filter",
			mcp.Description("Discipline filter: all, structural, architectural or mep."),
		),
		mcp.WithNumber("min_volume",
			mcp.Description("Drop positions with a quantity below this value."),
		),
		mcp.WithString("title",
			mcp.Description("Document title."),
		),
	), s.handleVORGenerate)

	s.mcp.AddTool(mcp.NewTool("bim_to_vor",
		mcp.WithDescription("Convert the model summary into bill positions through a mapping file that names each position per semantic group."),
		mcp.WithString("mapping_path",
			mcp.Required(),
			mcp.Description("Path to the group-to-position mapping JSON."),
		),
		mcp.WithString("title",
			mcp.Description("Document title."),
		),
	), s.handleToVOR)

	s.mcp.AddTool(mcp.NewTool("bim_vor_to_sheets",
		mcp.WithDescription("Generate a bill of quantities from the model and write it to a Google Sheets spreadsheet."),
		mcp.WithString("spreadsheet_id",
			mcp.Required(),
			mcp.Description("Target spreadsheet id."),
		),
		mcp.WithString("sheet_name",
			mcp.Description("Target sheet tab name."),
		),
		mcp.WithString("group_filter",
			mcp.Description("Discipline filter: all, structural, architectural or mep."),
		),
		mcp.WithNumber("min_volume",
			mcp.Description("Drop positions with a quantity below this value."),
		),
		mcp.WithString("title",
			mcp.Description("Document title, written above the table."),
		),
	), s.handleVORToSheets)

	s.mcp.AddTool(mcp.NewTool("bim_export_excel",
		mcp.WithDescription("Write a JSON payload (summary, reconciliation report, bill or a plain array of rows) to an .xlsx workbook, auto-detecting the layout."),
		mcp.WithString("data",
			mcp.Required(),
			mcp.Description("The JSON payload to export."),
		),
		mcp.WithString("output_path",
			mcp.Description("Target .xlsx path. Empty writes into the configured export directory."),
		),
		mcp.WithString("title",
			mcp.Description("Workbook title row."),
		),
	), s.handleExportExcel)
}

func (s *Server) handleVORvsBIM(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("vor_data", "")
	if raw == "" {
		return mcp.NewToolResultError("vor_data parameter required"), nil
	}

	doc, err := s.engine.LoadBoQJSON([]byte(raw))
	if err != nil {
		return errorResult("failed to parse bill", err), nil
	}
	report, err := s.engine.Reconcile(ctx, doc, nil, request.GetFloat("tolerance_pct", 0))
	if err != nil {
		return errorResult("reconciliation failed", err), nil
	}
	return jsonResult(report), nil
}

func (s *Server) handleVORvsBIMFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path parameter required"), nil
	}

	doc, err := s.engine.LoadBoQFile(path)
	if err != nil {
		return errorResult("failed to read bill", err), nil
	}
	report, err := s.engine.Reconcile(ctx, doc, nil, request.GetFloat("tolerance_pct", 0))
	if err != nil {
		return errorResult("reconciliation failed", err), nil
	}
	return jsonResult(report), nil
}

func (s *Server) handleVORGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.engine.GenerateVOR(ctx, nil, vor.Options{
		GroupFilter: request.GetString("group_filter", ""),
		MinVolume:   request.GetFloat("min_volume", 0),
		Title:       request.GetString("title", ""),
	})
	if err != nil {
		return errorResult("bill generation failed", err), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) handleToVOR(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mappingPath := request.GetString("mapping_path", "")
	if mappingPath == "" {
		return mcp.NewToolResultError("mapping_path parameter required"), nil
	}

	doc, err := s.engine.ConvertVOR(ctx, nil, mappingPath, request.GetString("title", ""))
	if err != nil {
		return errorResult("bill conversion failed", err), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) handleVORToSheets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spreadsheetID := request.GetString("spreadsheet_id", "")
	if spreadsheetID == "" {
		return mcp.NewToolResultError("spreadsheet_id parameter required"), nil
	}

	doc, err := s.engine.GenerateVOR(ctx, nil, vor.Options{
		GroupFilter: request.GetString("group_filter", ""),
		MinVolume:   request.GetFloat("min_volume", 0),
		Title:       request.GetString("title", ""),
	})
	if err != nil {
		return errorResult("bill generation failed", err), nil
	}

	export, err := s.engine.ExportVORSheets(ctx, doc, service.SheetTarget{
		SpreadsheetID: spreadsheetID,
		SheetName:     request.GetString("sheet_name", ""),
		Title:         request.GetString("title", ""),
	})
	if err != nil {
		return errorResult("sheets export failed", err), nil
	}
	return jsonResult(export), nil
}

func (s *Server) handleExportExcel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data := request.GetString("data", "")
	if data == "" {
		return mcp.NewToolResultError("data parameter required"), nil
	}

	result, err := s.engine.ExportExcel([]byte(data),
		request.GetString("output_path", ""),
		request.GetString("title", ""))
	if err != nil {
		return errorResult("excel export failed", err), nil
	}
	return jsonResult(result), nil
}
