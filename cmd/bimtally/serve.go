package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mbagrov/bimtally/internal/mcpserver"
)

func serveCmd() *cobra.Command {
	var withSheets bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool set over MCP (stdio)",
		Long: `Start the MCP tool server on stdio. Register bimtally as an MCP server in
your client and every operation (summary, reconciliation, search, clash
tests, exports) becomes available as a tool.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), withSheets)
			if err != nil {
				return err
			}
			defer cleanup()

			slog.Info("starting MCP server", "transport", "stdio", "version", version)
			return mcpserver.New(eng, version).ServeStdio()
		},
	}

	cmd.Flags().BoolVar(&withSheets, "with-sheets", false, "initialize Google Sheets access for the sheets tools")
	return cmd
}
