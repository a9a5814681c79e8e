package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbagrov/bimtally/internal/engine"
)

func exportCmd() *cobra.Command {
	var (
		dataPath   string
		outPath    string
		title      string
		mode       string
		categories []string
		withLinks  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quantities to an .xlsx workbook",
		Long: `Write a model summary workbook, or convert a JSON payload (summary,
reconciliation report, bill or a plain array of rows) given with --data.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			if dataPath != "" {
				payload, err := os.ReadFile(dataPath)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", dataPath, err)
				}
				result, err := eng.ExportExcel(payload, outPath, title)
				if err != nil {
					return err
				}
				fmt.Println(successStyle.Render("written to " + result.Path))
				return nil
			}

			bar := newSpinner("Scanning model...")
			sum, err := eng.BuildSummary(cmd.Context(), engine.SummaryOptions{
				Mode:         mode,
				Categories:   categories,
				IncludeLinks: withLinks,
			})
			finishSpinner(bar)
			if err != nil {
				return err
			}

			result, err := eng.ExportSummaryExcel(sum, outPath, title)
			if err != nil {
				return err
			}
			fmt.Println(successStyle.Render("summary written to " + result.Path))
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "JSON payload to export instead of scanning")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "target .xlsx path (default: export directory)")
	cmd.Flags().StringVar(&title, "title", "", "workbook title row")
	cmd.Flags().StringVarP(&mode, "mode", "m", "full", "discipline filter for the scan")
	cmd.Flags().StringSliceVarP(&categories, "categories", "c", nil, "categories to scan")
	cmd.Flags().BoolVar(&withLinks, "links", false, "merge loaded linked models")
	return cmd
}
