package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbagrov/bimtally/internal/engine"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/report"
)

func reportCmd() *cobra.Command {
	var (
		sections  []string
		topGroups int
		vorPath   string
		tolerance float64
		withLinks bool
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a Markdown tender-readiness report",
		Long: fmt.Sprintf(`Build a fresh model summary and render it as a Markdown report, optionally
reconciled against a bill of quantities given with --vor. Sections: %s.`,
			strings.Join(report.SectionNames(), ", ")),
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Scanning model...")
			sum, err := eng.BuildSummary(cmd.Context(), engine.SummaryOptions{IncludeLinks: withLinks})
			finishSpinner(bar)
			if err != nil {
				return err
			}

			var rec *model.ReconciliationReport
			if vorPath != "" {
				doc, err := eng.LoadBoQFile(vorPath)
				if err != nil {
					return err
				}
				rec, err = eng.Reconcile(cmd.Context(), doc, sum, tolerance)
				if err != nil {
					return err
				}
			}

			text, err := eng.RenderReport(sum, rec, report.Options{
				Sections:  sections,
				TopGroups: topGroups,
			})
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				fmt.Println(successStyle.Render("report written to " + outPath))
				return nil
			}
			fmt.Println(text)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sections, "sections", nil, "sections to render (default: all)")
	cmd.Flags().IntVar(&topGroups, "top", 0, "cap on the top-groups-by-volume table")
	cmd.Flags().StringVar(&vorPath, "vor", "", "bill file to reconcile and include")
	cmd.Flags().Float64VarP(&tolerance, "tolerance", "t", 0, "red-flag threshold in percent")
	cmd.Flags().BoolVar(&withLinks, "links", false, "merge loaded linked models")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to a file instead of stdout")
	return cmd
}
