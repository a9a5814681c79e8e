package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mbagrov/bimtally/internal/model"
)

func reconcileCmd() *cobra.Command {
	var (
		filePath  string
		sheetID   string
		sheetRng  string
		tolerance float64
		exportTo  string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a bill of quantities against the model",
		Long: `Match each bill line (ВОР) to a semantic group of the model and flag
quantity deviations beyond tolerance, unmatched lines and model groups
missing from the bill.

The bill comes from --file (.json array or .xlsx) or --sheet (Google Sheets
spreadsheet id, with an optional --range).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if filePath == "" && sheetID == "" {
				return fmt.Errorf("either --file or --sheet is required")
			}

			eng, cleanup, err := buildEngine(cmd.Context(), sheetID != "")
			if err != nil {
				return err
			}
			defer cleanup()

			var doc *model.BoQDocument
			if filePath != "" {
				doc, err = eng.LoadBoQFile(filePath)
			} else {
				doc, err = eng.LoadBoQSheet(cmd.Context(), sheetID, sheetRng)
			}
			if err != nil {
				return err
			}

			bar := newSpinner("Reconciling against the model...")
			report, err := eng.Reconcile(cmd.Context(), doc, nil, tolerance)
			finishSpinner(bar)
			if err != nil {
				return err
			}

			if exportTo != "" {
				result, err := eng.ExportReconciliationExcel(report, exportTo, "")
				if err != nil {
					return err
				}
				fmt.Println(successStyle.Render("report written to " + result.Path))
			}

			if asJSON {
				return printJSON(report)
			}
			printReconciliationTable(report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "bill file (.json or .xlsx)")
	cmd.Flags().StringVar(&sheetID, "sheet", "", "Google Sheets spreadsheet id")
	cmd.Flags().StringVar(&sheetRng, "range", "", "sheet range (default: first sheet)")
	cmd.Flags().Float64VarP(&tolerance, "tolerance", "t", 0, "red-flag threshold in percent (default from config)")
	cmd.Flags().StringVar(&exportTo, "export", "", "also write the report to an .xlsx file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a table")
	return cmd
}

func printReconciliationTable(report *model.ReconciliationReport) {
	fmt.Println(titleStyle.Render("Reconciliation"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("POSITION"),
		headerStyle.Render("UNIT"),
		headerStyle.Render("ВОР"),
		headerStyle.Render("BIM"),
		headerStyle.Render("DIFF %"),
		headerStyle.Render("STATUS"),
		headerStyle.Render("METHOD"))

	printEntry := func(e model.ReconciliationEntry) {
		bim := "—"
		if e.BIMVolume != nil {
			bim = fmt.Sprintf("%.3f", *e.BIMVolume)
		}
		diff := "—"
		if e.DiffPct != nil {
			diff = fmt.Sprintf("%+.2f", *e.DiffPct)
		}
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\t%s\t%s\t%s\n",
			truncate(e.Name, 45), e.Unit, e.VORVolume, bim, diff, styleStatus(e.Status), e.MatchMethod)
	}
	for _, e := range report.Matches {
		printEntry(e)
	}
	for _, e := range report.RedFlags {
		printEntry(e)
	}
	_ = w.Flush()

	if len(report.MissingInVOR) > 0 {
		fmt.Println()
		fmt.Println(warningStyle.Render("In the model but missing from the bill:"))
		for _, m := range report.MissingInVOR {
			fmt.Printf("  %s (%s): %.3f %s\n", m.Label, m.Group, m.Quantity, m.Unit)
		}
	}
	for _, warn := range report.ParseWarnings {
		fmt.Println(warningStyle.Render(fmt.Sprintf("row %d: %s %q — %s", warn.Row, warn.Field, warn.Value, warn.Reason)))
	}

	s := report.Summary
	fmt.Println()
	fmt.Printf("%s  ok %s, red flags %s, no match %s, missing %s (tolerance %.1f%%)\n",
		subtleStyle.Render(fmt.Sprintf("%d positions:", s.TotalVOR)),
		successStyle.Render(fmt.Sprintf("%d", s.OK)),
		errorStyle.Render(fmt.Sprintf("%d", s.RedFlags)),
		warningStyle.Render(fmt.Sprintf("%d", s.NoMatch)),
		warningStyle.Render(fmt.Sprintf("%d", s.Missing)),
		s.TolerancePct)
}
