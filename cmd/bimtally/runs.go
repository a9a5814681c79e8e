package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mbagrov/bimtally/internal/model"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse persisted reconciliation runs",
	}

	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent reconciliation runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := eng.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println(subtleStyle.Render("No runs recorded yet."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("STARTED"),
				headerStyle.Render("OK"),
				headerStyle.Render("RED FLAGS"),
				headerStyle.Render("NO MATCH"),
				headerStyle.Render("MISSING"),
				headerStyle.Render("TOLERANCE"))
			for _, run := range runs {
				flags := fmt.Sprintf("%d", run.RedFlags)
				if run.RedFlags > 0 {
					flags = errorStyle.Render(flags)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\t%.1f%%\n",
					run.ID, run.StartedAt.Format("2006-01-02 15:04"),
					run.OK, flags, run.NoMatch, run.Missing, run.TolerancePct)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")
	return cmd
}

func runsShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run's full report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			run, err := eng.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var report model.ReconciliationReport
			if err := json.Unmarshal([]byte(run.ReportJSON), &report); err != nil {
				return fmt.Errorf("failed to decode stored report: %w", err)
			}

			if asJSON {
				return printJSON(report)
			}
			fmt.Println(subtleStyle.Render(fmt.Sprintf("run %s, started %s",
				run.ID, run.StartedAt.Format("2006-01-02 15:04:05"))))
			printReconciliationTable(&report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a table")
	return cmd
}
