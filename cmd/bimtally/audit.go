package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mbagrov/bimtally/internal/audit"
)

func auditCmd() *cobra.Command {
	var (
		checks []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run modeling-quality checks on the model",
		Long: fmt.Sprintf(`Check the host document for modeling defects that corrupt quantity
takeoffs. Available checks: %s.`, strings.Join(audit.CheckNames(), ", ")),
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Auditing model...")
			report, err := eng.Audit(cmd.Context(), checks)
			finishSpinner(bar)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(report)
			}

			if report.Summary.TotalIssues == 0 {
				fmt.Println(successStyle.Render("No issues found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				headerStyle.Render("CHECK"),
				headerStyle.Render("SEVERITY"),
				headerStyle.Render("ELEMENT"),
				headerStyle.Render("DESCRIPTION"))
			for _, issue := range report.Issues {
				severity := string(issue.Severity)
				switch issue.Severity {
				case audit.SeverityError:
					severity = errorStyle.Render(severity)
				case audit.SeverityWarning:
					severity = warningStyle.Render(severity)
				}
				element := ""
				if issue.ElementID != 0 {
					element = fmt.Sprintf("%d", issue.ElementID)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", issue.Check, severity, element, truncate(issue.Description, 70))
			}
			_ = w.Flush()

			fmt.Println()
			fmt.Println(subtleStyle.Render(fmt.Sprintf("%d issues across %d checks",
				report.Summary.TotalIssues, len(report.Summary.ChecksRun))))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&checks, "checks", nil, "checks to run (default: all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a table")
	return cmd
}
