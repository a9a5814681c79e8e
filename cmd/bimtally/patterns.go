package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mbagrov/bimtally/internal/pattern"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect the classification pattern table",
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsValidateCmd())
	return cmd
}

func patternsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded classification patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			info := eng.PatternsInfo()
			fmt.Println(subtleStyle.Render(fmt.Sprintf("source: %s", info.Source)))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("GROUP"),
				headerStyle.Render("UNIT"),
				headerStyle.Render("PRIORITY"),
				headerStyle.Render("KEYWORDS"),
				headerStyle.Render("EXCLUDES"))
			for _, p := range eng.Patterns() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					p.ID, p.Group, p.CanonicalUnit, p.Priority,
					truncate(strings.Join(p.Keywords, ", "), 40),
					truncate(strings.Join(p.NegativeKeywords, ", "), 25))
			}
			return w.Flush()
		},
	}
}

func patternsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a pattern table file",
		Long: `Load and validate a pattern JSON file. Without an argument, validates the
configured table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var store *pattern.Store
			if len(args) == 1 {
				store = pattern.Load(args[0])
			} else {
				eng, cleanup, err := buildEngine(cmd.Context(), false)
				if err != nil {
					return err
				}
				defer cleanup()

				info := eng.PatternsInfo()
				reportValidation(info.Source, info.Loaded, info.Problems)
				if len(info.Problems) > 0 {
					return fmt.Errorf("%d patterns dropped", len(info.Problems))
				}
				return nil
			}

			valid, problems := pattern.Validate(store.Patterns())
			reportValidation(store.Source(), len(valid), problems)
			if len(problems) > 0 {
				return fmt.Errorf("%d patterns dropped", len(problems))
			}
			return nil
		},
	}
}

func reportValidation(source string, loaded int, problems []string) {
	fmt.Println(subtleStyle.Render("source: " + source))
	for _, p := range problems {
		fmt.Println(errorStyle.Render("✗ " + p))
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ %d patterns valid", loaded)))
}
