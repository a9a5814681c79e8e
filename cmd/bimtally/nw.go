package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func nwCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nw",
		Short: "Navisworks federation and clash detection",
	}

	cmd.AddCommand(nwStatusCmd())
	cmd.AddCommand(nwClashesCmd())
	cmd.AddCommand(nwRunCmd())
	cmd.AddCommand(nwVolumesCmd())
	cmd.AddCommand(nwAggregateCmd())
	return cmd
}

func nwStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the Navisworks plugin and document state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			status, err := eng.NWStatus(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	}
}

func nwClashesCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "clashes",
		Short: "List clash tests with result rollups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := eng.NWClashes(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if list.Count == 0 {
				fmt.Println(subtleStyle.Render("No clash tests in the document."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				headerStyle.Render("TEST"),
				headerStyle.Render("STATUS"),
				headerStyle.Render("CLASHES"))
			for _, test := range list.Tests {
				count := fmt.Sprintf("%d", test.TotalClashes)
				if test.TotalClashes > 0 {
					count = errorStyle.Render(count)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", test.Name, test.Status, count)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&filter, "test", "", "substring filter on the test name")
	return cmd
}

func nwRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <test-name>",
		Short: "Run one clash test and print its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Running clash test...")
			run, err := eng.NWRunClash(cmd.Context(), args[0])
			finishSpinner(bar)
			if err != nil {
				return err
			}
			return printJSON(run)
		},
	}
}

func nwVolumesCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "volumes",
		Short: "Quantity takeoff from the federated model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := eng.NWVolumes(cmd.Context(), category)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category filter")
	return cmd
}

func nwAggregateCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "aggregate <model>...",
		Short: "Federate model files into one document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Federating models...")
			result, err := eng.NWAggregate(cmd.Context(), args, outputPath)
			finishSpinner(bar)
			if err != nil {
				return err
			}

			if result.Success {
				fmt.Println(successStyle.Render(fmt.Sprintf("appended %d models, saved to %s",
					result.AppendedCount, result.SavedTo)))
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "target document path")
	return cmd
}
