package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/revit"
)

func queryCmd() *cobra.Command {
	var (
		colorize bool
		limit    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Ask a natural-language question about model elements",
		Long: `Interpret free text ("стены на 2 этаже", "воздуховоды длиннее 5 метров")
into a structured search and run it against the model.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Searching...")
			result, err := eng.Query(cmd.Context(), strings.Join(args, " "), colorize, limit)
			finishSpinner(bar)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(result)
			}

			interp := result.Interpretation
			fmt.Println(subtleStyle.Render(fmt.Sprintf("interpreted via %s: category=%s level=%s filters=%d",
				interp.Method, interp.Spec.Category, interp.Spec.Level, len(interp.Spec.Filters))))
			printSearchResult(result.Result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&colorize, "colorize", false, "highlight matches in the active view")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum elements to return")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a table")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		level      string
		rawFilters string
		limit      int
		colorize   bool
		color      string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "search <category>",
		Short: "Structured element search",
		Long: `Search elements of a category with optional level and parameter filters.
Filters are a JSON array: '[{"param": "Объем", "op": "gt", "value": "5"}]'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := model.QuerySpec{
				Category: args[0],
				Level:    level,
				Limit:    limit,
				Colorize: colorize,
				Color:    color,
			}
			if rawFilters != "" {
				if err := json.Unmarshal([]byte(rawFilters), &spec.Filters); err != nil {
					return fmt.Errorf("invalid --filters: %w", err)
				}
			}

			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Searching...")
			result, err := eng.Search(cmd.Context(), spec)
			finishSpinner(bar)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(result)
			}
			printSearchResult(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", "", "level name or number")
	cmd.Flags().StringVar(&rawFilters, "filters", "", "parameter filters as a JSON array")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum elements to return")
	cmd.Flags().BoolVar(&colorize, "colorize", false, "highlight matches in the active view")
	cmd.Flags().StringVar(&color, "color", "", "highlight color")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a table")
	return cmd
}

func printSearchResult(result *revit.SearchResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("TYPE"),
		headerStyle.Render("LEVEL"),
		headerStyle.Render("VOLUME м³"),
		headerStyle.Render("AREA м²"))
	for _, hit := range result.Elements {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%.3f\n",
			hit.ID, truncate(hit.TypeName, 40), hit.Level, hit.VolumeM3, hit.AreaM2)
	}
	_ = w.Flush()

	line := fmt.Sprintf("%d elements, %.3f м³, %.3f м²", result.Count, result.TotalVolumeM3, result.TotalAreaM2)
	if result.Colorized {
		line += " (colorized in the active view)"
	}
	fmt.Println(subtleStyle.Render(line))
}

func inspectCmd() *cobra.Command {
	var maxParams int

	cmd := &cobra.Command{
		Use:   "inspect <element-id>",
		Short: "Dump one element's parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			elementID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid element id: %s", args[0])
			}

			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := eng.Inspect(cmd.Context(), elementID, maxParams)
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}

	cmd.Flags().IntVar(&maxParams, "max-params", 0, "cap on parameters per block")
	return cmd
}

func volumesCmd() *cobra.Command {
	var (
		categories []string
		groupBy    string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "volumes",
		Short: "Per-type or per-level quantity totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Scanning model...")
			result, err := eng.Volumes(cmd.Context(), categories, groupBy)
			finishSpinner(bar)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(result)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("CATEGORY"),
				headerStyle.Render(strings.ToUpper(groupByLabel(groupBy))),
				headerStyle.Render("COUNT"),
				headerStyle.Render("VOLUME м³"),
				headerStyle.Render("AREA м²"))
			for category, groups := range result {
				for _, g := range groups {
					fmt.Fprintf(w, "%s\t%s\t%d\t%.3f\t%.3f\n",
						category, truncate(g.Name, 40), g.Count, g.VolumeM3, g.AreaM2)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVarP(&categories, "categories", "c", nil, "categories to scan (default: Walls, Floors, Roofs)")
	cmd.Flags().StringVarP(&groupBy, "group-by", "g", "type", "grouping key (type, level)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a table")
	return cmd
}

func groupByLabel(groupBy string) string {
	if groupBy == "level" {
		return "level"
	}
	return "type"
}
