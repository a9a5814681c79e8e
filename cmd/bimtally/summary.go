package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mbagrov/bimtally/internal/engine"
	"github.com/mbagrov/bimtally/internal/model"
)

func summaryCmd() *cobra.Command {
	var (
		mode       string
		categories []string
		withLinks  bool
		byLevel    bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Build a semantic quantity summary of the model",
		Long: `Scan the connected Revit model and aggregate element quantities into
construction semantic groups (monolithic walls, slabs, ducts, ...).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Scanning model...")
			sum, err := eng.BuildSummary(cmd.Context(), engine.SummaryOptions{
				Mode:         mode,
				Categories:   categories,
				IncludeLinks: withLinks,
				ByLevel:      byLevel,
			})
			finishSpinner(bar)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(sum)
			}
			printSummaryTable(sum)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "full", "discipline filter (full, structural, architectural, mep)")
	cmd.Flags().StringSliceVarP(&categories, "categories", "c", nil, "categories to scan (default: whole registry)")
	cmd.Flags().BoolVar(&withLinks, "links", false, "merge loaded linked models")
	cmd.Flags().BoolVar(&byLevel, "by-level", false, "attach per-level breakdowns")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a table")
	return cmd
}

func printSummaryTable(sum *model.Summary) {
	fmt.Println(titleStyle.Render("Model summary"))

	type row struct {
		domain string
		name   string
		group  *model.GroupEntry
	}
	var rows []row
	for domain, groups := range sum.Groups {
		for name, g := range groups {
			rows = append(rows, row{domain, name, g})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].domain != rows[j].domain {
			return rows[i].domain < rows[j].domain
		}
		return rows[i].group.TotalVolumeM3 > rows[j].group.TotalVolumeM3
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("GROUP"),
		headerStyle.Render("COUNT"),
		headerStyle.Render("VOLUME м³"),
		headerStyle.Render("AREA м²"),
		headerStyle.Render("LENGTH м"))
	for _, r := range rows {
		fmt.Fprintf(w, "%s.%s\t%d\t%.3f\t%.3f\t%.3f\n",
			r.domain, r.name,
			r.group.TotalCount, r.group.TotalVolumeM3, r.group.TotalAreaM2, r.group.TotalLengthM)
	}
	_ = w.Flush()

	if n := len(sum.Unrecognized); n > 0 {
		fmt.Println(warningStyle.Render(fmt.Sprintf("unrecognized types: %d", n)))
	}
	if sum.LevelWarning != "" {
		fmt.Println(warningStyle.Render(sum.LevelWarning))
	}
	if sum.LinksError != "" {
		fmt.Println(warningStyle.Render(sum.LinksError))
	}
	if sum.Meta.LinkedFilesFound > 0 {
		fmt.Println(subtleStyle.Render(fmt.Sprintf("linked files: %d found, %d merged",
			sum.Meta.LinkedFilesFound, sum.Meta.LinkedFilesLoaded)))
	}
}

func catalogCmd() *cobra.Command {
	var (
		categories []string
		withParams bool
		withLinks  bool
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Scan the raw per-type catalog without classification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Scanning model...")
			result, err := eng.Catalog(cmd.Context(), engine.CatalogOptions{
				Categories:    categories,
				IncludeParams: withParams,
				IncludeLinks:  withLinks,
			})
			finishSpinner(bar)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringSliceVarP(&categories, "categories", "c", nil, "categories to scan (default: whole registry)")
	cmd.Flags().BoolVar(&withParams, "params", false, "include sampled type parameters")
	cmd.Flags().BoolVar(&withLinks, "links", false, "also scan loaded linked models")
	return cmd
}

func linksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "List linked model files in the host document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			links, err := eng.Links(cmd.Context())
			if err != nil {
				return err
			}
			if len(links) == 0 {
				fmt.Println(subtleStyle.Render("No linked files in the document."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				headerStyle.Render("NAME"),
				headerStyle.Render("LOADED"),
				headerStyle.Render("ELEMENTS"),
				headerStyle.Render("PATH"))
			for _, link := range links {
				loaded := successStyle.Render("yes")
				if !link.Loaded {
					loaded = errorStyle.Render("no")
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", link.Name, loaded, link.ElementCount, link.Path)
			}
			return w.Flush()
		},
	}
}

// truncate shortens s for table cells.
func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
