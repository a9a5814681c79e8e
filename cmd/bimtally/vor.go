package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/service"
	"github.com/mbagrov/bimtally/internal/vor"
)

func vorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vor",
		Short: "Generate bills of quantities from the model",
	}

	cmd.AddCommand(vorGenerateCmd())
	cmd.AddCommand(vorConvertCmd())
	cmd.AddCommand(vorSheetsCmd())
	return cmd
}

func vorGenerateCmd() *cobra.Command {
	var (
		groupFilter string
		minVolume   float64
		title       string
		exportTo    string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a bill from the model summary",
		Long: `Build one bill position per semantic group, quantified in the group's
canonical unit and sorted structural, architectural, mep.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Scanning model...")
			doc, err := eng.GenerateVOR(cmd.Context(), nil, vor.Options{
				GroupFilter: groupFilter,
				MinVolume:   minVolume,
				Title:       title,
			})
			finishSpinner(bar)
			if err != nil {
				return err
			}

			if exportTo != "" {
				result, err := eng.ExportVORExcel(doc, exportTo, title)
				if err != nil {
					return err
				}
				fmt.Println(successStyle.Render("bill written to " + result.Path))
			}
			if asJSON {
				return printJSON(doc)
			}
			printVORTable(doc)
			return nil
		},
	}

	cmd.Flags().StringVarP(&groupFilter, "group", "g", "", "discipline filter (all, structural, architectural, mep)")
	cmd.Flags().Float64Var(&minVolume, "min-volume", 0, "drop positions below this quantity")
	cmd.Flags().StringVar(&title, "title", "", "document title")
	cmd.Flags().StringVar(&exportTo, "export", "", "also write the bill to an .xlsx file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a table")
	return cmd
}

func vorConvertCmd() *cobra.Command {
	var (
		mappingPath string
		title       string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert the model summary through a position mapping",
		Long: `Build bill positions from a mapping file that names the position, unit and
quantity source per semantic group.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mappingPath == "" {
				return fmt.Errorf("--mapping is required")
			}
			eng, cleanup, err := buildEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Scanning model...")
			doc, err := eng.ConvertVOR(cmd.Context(), nil, mappingPath, title)
			finishSpinner(bar)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(doc)
			}
			printVORTable(doc)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "group-to-position mapping JSON")
	cmd.Flags().StringVar(&title, "title", "", "document title")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a table")
	return cmd
}

func vorSheetsCmd() *cobra.Command {
	var (
		spreadsheetID string
		sheetName     string
		groupFilter   string
		minVolume     float64
		title         string
	)

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Generate a bill and write it to Google Sheets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := buildEngine(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newSpinner("Scanning model...")
			doc, err := eng.GenerateVOR(cmd.Context(), nil, vor.Options{
				GroupFilter: groupFilter,
				MinVolume:   minVolume,
				Title:       title,
			})
			finishSpinner(bar)
			if err != nil {
				return err
			}

			export, err := eng.ExportVORSheets(cmd.Context(), doc, service.SheetTarget{
				SpreadsheetID: spreadsheetID,
				SheetName:     sheetName,
				Title:         title,
			})
			if err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("wrote %d rows to %s", export.RowsWritten, export.URL)))
			return nil
		},
	}

	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet", "", "target spreadsheet id (default from config)")
	cmd.Flags().StringVar(&sheetName, "sheet-name", "", "target sheet tab name")
	cmd.Flags().StringVarP(&groupFilter, "group", "g", "", "discipline filter (all, structural, architectural, mep)")
	cmd.Flags().Float64Var(&minVolume, "min-volume", 0, "drop positions below this quantity")
	cmd.Flags().StringVar(&title, "title", "", "document title")
	return cmd
}

func printVORTable(doc *model.VORDocument) {
	if doc.Title != "" {
		fmt.Println(titleStyle.Render(doc.Title))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("№"),
		headerStyle.Render("POSITION"),
		headerStyle.Render("UNIT"),
		headerStyle.Render("QUANTITY"),
		headerStyle.Render("SOURCE"))
	for _, p := range doc.Positions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%s\n",
			p.Num, truncate(p.Name, 50), p.Unit, p.Volume, subtleStyle.Render(p.SourceLabel()))
	}
	_ = w.Flush()
	fmt.Println(subtleStyle.Render(fmt.Sprintf("%d positions", doc.TotalCount)))
}
