package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"schem-tracer/internal/text"

	"github.com/spf13/cobra"
)

var (
	textPDF  string
	textPage int
	textRaw  bool
	textJSON bool
)

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Dump the embedded text layer of a PDF page",
	Long: `Print the text runs of one PDF page with their positions in page units
(top-down Y), after normalisation and line joining. Use --raw to see the runs
exactly as the PDF reader returns them, and --json to write a runs file that
analyze --text accepts.`,
	RunE: runText,
}

func init() {
	rootCmd.AddCommand(textCmd)

	textCmd.Flags().StringVar(&textPDF, "pdf", "", "schematic PDF")
	textCmd.Flags().IntVarP(&textPage, "page", "p", 1, "page number (1-based)")
	textCmd.Flags().BoolVar(&textRaw, "raw", false, "skip normalisation and line joining")
	textCmd.Flags().BoolVar(&textJSON, "json", false, "write JSON runs instead of a table")

	textCmd.MarkFlagRequired("pdf")
}

func runText(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runs, err := text.ReadPDFRuns(textPDF, textPage)
	if err != nil {
		return err
	}
	if !textRaw {
		runs = text.NewLayer(runs, cfg.YTolerance).Runs()
	}

	out := cmd.OutOrStdout()
	if textJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	fmt.Fprintf(out, "%8s %8s %7s %7s  %s\n", "X", "Y", "W", "H", "Text")
	for _, r := range runs {
		c := r.Center()
		fmt.Fprintf(out, "%8.1f %8.1f %7.1f %7.1f  %s\n", c.X, c.Y, r.BBox.Width, r.BBox.Height, r.Text)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "%d runs on page %d\n", len(runs), textPage)
	}
	return nil
}
