// Package cli implements the schem-tracer command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time using -ldflags
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "schem-tracer",
	Short: "Netlist extractor for vector schematic pages",
	Long: `Reconstruct terminal-to-pin connectivity from one page of a vector PDF
schematic. Terminals are found among the page's circles, labelled from the
embedded text layer (with an OCR fallback on a page raster), grouped into
terminal strips, and joined into nets through the drawing's wire groups.

Examples:
  schem-tracer analyze --model page12.json --pdf plan.pdf --page 12
  schem-tracer analyze --model page12.json --text runs.json --regions plc.json -f csv -o nets.csv
  schem-tracer analyze --project sheet12.schemproj
  schem-tracer text --pdf plan.pdf --page 12
  schem-tracer config init --config tracer.json`,
	Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"detection config JSON (defaults when empty)")
}
