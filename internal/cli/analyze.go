package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"schem-tracer/internal/config"
	"schem-tracer/internal/export"
	"schem-tracer/internal/ocr"
	"schem-tracer/internal/pins"
	"schem-tracer/internal/pipeline"
	"schem-tracer/internal/project"
	"schem-tracer/internal/raster"
	"schem-tracer/internal/text"
	"schem-tracer/internal/vector"

	"github.com/spf13/cobra"
)

// analyzeOptions are the inputs of one analyze run, from flags or a job file.
type analyzeOptions struct {
	modelPath   string
	pdfPath     string
	page        int
	textPath    string
	rasterPath  string
	dpi         float64
	regionsPath string
	format      string
	outputPath  string
	noOCR       bool
	lang        string
	projectPath string
}

var (
	analyzeOpts   analyzeOptions
	analyzeTuning tuningOptions
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract the netlist of one schematic page",
	Long: `Run terminal detection, label reading, grouping, pin finding and net
resolution on one page and write the connection report.

The vector model (--model) is required. Embedded text comes from --text (a
JSON array of runs) or from the PDF page (--pdf, --page). When a page raster
is given (--raster) and Tesseract is installed, OCR fills in labels the
embedded text lacks; otherwise those entities are reported unlabelled.

With --project all inputs are taken from a job file; flags given on the
command line override it. Detection settings come from --config (or the job)
and single settings can be overridden with the tuning flags below.

Examples:
  schem-tracer analyze --model page12.json --pdf plan.pdf --page 12
  schem-tracer analyze --model page12.json --pdf plan.pdf --page 12 \
    --raster page12.tif --dpi 300 --regions plc.json --format xlsx -o page12.xlsx`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.modelPath, "model", "m", "", "vector model JSON of the page")
	f.StringVar(&analyzeOpts.pdfPath, "pdf", "", "schematic PDF for the embedded text layer")
	f.IntVarP(&analyzeOpts.page, "page", "p", 1, "page number in the PDF (1-based)")
	f.StringVar(&analyzeOpts.textPath, "text", "", "text runs JSON (instead of --pdf)")
	f.StringVar(&analyzeOpts.rasterPath, "raster", "", "page raster for the OCR fallback (PNG, JPEG, TIFF)")
	f.Float64Var(&analyzeOpts.dpi, "dpi", 300, "resolution of the page raster")
	f.StringVar(&analyzeOpts.regionsPath, "regions", "", "component regions JSON")
	f.StringVarP(&analyzeOpts.format, "format", "f", "", "output format: text, json, csv, xlsx (default from --output extension, else text)")
	f.StringVarP(&analyzeOpts.outputPath, "output", "o", "", "output file (stdout when empty)")
	f.BoolVar(&analyzeOpts.noOCR, "no-ocr", false, "never use the OCR fallback")
	f.StringVar(&analyzeOpts.lang, "lang", "eng", "Tesseract language")
	f.StringVar(&analyzeOpts.projectPath, "project", "", "job file ("+project.Ext+") supplying the inputs")
	addTuningFlags(f, &analyzeTuning)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	opts := analyzeOpts

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.projectPath != "" {
		if cfg, err = applyProject(cmd, &opts, cfg); err != nil {
			return err
		}
	}
	if cfg, err = applyTuning(cmd.Flags(), analyzeTuning, cfg); err != nil {
		return err
	}
	if opts.modelPath == "" {
		return fmt.Errorf("--model is required")
	}

	format, err := outputFormat(opts.format, opts.outputPath)
	if err != nil {
		return err
	}

	model, err := vector.Load(opts.modelPath)
	if err != nil {
		return err
	}

	in := pipeline.Inputs{
		Model:  model,
		Config: cfg,
	}
	if layer := loadEmbedded(opts, cfg); layer != nil {
		in.Embedded = layer
	}
	if opts.regionsPath != "" {
		if in.Regions, err = pins.LoadRegions(opts.regionsPath); err != nil {
			return err
		}
	}
	if !opts.noOCR && opts.rasterPath != "" {
		src, closeFn := loadOCR(opts, cfg)
		defer closeFn()
		in.OCR = src
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := &pipeline.Runner{}
	if verbose {
		runner.OnStage = func(stage string, elapsed time.Duration) {
			log.Printf("analyze: %s finished in %v", stage, elapsed.Round(time.Millisecond))
		}
	}
	report, err := runner.Run(ctx, in)
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), opts.outputPath, format, func(w io.Writer) error {
		return export.Write(w, report, format)
	}); err != nil {
		return err
	}

	if verbose {
		log.Printf("analyze: %d nets, %d orphans in %v",
			report.Stats.Nets, report.Stats.Orphans, time.Since(startTime).Round(time.Millisecond))
	}
	return nil
}

func loadConfig() (config.DetectionConfig, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyProject fills every option not set on the command line from the job
// file. An explicit --config wins over the job's settings.
func applyProject(cmd *cobra.Command, opts *analyzeOptions, cfg config.DetectionConfig) (config.DetectionConfig, error) {
	job, err := project.Load(opts.projectPath)
	if err != nil {
		return cfg, err
	}
	log.Printf("analyze: job %q from %s", job.Name, opts.projectPath)

	set := func(name string, dst *string, val string) {
		if !cmd.Flags().Changed(name) && val != "" {
			*dst = val
		}
	}
	path := opts.projectPath
	set("model", &opts.modelPath, job.GetModelPath(path))
	set("pdf", &opts.pdfPath, job.GetPDFPath(path))
	set("text", &opts.textPath, job.GetTextPath(path))
	set("raster", &opts.rasterPath, job.GetRasterPath(path))
	set("regions", &opts.regionsPath, job.GetRegionsPath(path))
	set("format", &opts.format, job.Format)
	set("output", &opts.outputPath, job.GetOutputPath(path))
	if !cmd.Flags().Changed("page") && job.Page > 0 {
		opts.page = job.Page
	}
	if !cmd.Flags().Changed("dpi") && job.DPI > 0 {
		opts.dpi = job.DPI
	}

	if configPath != "" {
		return cfg, nil
	}
	return job.DetectionConfig(), nil
}

func outputFormat(name, outputPath string) (export.Format, error) {
	if name != "" {
		return export.ParseFormat(name)
	}
	if ext := filepath.Ext(outputPath); ext != "" {
		return export.ParseFormat(ext)
	}
	return export.FormatText, nil
}

// loadEmbedded returns the embedded text layer, or nil when none is
// configured or it cannot be read.
func loadEmbedded(opts analyzeOptions, cfg config.DetectionConfig) *text.Layer {
	switch {
	case opts.textPath != "":
		runs, err := text.LoadRuns(opts.textPath)
		if err != nil {
			log.Printf("analyze: embedded text unavailable: %v", err)
			return nil
		}
		return text.NewLayer(runs, cfg.YTolerance)
	case opts.pdfPath != "":
		layer, err := text.LoadPDFLayer(opts.pdfPath, opts.page, cfg.YTolerance)
		if err != nil {
			log.Printf("analyze: embedded text unavailable: %v", err)
			return nil
		}
		log.Printf("analyze: %d text runs on page %d", layer.Len(), opts.page)
		return layer
	}
	log.Printf("analyze: no embedded text given")
	return nil
}

// loadOCR builds the OCR fallback. It returns nil when the raster or the
// Tesseract engine cannot be loaded; the run then continues without OCR.
func loadOCR(opts analyzeOptions, cfg config.DetectionConfig) (*text.OCRSource, func()) {
	nop := func() {}
	page, err := raster.Load(opts.rasterPath, opts.dpi)
	if err != nil {
		log.Printf("analyze: OCR disabled, raster unreadable: %v", err)
		return nil, nop
	}
	engine, err := ocr.NewEngine(opts.lang)
	if err != nil {
		log.Printf("analyze: OCR disabled: %v", err)
		return nil, nop
	}
	return &text.OCRSource{
		Raster:        page,
		Recognizer:    engine,
		Padding:       cfg.OCRPadding,
		Zoom:          cfg.OCRZoom,
		MinConfidence: cfg.OCRMinConfidence,
		Whitelist:     ocr.LabelChars,
	}, func() { engine.Close() }
}

// writeReport writes to outputPath, or to out when it is empty.
func writeReport(out io.Writer, outputPath string, format export.Format, write func(io.Writer) error) error {
	if outputPath == "" {
		return write(out)
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("analyze: report written to %s", outputPath)
	return nil
}
