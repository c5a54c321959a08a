// Package pipeline runs the full analysis of one schematic page:
// detect, read, group, pins, resolve.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"schem-tracer/internal/config"
	"schem-tracer/internal/netlist"
	"schem-tracer/internal/pins"
	"schem-tracer/internal/terminal"
	"schem-tracer/internal/text"
	"schem-tracer/internal/vector"

	"github.com/google/uuid"
)

// Inputs is everything one run consumes. Embedded and OCR may each be nil.
type Inputs struct {
	Model    *vector.Model
	Embedded text.Source
	OCR      *text.OCRSource
	Regions  []pins.Region
	Config   config.DetectionConfig
}

// Stage names, in run order.
const (
	StageDetect  = "detect"
	StageRead    = "read"
	StageGroup   = "group"
	StagePins    = "pins"
	StageResolve = "resolve"
)

// Progress is called after each stage finishes.
type Progress func(stage string, elapsed time.Duration)

// Runner executes analysis runs.
type Runner struct {
	// OnStage, if set, is told when each stage completes.
	OnStage Progress
	// NewRunID stamps each report; defaults to a random UUID.
	NewRunID func() string
}

// Run executes a full analysis with a default Runner.
func Run(ctx context.Context, in Inputs) (*netlist.Report, error) {
	return (&Runner{}).Run(ctx, in)
}

// Run executes all stages in order. Cancellation is checked between stages.
// The only errors are an invalid config, a malformed model, and cancellation;
// missing text or OCR only leaves entities unlabelled in the report.
func (r *Runner) Run(ctx context.Context, in Inputs) (*netlist.Report, error) {
	if err := in.Config.Validate(); err != nil {
		return nil, err
	}
	model := in.Model
	if model == nil {
		model = &vector.Model{}
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if r.NewRunID != nil {
		runID = r.NewRunID()
	}
	log.Printf("pipeline: run %s, page %d, %d primitives, %d groups, %d regions",
		runID, model.Page.Number, len(model.Primitives), len(model.Groups), len(in.Regions))

	// The OCR link is left out entirely when it cannot run, so the chain
	// does not warn on every query.
	src := text.NewChain(in.Embedded)
	ocrAvailable := in.OCR.Available()
	if ocrAvailable {
		src = text.NewChain(in.Embedded, in.OCR)
	} else {
		log.Printf("pipeline: OCR fallback unavailable, using embedded text only")
	}

	cfg := in.Config
	var (
		terms   []terminal.Terminal
		pinList []pins.Pin
		res     *netlist.Result
		err     error
	)

	stages := []struct {
		name string
		run  func() error
	}{
		{StageDetect, func() error {
			terms = terminal.Detect(model.Circles(), cfg)
			return nil
		}},
		{StageRead, func() error {
			terms, err = terminal.ReadLabels(ctx, terms, src, cfg)
			return err
		}},
		{StageGroup, func() error {
			terms, err = terminal.AssignGroups(ctx, terms, src, cfg)
			return err
		}},
		{StagePins, func() error {
			pinList, err = pins.FindPins(ctx, in.Regions, model.Paths(), src, cfg)
			return err
		}},
		{StageResolve, func() error {
			res = netlist.Resolve(model, terms, pinList, cfg)
			return netlist.NameBusbars(ctx, res, model.Page.Width, in.Regions, src, cfg)
		}},
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			log.Printf("pipeline: run %s cancelled before %s", runID, st.name)
			return nil, err
		}
		start := time.Now()
		if err := st.run(); err != nil {
			return nil, fmt.Errorf("%s stage: %w", st.name, err)
		}
		if r.OnStage != nil {
			r.OnStage(st.name, time.Since(start))
		}
	}

	report := netlist.NewReport(runID, model, terms, pinList, res, ocrAvailable)
	log.Printf("pipeline: run %s done: %d terminals, %d pins, %d nets, %d orphans",
		runID, report.Stats.Terminals, report.Stats.Pins, report.Stats.Nets, report.Stats.Orphans)
	return report, nil
}
