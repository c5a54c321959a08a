package netlist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"schem-tracer/internal/pins"
	"schem-tracer/internal/terminal"
	"schem-tracer/internal/text"
	"schem-tracer/internal/vector"
)

// Conflict is a terminal whose embedded and OCR readings differ.
type Conflict struct {
	Terminal string `json:"terminal"`
	Embedded string `json:"embedded"`
	OCR      string `json:"ocr"`
}

// Stats summarises one run.
type Stats struct {
	Terminals        int `json:"terminals"`
	Labeled          int `json:"labeled"`
	Grouped          int `json:"grouped"`
	Inherited        int `json:"inherited"`
	Pins             int `json:"pins"`
	LabeledPins      int `json:"labeled_pins"`
	Nets             int `json:"nets"`
	SingleEnded      int `json:"single_ended"`
	Orphans          int `json:"orphans"`
	ForkSuspectNets  int `json:"fork_suspect_nets"`
	StructuralGroups int `json:"structural_groups"`
}

// Report is everything a run produces, in a form ready for export.
type Report struct {
	RunID        string              `json:"run_id"`
	Page         vector.PageInfo     `json:"page"`
	OCRAvailable bool                `json:"ocr_available"`
	Terminals    []terminal.Terminal `json:"terminals"`
	Pins         []pins.Pin          `json:"pins"`
	Nets         []Net               `json:"nets"`
	Orphans      []Member            `json:"orphans"`
	ForkSuspects []ForkSuspect       `json:"fork_suspects"`

	// Manual review lists
	Unlabeled        []Member   `json:"unlabeled"`
	UnresolvedGroups []Member   `json:"unresolved_groups"`
	LabelConflicts   []Conflict `json:"label_conflicts"`

	Stats Stats `json:"stats"`
}

// NewReport assembles a report from the stage outputs.
func NewReport(runID string, model *vector.Model, terms []terminal.Terminal, pinList []pins.Pin, res *Result, ocrAvailable bool) *Report {
	if res == nil {
		res = &Result{}
	}
	r := &Report{
		RunID:            runID,
		OCRAvailable:     ocrAvailable,
		Terminals:        nonNil(terms),
		Pins:             nonNil(pinList),
		Nets:             nonNil(res.Nets),
		Orphans:          nonNil(res.Orphans),
		ForkSuspects:     nonNil(res.ForkSuspects),
		Unlabeled:        []Member{},
		UnresolvedGroups: []Member{},
		LabelConflicts:   []Conflict{},
	}
	if model != nil {
		r.Page = model.Page
		r.Stats.StructuralGroups = len(model.Groups)
	}

	for _, t := range terms {
		m := Member{Type: ElementTerminal, ID: t.FullID(), Position: t.Center, Partial: t.Partial()}
		if t.Unlabeled() {
			r.Unlabeled = append(r.Unlabeled, m)
		} else {
			r.Stats.Labeled++
		}
		if t.Ungrouped() {
			r.UnresolvedGroups = append(r.UnresolvedGroups, m)
		} else {
			r.Stats.Grouped++
			if t.GroupSource.Inherited() {
				r.Stats.Inherited++
			}
		}
		if c := t.LabelConflict; c != nil {
			r.LabelConflicts = append(r.LabelConflicts, conflictOf(t.FullID(), c))
		}
	}
	for _, p := range pinList {
		if p.Unlabeled() {
			r.Unlabeled = append(r.Unlabeled, Member{Type: ElementPin, ID: p.ID(), Position: p.Position, Partial: true})
		} else {
			r.Stats.LabeledPins++
		}
	}

	r.Stats.Terminals = len(terms)
	r.Stats.Pins = len(pinList)
	r.Stats.Nets = len(r.Nets)
	r.Stats.SingleEnded = len(res.SingleEnded())
	r.Stats.Orphans = len(r.Orphans)
	for _, f := range r.ForkSuspects {
		r.Stats.ForkSuspectNets += len(f.Nets)
	}
	return r
}

func conflictOf(id string, d *text.Disagreement) Conflict {
	c := Conflict{Terminal: id}
	for _, m := range []text.Match{d.Chosen, d.Other} {
		switch m.Origin {
		case text.OriginEmbedded:
			c.Embedded = m.Text
		case text.OriginOCR:
			c.OCR = m.Text
		}
	}
	return c
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Format writes the human-readable connection report.
func (r *Report) Format(w io.Writer) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) { fmt.Fprintf(bw, format, args...) }

	p("Connection report (run %s)\n", r.RunID)
	if r.Page.Number > 0 {
		p("Page %d\n", r.Page.Number)
	}
	p("%d terminals (%d labeled, %d grouped), %d pins, %d nets, %d orphans\n",
		r.Stats.Terminals, r.Stats.Labeled, r.Stats.Grouped, r.Stats.Pins, r.Stats.Nets, r.Stats.Orphans)
	if !r.OCRAvailable {
		p("OCR fallback unavailable: labels were read from embedded text only\n")
	}
	p("\n")

	for _, n := range r.Nets {
		header := n.ID
		if n.Name != n.ID {
			header += " " + n.Name
		}
		if n.Busbar != "" && n.Busbar != n.Name {
			header += " (" + n.Busbar + ")"
		}
		if n.SingleEnded {
			header += "  [single-ended]"
		}
		p("%s\n", header)
		for _, m := range n.Members {
			p("  %-8s %s\n", m.Type, m)
		}
	}

	if len(r.Orphans) > 0 {
		p("\nOrphans (touch no wire):\n")
		for _, m := range r.Orphans {
			p("  %-8s %s\n", m.Type, m)
		}
	}

	if len(r.Unlabeled)+len(r.UnresolvedGroups)+len(r.LabelConflicts) > 0 {
		p("\nManual review:\n")
		for _, m := range r.Unlabeled {
			p("  unlabeled       %-8s at (%.1f, %.1f)\n", m.Type, m.Position.X, m.Position.Y)
		}
		for _, m := range r.UnresolvedGroups {
			p("  no group        %s\n", m)
		}
		for _, c := range r.LabelConflicts {
			p("  text mismatch   %s: embedded %q, OCR %q\n", c.Terminal, c.Embedded, c.OCR)
		}
	}

	if len(r.ForkSuspects) > 0 {
		p("\nPossible forks (not merged, check the drawing):\n")
		for _, f := range r.ForkSuspects {
			p("  %s\n", strings.Join(f.Nets, ", "))
		}
	}
	p("\nNote: wires that branch may be split into separate nets; nets are reported as extracted.\n")

	return bw.Flush()
}
