package terminal

import (
	"context"
	"fmt"
	"log"

	"schem-tracer/internal/config"
	"schem-tracer/internal/text"
)

// ReadLabels returns a copy of terminals with labels resolved from src.
// Each terminal gets one query anchored at its centre; queries run in
// parallel and the output keeps the input order. Group markers are never
// taken as labels. Terminals without a readable label keep an empty Label.
func ReadLabels(ctx context.Context, terminals []Terminal, src text.Source, cfg config.DetectionConfig) ([]Terminal, error) {
	patterns, err := cfg.Compile()
	if err != nil {
		return nil, err
	}

	out := make([]Terminal, len(terminals))
	copy(out, terminals)
	if src == nil {
		log.Printf("terminal: no text source, %d terminals left unlabeled", len(out))
		for i := range out {
			out[i].Label, out[i].LabelSource, out[i].LabelConfidence, out[i].LabelConflict = "", text.OriginNone, 0, nil
		}
		return out, nil
	}

	queries := make([]text.Query, len(out))
	for i, t := range out {
		queries[i] = text.Query{
			Anchor:       t.Center,
			Radius:       cfg.SearchRadius,
			Direction:    cfg.Direction,
			Pattern:      patterns.Label,
			Exclude:      patterns.Group,
			AnchorRadius: t.Radius,
		}
	}

	results, err := text.FindAll(ctx, src, queries, cfg.Workers(), cfg.CheckDisagreement)
	if err != nil {
		return nil, fmt.Errorf("failed to read terminal labels: %w", err)
	}

	var labeled, conflicts int
	for i, r := range results {
		t := &out[i]
		t.Label, t.LabelSource, t.LabelConfidence, t.LabelConflict = "", text.OriginNone, 0, nil
		if !r.OK {
			continue
		}
		t.Label = r.Match.Text
		t.LabelSource = r.Match.Origin
		t.LabelConfidence = r.Match.Confidence
		t.LabelConflict = r.Conflict
		labeled++
		if r.Conflict != nil {
			conflicts++
		}
	}
	log.Printf("terminal: labeled %d/%d terminals via %s (%d conflicts)", labeled, len(out), src.Name(), conflicts)
	return out, nil
}
