// Package pins finds labelled wire endpoints inside user-declared
// component regions.
package pins

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"

	"schem-tracer/internal/config"
	"schem-tracer/internal/text"
	"schem-tracer/internal/vector"
	"schem-tracer/pkg/geometry"
)

// Region is a named component outline drawn by the user.
type Region struct {
	Name string               `json:"name"`
	Box  geometry.OrientedBox `json:"box"`
}

// NewRegion creates an axis-aligned region.
func NewRegion(name string, r geometry.Rect) Region {
	return Region{Name: name, Box: geometry.BoxFromRect(r)}
}

// regionFile is one entry of a regions file. A region is given either as
// an oriented box or as an axis-aligned rect.
type regionFile struct {
	Name string                `json:"name"`
	Box  *geometry.OrientedBox `json:"box,omitempty"`
	Rect *geometry.Rect        `json:"rect,omitempty"`
}

// LoadRegions reads a JSON list of regions.
func LoadRegions(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []regionFile
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse regions %s: %w", path, err)
	}
	regions := make([]Region, 0, len(entries))
	for i, e := range entries {
		switch {
		case e.Name == "":
			return nil, fmt.Errorf("region %d has no name", i)
		case e.Box != nil && e.Rect != nil:
			return nil, fmt.Errorf("region %q has both box and rect", e.Name)
		case e.Box != nil:
			regions = append(regions, Region{Name: e.Name, Box: *e.Box})
		case e.Rect != nil:
			regions = append(regions, NewRegion(e.Name, *e.Rect))
		default:
			return nil, fmt.Errorf("region %q has no box or rect", e.Name)
		}
	}
	return regions, nil
}

// Pin is a wire endpoint inside a region.
type Pin struct {
	Region      string           `json:"region"`
	Position    geometry.Point2D `json:"position"`
	Label       string           `json:"label,omitempty"`
	LabelSource text.Origin      `json:"label_source"`
}

// ID returns "Region:Label".
func (p Pin) ID() string { return p.Region + ":" + p.Label }

// Unlabeled reports whether no label was found for the pin.
func (p Pin) Unlabeled() bool { return p.Label == "" }

type endpoint struct {
	pos    geometry.Point2D
	region int
}

// endpoints returns the path endpoints strictly inside a region, one per
// distinct position. When regions overlap the first listed region wins.
func endpoints(regions []Region, paths []vector.Primitive) []endpoint {
	seen := make(map[geometry.Point2D]bool)
	var out []endpoint
	for _, p := range paths {
		if !p.IsPath() {
			continue
		}
		for _, pt := range []geometry.Point2D{p.Path.Start(), p.Path.End()} {
			if seen[pt] {
				continue
			}
			seen[pt] = true
			for ri, r := range regions {
				if r.Box.ContainsStrict(pt) {
					out = append(out, endpoint{pos: pt, region: ri})
					break
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].region != out[j].region {
			return out[i].region < out[j].region
		}
		return out[i].pos.Less(out[j].pos)
	})
	return out
}

// FindPins locates pins for every region. Each endpoint is labelled
// independently from src; labels longer than PinMaxLength are dropped and
// the pin is kept unlabelled. Output is ordered by region, then position.
func FindPins(ctx context.Context, regions []Region, paths []vector.Primitive, src text.Source, cfg config.DetectionConfig) ([]Pin, error) {
	patterns, err := cfg.Compile()
	if err != nil {
		return nil, err
	}

	eps := endpoints(regions, paths)
	pins := make([]Pin, len(eps))
	queries := make([]text.Query, len(eps))
	for i, ep := range eps {
		pins[i] = Pin{Region: regions[ep.region].Name, Position: ep.pos}
		queries[i] = text.Query{
			Anchor:    ep.pos,
			Radius:    cfg.PinSearchRadius,
			Direction: text.DirAny,
			Pattern:   patterns.Pin,
		}
	}

	results, err := text.FindAll(ctx, src, queries, cfg.Workers(), false)
	if err != nil {
		return nil, fmt.Errorf("failed to read pin labels: %w", err)
	}

	var labeled, tooLong int
	for i, r := range results {
		if !r.OK {
			continue
		}
		if cfg.PinMaxLength > 0 && len([]rune(r.Match.Text)) > cfg.PinMaxLength {
			tooLong++
			continue
		}
		pins[i].Label = r.Match.Text
		pins[i].LabelSource = r.Match.Origin
		labeled++
	}

	log.Printf("pins: %d endpoints in %d regions, %d labeled (%d labels too long)",
		len(pins), len(regions), labeled, tooLong)
	return pins, nil
}
