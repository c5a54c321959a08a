package terminal

import (
	"log"

	"schem-tracer/internal/config"
	"schem-tracer/internal/vector"
)

// Detect returns the circle primitives that look like terminal symbols.
// A circle qualifies when its radius is within [MinRadius, MaxRadius], its
// CV is at most MaxCV, and, with OnlyUnfilled set, it is not filled.
// Non-circle primitives are ignored. The result is in processing order.
func Detect(primitives []vector.Primitive, cfg config.DetectionConfig) []Terminal {
	terminals := make([]Terminal, 0)
	var circles, wrongSize, notRound, filled int

	for _, p := range primitives {
		if !p.IsCircle() {
			continue
		}
		circles++
		c := p.Circle

		if c.Radius < cfg.MinRadius || c.Radius > cfg.MaxRadius {
			wrongSize++
			continue
		}
		if !(c.CV <= cfg.MaxCV) {
			notRound++
			continue
		}
		if cfg.OnlyUnfilled && c.Filled {
			filled++
			continue
		}

		terminals = append(terminals, Terminal{
			PrimitiveID: p.ID,
			Center:      c.Center,
			Radius:      c.Radius,
			CV:          c.CV,
		})
	}

	Sort(terminals)
	log.Printf("terminal: %d of %d circles qualify (rejected: %d size, %d roundness, %d filled)",
		len(terminals), circles, wrongSize, notRound, filled)
	return terminals
}
