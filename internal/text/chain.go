package text

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Chain tries each source in order and returns the first valid match.
// A source that is unavailable or fails on one query is skipped; the
// remaining sources still get a chance.
type Chain struct {
	links []Source

	mu     sync.Mutex
	warned map[string]bool
}

// NewChain builds a chain. Nil sources are ignored.
func NewChain(sources ...Source) *Chain {
	c := &Chain{warned: make(map[string]bool)}
	for _, s := range sources {
		if s != nil {
			c.links = append(c.links, s)
		}
	}
	return c
}

// Name implements Source.
func (c *Chain) Name() string {
	name := "chain"
	for i, s := range c.links {
		if i == 0 {
			name += "("
		} else {
			name += ","
		}
		name += s.Name()
	}
	if len(c.links) > 0 {
		name += ")"
	}
	return name
}

// Find implements Source.
func (c *Chain) Find(ctx context.Context, q Query) (Match, bool, error) {
	for _, s := range c.links {
		m, ok, err := c.try(ctx, s, q)
		if err != nil {
			return Match{}, false, err
		}
		if ok {
			return m, true, nil
		}
	}
	return Match{}, false, nil
}

// try runs one link. Only cancellation is returned as an error.
func (c *Chain) try(ctx context.Context, s Source, q Query) (Match, bool, error) {
	m, ok, err := s.Find(ctx, q)
	switch {
	case err == nil:
		return m, ok, nil
	case ctx.Err() != nil:
		return Match{}, false, ctx.Err()
	case errors.Is(err, ErrOCRUnavailable):
		c.warnOnce(s.Name(), "text: %s source unavailable, continuing without it", s.Name())
	default:
		log.Printf("text: %s lookup at (%.1f, %.1f) failed: %v", s.Name(), q.Anchor.X, q.Anchor.Y, err)
	}
	return Match{}, false, nil
}

func (c *Chain) warnOnce(key, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warned[key] {
		return
	}
	c.warned[key] = true
	log.Printf(format, args...)
}

// Disagreement records two sources reading different text for the same query.
type Disagreement struct {
	Chosen Match `json:"chosen"`
	Other  Match `json:"other"`
}

// Compare resolves q like Find but also consults the lower-priority sources.
// When a lower source reads different text, the disagreement is returned
// alongside the higher-priority match, which is kept.
func (c *Chain) Compare(ctx context.Context, q Query) (Match, bool, *Disagreement, error) {
	var (
		chosen Match
		found  bool
	)
	for _, s := range c.links {
		m, ok, err := c.try(ctx, s, q)
		if err != nil {
			return Match{}, false, nil, err
		}
		if !ok {
			continue
		}
		if !found {
			chosen, found = m, true
			continue
		}
		if m.Text != chosen.Text {
			return chosen, true, &Disagreement{Chosen: chosen, Other: m}, nil
		}
	}
	return chosen, found, nil, nil
}
