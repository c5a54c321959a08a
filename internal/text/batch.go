package text

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Comparer is a Source that can also report disagreement between layers.
type Comparer interface {
	Compare(ctx context.Context, q Query) (Match, bool, *Disagreement, error)
}

// Result is the outcome of one query in a batch.
type Result struct {
	Match    Match
	OK       bool
	Conflict *Disagreement
}

// FindAll runs queries against src with at most workers in flight. Results
// are stored by index, so out[i] always answers qs[i]. When compare is set
// and src implements Comparer, disagreements are recorded too.
func FindAll(ctx context.Context, src Source, qs []Query, workers int, compare bool) ([]Result, error) {
	out := make([]Result, len(qs))
	if src == nil || len(qs) == 0 {
		return out, nil
	}
	if workers < 1 {
		workers = 1
	}
	cmp, canCompare := src.(Comparer)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range qs {
		g.Go(func() error {
			var (
				r   Result
				err error
			)
			if compare && canCompare {
				r.Match, r.OK, r.Conflict, err = cmp.Compare(gctx, qs[i])
			} else {
				r.Match, r.OK, err = src.Find(gctx, qs[i])
			}
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
