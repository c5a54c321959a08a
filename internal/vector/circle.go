package vector

import (
	"math"

	"schem-tracer/pkg/geometry"

	"gonum.org/v1/gonum/stat"
)

// minCircleSamples is the fewest boundary points that describe a circle.
const minCircleSamples = 3

// CircleFit is the result of fitting a circle to boundary samples.
type CircleFit struct {
	Center geometry.Point2D
	Radius float64
	CV     float64
}

// CircleFromSamples fits a circle to boundary points: centre at the centroid,
// radius the mean distance to it, CV the population standard deviation of
// those distances over their mean. Too few points or a zero radius yield an
// infinite CV so the shape never qualifies as round.
func CircleFromSamples(points []geometry.Point2D) CircleFit {
	if len(points) == 0 {
		return CircleFit{CV: math.Inf(1)}
	}
	center := geometry.Centroid(points)
	if len(points) < minCircleSamples {
		return CircleFit{Center: center, CV: math.Inf(1)}
	}

	dists := make([]float64, len(points))
	for i, p := range points {
		dists[i] = p.Distance(center)
	}
	mean, std := stat.PopMeanStdDev(dists, nil)
	if mean <= 0 {
		return CircleFit{Center: center, CV: math.Inf(1)}
	}
	return CircleFit{Center: center, Radius: mean, CV: std / mean}
}
