// Package cluster groups annotations by spatial proximity so that
// feedback aimed at the same region of a document can be deduplicated
// and synthesized together.
package cluster

import (
	"math"

	"github.com/redlinehq/redline/internal/types"
)

// Default clustering thresholds by location type. Text offsets are
// measured in characters, canvas coordinates in pixels.
const (
	DefaultTextThreshold   = 50.0
	DefaultCanvasThreshold = 100.0
)

// Distance computes the spatial closeness of two annotations.
//
// Annotations anchored to different location types are never close:
// the distance is +Inf regardless of coordinates. Text spans compare
// by absolute start-offset difference; canvas points by Euclidean
// distance. Symmetric, and zero for an annotation against itself.
func Distance(a, b *types.Annotation) float64 {
	switch {
	case a.Location.Text != nil && b.Location.Text != nil:
		return math.Abs(float64(a.Location.Text.Start) - float64(b.Location.Text.Start))
	case a.Location.Canvas != nil && b.Location.Canvas != nil:
		dx := a.Location.Canvas.X - b.Location.Canvas.X
		dy := a.Location.Canvas.Y - b.Location.Canvas.Y
		return math.Hypot(dx, dy)
	default:
		return math.Inf(1)
	}
}

// ThresholdFor picks the clustering threshold for the dominant location
// type in a batch. Ties go to the text threshold.
func ThresholdFor(annotations []*types.Annotation) float64 {
	canvas := 0
	for _, a := range annotations {
		if a.Location.Kind() == types.LocationCanvas {
			canvas++
		}
	}
	if canvas > len(annotations)-canvas {
		return DefaultCanvasThreshold
	}
	return DefaultTextThreshold
}
