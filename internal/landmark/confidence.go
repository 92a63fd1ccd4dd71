package landmark

import (
	"fmt"
	"math"

	"github.com/dudu/facewarp/internal/geom"
)

// GroupConfidence scores how tightly a point group clusters around its
// centroid. A compact group reads as a confident detection; a scattered
// one as jitter. Confidence is 1/(1 + variance/10) clamped to [0, 1],
// where variance is taken over centroid distances.
func GroupConfidence(pts []geom.Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	c := geom.Centroid(pts)
	dists := make([]float64, len(pts))
	mean := 0.0
	for i, p := range pts {
		dists[i] = p.Dist(c)
		mean += dists[i]
	}
	mean /= float64(len(dists))

	variance := 0.0
	for _, d := range dists {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(dists))

	conf := 1.0 / (1.0 + variance/10.0)
	return math.Max(0, math.Min(1, conf))
}

// CheckAnatomy runs coarse sanity checks on nose geometry and returns
// human-readable warnings for implausible layouts. Advisory only; the
// engine never blocks on these.
func CheckAnatomy(l *FaceLandmarks) []string {
	if len(l.Nose) < 3 {
		return nil
	}

	var warnings []string

	// Bridge at the start of the sequence, tip in the middle,
	// nostril extremes at the ends of the lower half.
	bridge := l.Nose[0]
	tip := l.Nose[len(l.Nose)/2]
	lo, hi := geom.Bounds(l.Nose)

	noseLength := tip.Dist(bridge)
	nostrilSpan := hi.X - lo.X
	angle := math.Abs(math.Atan2(tip.X-bridge.X, tip.Y-bridge.Y)) * 180 / math.Pi

	switch {
	case noseLength < 10:
		warnings = append(warnings, "nose length implausibly short")
	case noseLength > 200:
		warnings = append(warnings, "nose length implausibly long")
	}
	switch {
	case nostrilSpan < 5:
		warnings = append(warnings, "nostril span implausibly narrow")
	case nostrilSpan > 100:
		warnings = append(warnings, "nostril span implausibly wide")
	}
	if angle > 30 {
		warnings = append(warnings, fmt.Sprintf("nose tilted %.1f degrees from vertical", angle))
	}

	return warnings
}
