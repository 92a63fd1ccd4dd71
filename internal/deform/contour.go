package deform

import (
	"math"

	"github.com/dudu/facewarp/internal/geom"
	"github.com/dudu/facewarp/internal/landmark"
)

// chinLockRange is how many neighbors on each side of a locked chin
// have their displacement decayed instead of applied in full
const chinLockRange = 2

// maxSmoothingPasses caps the iterative neighbor-averaging passes
const maxSmoothingPasses = 5

// deformContour reshapes the jawline in place. The rules need three
// anatomical reference points found from the polyline itself: the chin
// (deepest point near the middle of the sequence) and the two jaw
// corners (curvature maxima on each side).
func deformContour(jaw []geom.Point, p ContourParams, face *landmark.FaceLandmarks, ref float64) {
	n := len(jaw)
	chin := findChin(jaw)
	leftCorner, rightCorner := findJawCorners(jaw, chin)

	lo, hi := geom.Bounds(face.Points())
	faceCenter := geom.Point{X: (lo.X + hi.X) / 2, Y: (lo.Y + hi.Y) / 2}
	semiX := math.Max((hi.X-lo.X)/2, 1)
	semiY := math.Max((hi.Y-lo.Y)/2, 1)

	disp := make([]geom.Point, n)
	sigma := float64(n) / 4
	sigmaTerm := float64(n) / 8

	for i, pt := range jaw {
		// Shape bias: round toward an ellipse matching the face's
		// aspect ratio, or square toward the chin-to-corner line.
		if p.Shape > 0 {
			target := ellipseProject(pt, faceCenter, semiX, semiY)
			w := gauss(float64(i-chin), sigma)
			if p.LockChin {
				// Inverted falloff keeps the chin planted while the
				// rest of the contour rounds.
				w = 1 - w
			}
			d := target.Sub(pt).Mul(p.Shape * w)
			disp[i] = disp[i].Add(d)
		} else if p.Shape < 0 {
			corner := leftCorner
			if i > chin {
				corner = rightCorner
			}
			target := projectOntoSegmentLine(pt, jaw[chin], jaw[corner])
			mid := float64(chin+corner) / 2
			w := gauss(float64(i)-mid, sigmaTerm)
			d := target.Sub(pt).Mul(-p.Shape * w)
			disp[i] = disp[i].Add(d)
		}

		// Jaw width: lateral scale about the face center.
		if p.JawWidth != 1 {
			disp[i].X += (pt.X - faceCenter.X) * (p.JawWidth - 1)
		}

		// Cheek fullness: lateral bulge peaking halfway between each
		// jaw corner and the chin.
		if p.Cheek != 0 {
			mid := float64(leftCorner+chin) / 2
			if i > chin {
				mid = float64(chin+rightCorner) / 2
			}
			side := 1.0
			if pt.X < faceCenter.X {
				side = -1
			}
			disp[i].X += side * p.Cheek * ref * gauss(float64(i)-mid, sigmaTerm)
		}

		// Chin height: longitudinal offset peaking at the chin,
		// meaningless when the chin is locked.
		if p.ChinHeight != 0 && !p.LockChin {
			disp[i].Y += p.ChinHeight * ref * gauss(float64(i-chin), sigmaTerm)
		}
	}

	if p.LockChin {
		lockChin(disp, chin)
	}

	for i := range jaw {
		jaw[i] = jaw[i].Add(disp[i])
	}

	passes := int(math.Round(p.Smoothness * maxSmoothingPasses))
	smooth(jaw, passes, p.LockChin, chin)
}

// findChin locates the max-Y point within a small index window around
// the polyline's midpoint
func findChin(jaw []geom.Point) int {
	n := len(jaw)
	window := n / 6
	if window < 1 {
		window = 1
	}
	mid := n / 2
	best := mid
	for i := mid - window; i <= mid+window; i++ {
		if i < 0 || i >= n {
			continue
		}
		if jaw[i].Y > jaw[best].Y {
			best = i
		}
	}
	return best
}

// findJawCorners locates the curvature maxima in index windows on each
// side of the chin
func findJawCorners(jaw []geom.Point, chin int) (int, int) {
	n := len(jaw)
	left := argmaxCurvature(jaw, n/8, chin-2)
	right := argmaxCurvature(jaw, chin+2, n-1-n/8)
	return left, right
}

// argmaxCurvature scans interior indices [lo, hi] for the sharpest bend
func argmaxCurvature(jaw []geom.Point, lo, hi int) int {
	if lo < 1 {
		lo = 1
	}
	if hi > len(jaw)-2 {
		hi = len(jaw) - 2
	}
	best, bestC := lo, -1.0
	for i := lo; i <= hi; i++ {
		if c := curvature(jaw, i); c > bestC {
			best, bestC = i, c
		}
	}
	return best
}

// curvature measures the discrete bend at an interior point via the
// normalized cross product of the two adjacent segments
func curvature(jaw []geom.Point, i int) float64 {
	v1 := jaw[i].Sub(jaw[i-1])
	v2 := jaw[i+1].Sub(jaw[i])
	norm := v1.Norm() * v2.Norm()
	if norm == 0 {
		return 0
	}
	cross := v1.X*v2.Y - v1.Y*v2.X
	return math.Abs(cross) / norm
}

// ellipseProject returns the point on the (center, semiX, semiY)
// ellipse along the ray from center through p. A point at the center
// projects to itself.
func ellipseProject(p, center geom.Point, semiX, semiY float64) geom.Point {
	d := p.Sub(center)
	if d.Norm() == 0 {
		return p
	}
	theta := math.Atan2(d.Y, d.X)
	sin, cos := math.Sincos(theta)
	r := semiX * semiY / math.Hypot(semiY*cos, semiX*sin)
	return center.Add(geom.Point{X: r * cos, Y: r * sin})
}

// projectOntoSegmentLine projects p onto the infinite line through a
// and b, the chin-to-jaw-corner direction used for squaring
func projectOntoSegmentLine(p, a, b geom.Point) geom.Point {
	dir := b.Sub(a)
	den := dir.X*dir.X + dir.Y*dir.Y
	if den == 0 {
		return p
	}
	t := (p.Sub(a).X*dir.X + p.Sub(a).Y*dir.Y) / den
	return a.Add(dir.Mul(t))
}

// lockChin zeroes the chin's displacement and decays the neighbors on
// each side linearly (1 - i/(range+1)) to avoid a visible kink
func lockChin(disp []geom.Point, chin int) {
	disp[chin] = geom.Point{}
	for i := 1; i <= chinLockRange; i++ {
		factor := 1 - float64(i)/float64(chinLockRange+1)
		if j := chin - i; j >= 0 {
			disp[j] = disp[j].Mul(factor)
		}
		if j := chin + i; j < len(disp) {
			disp[j] = disp[j].Mul(factor)
		}
	}
}

// smooth runs the requested number of neighbor-averaging passes over
// interior points (0.25/0.5/0.25 weights). A locked chin is held fixed
// so smoothing cannot undo the lock.
func smooth(jaw []geom.Point, passes int, lockChin bool, chin int) {
	if passes <= 0 {
		return
	}
	if passes > maxSmoothingPasses {
		passes = maxSmoothingPasses
	}
	for pass := 0; pass < passes; pass++ {
		prev := make([]geom.Point, len(jaw))
		copy(prev, jaw)
		for i := 1; i < len(jaw)-1; i++ {
			if lockChin && i == chin {
				continue
			}
			jaw[i] = geom.Point{
				X: 0.25*prev[i-1].X + 0.5*prev[i].X + 0.25*prev[i+1].X,
				Y: 0.25*prev[i-1].Y + 0.5*prev[i].Y + 0.25*prev[i+1].Y,
			}
		}
	}
}

func gauss(x, sigma float64) float64 {
	return math.Exp(-x * x / (2 * sigma * sigma))
}
