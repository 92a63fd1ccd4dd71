package warp

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/dudu/facewarp/internal/geom"
)

// Mode selects the resampling strategy
type Mode int

const (
	// ModeForward walks target triangles and paints their interiors.
	// Fast, but pixels between triangles keep the pre-seeded background
	// and hairline seams are possible.
	ModeForward Mode = iota
	// ModeBackward walks every target pixel and looks up its triangle,
	// falling back to an identity sample when none contains it.
	// Seam-free full coverage at higher cost.
	ModeBackward
	// ModeHybrid runs Forward everywhere, then Backward over an edge
	// band near the buffer border where the fixed triangulation
	// boundary makes seams most visible.
	ModeHybrid
)

func (m Mode) String() string {
	switch m {
	case ModeForward:
		return "forward"
	case ModeBackward:
		return "backward"
	case ModeHybrid:
		return "hybrid"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a mode name as supplied on the configuration surface
func ParseMode(s string) (Mode, error) {
	switch s {
	case "forward":
		return ModeForward, nil
	case "backward":
		return ModeBackward, nil
	case "hybrid", "":
		return ModeHybrid, nil
	}
	return 0, fmt.Errorf("warp: unknown render mode %q (use forward, backward or hybrid)", s)
}

// DefaultEdgeBand is the hybrid-mode border band width in pixels
const DefaultEdgeBand = 20

// barycentricTol loosens the forward containment test so pixels on a
// shared edge are accepted by one of the adjacent triangles instead of
// leaving hairline seams
const barycentricTol = 0.01

// areaEps is the triangle area below which a pair contributes nothing
const areaEps = 1e-9

// Options configures a render pass
type Options struct {
	Mode     Mode
	EdgeBand int // hybrid only; 0 means DefaultEdgeBand
}

// Stats summarizes one render pass for diagnostics and tests
type Stats struct {
	TrianglesDrawn    int
	DegenerateSkipped int
	FallbackPixels    int
}

// Render repaints dst from src through the matched triangle pairs.
// dst is mutated in place; src never is. Buffers must be equal-sized.
func Render(src, dst *RasterBuffer, pairs []geom.DeformedTrianglePair, opts Options) (Stats, error) {
	if err := src.Validate(); err != nil {
		return Stats{}, err
	}
	if err := dst.Validate(); err != nil {
		return Stats{}, err
	}
	if src.Width != dst.Width || src.Height != dst.Height {
		return Stats{}, fmt.Errorf("%w: source %dx%d vs target %dx%d",
			ErrBadBuffer, src.Width, src.Height, dst.Width, dst.Height)
	}

	var stats Stats
	switch opts.Mode {
	case ModeForward:
		renderForward(src, dst, pairs, &stats)
	case ModeBackward:
		renderBackward(src, dst, pairs, 0, 0, dst.Width, dst.Height, &stats)
	case ModeHybrid:
		renderForward(src, dst, pairs, &stats)
		band := opts.EdgeBand
		if band <= 0 {
			band = DefaultEdgeBand
		}
		if band > dst.Width/2 {
			band = dst.Width / 2
		}
		if band > dst.Height/2 {
			band = dst.Height / 2
		}
		renderBackward(src, dst, pairs, 0, 0, dst.Width, band, &stats)
		renderBackward(src, dst, pairs, 0, dst.Height-band, dst.Width, dst.Height, &stats)
		renderBackward(src, dst, pairs, 0, band, band, dst.Height-band, &stats)
		renderBackward(src, dst, pairs, dst.Width-band, band, dst.Width, dst.Height-band, &stats)
	default:
		return Stats{}, fmt.Errorf("warp: unknown render mode %d", opts.Mode)
	}

	if stats.DegenerateSkipped > 0 {
		slog.Debug("skipped degenerate triangles during render",
			"mode", opts.Mode.String(), "count", stats.DegenerateSkipped)
	}
	return stats, nil
}

// renderForward paints each target triangle by scanline, mapping pixel
// centers back to the source triangle through shared barycentric
// weights. The whole source image is drawn once first so uncovered
// pixels keep a sensible background.
func renderForward(src, dst *RasterBuffer, pairs []geom.DeformedTrianglePair, stats *Stats) {
	copy(dst.Pix, src.Pix)

	for _, pair := range pairs {
		if pair.Target.Area() < areaEps || pair.Source.Area() < areaEps {
			stats.DegenerateSkipped++
			continue
		}
		fillTriangle(src, dst, pair)
		stats.TrianglesDrawn++
	}
}

// fillTriangle rasterizes one target triangle span by span
func fillTriangle(src, dst *RasterBuffer, pair geom.DeformedTrianglePair) {
	lo, hi := pair.Target.Bounds()
	y0 := clampInt(int(math.Floor(lo.Y)), 0, dst.Height-1)
	y1 := clampInt(int(math.Ceil(hi.Y)), 0, dst.Height-1)

	for y := y0; y <= y1; y++ {
		scanY := float64(y) + 0.5
		x0, x1, ok := spanAt(pair.Target, scanY)
		if !ok {
			continue
		}
		xi0 := clampInt(int(math.Floor(x0)), 0, dst.Width-1)
		xi1 := clampInt(int(math.Ceil(x1)), 0, dst.Width-1)

		for x := xi0; x <= xi1; x++ {
			p := geom.Point{X: float64(x) + 0.5, Y: scanY}
			u, v, w := pair.Target.Barycentric(p)
			if u < -barycentricTol || v < -barycentricTol || w < -barycentricTol {
				continue
			}
			sp := pair.Source.Interpolate(u, v, w)
			r, g, b, a := Bilinear(src, sp.X, sp.Y)
			dst.SetRGBA(x, y, r, g, b, a)
		}
	}
}

// spanAt intersects the triangle's edges with a horizontal scanline and
// returns the covered x-interval. Only edges whose endpoints straddle
// the scanline contribute.
func spanAt(t geom.Triangle, y float64) (float64, float64, bool) {
	minX := math.Inf(1)
	maxX := math.Inf(-1)
	for e := 0; e < 3; e++ {
		a := t.P[e]
		b := t.P[(e+1)%3]
		if (a.Y <= y) == (b.Y <= y) {
			continue
		}
		x := a.X + (y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
	}
	if minX > maxX {
		return 0, 0, false
	}
	return minX, maxX, true
}

// renderBackward visits every target pixel in the given rect, finds the
// target triangle containing its center, and samples the source through
// the pair's inverted affine transform. Pixels no triangle claims fall
// back to the source pixel at the same coordinate, guaranteeing full
// coverage with no holes.
func renderBackward(src, dst *RasterBuffer, pairs []geom.DeformedTrianglePair, x0, y0, x1, y1 int, stats *Stats) {
	x0 = clampInt(x0, 0, dst.Width)
	y0 = clampInt(y0, 0, dst.Height)
	x1 = clampInt(x1, 0, dst.Width)
	y1 = clampInt(y1, 0, dst.Height)

	type candidate struct {
		pair geom.DeformedTrianglePair
		inv  geom.AffineTransform
		lo   geom.Point
		hi   geom.Point
	}
	candidates := make([]candidate, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Target.Area() < areaEps || pair.Source.Area() < areaEps {
			stats.DegenerateSkipped++
			continue
		}
		inv, ok := pair.Transform.Invert()
		if !ok {
			stats.DegenerateSkipped++
			continue
		}
		lo, hi := pair.Target.Bounds()
		candidates = append(candidates, candidate{pair: pair, inv: inv, lo: lo, hi: hi})
	}

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p := geom.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}

			found := false
			for _, c := range candidates {
				if p.X < c.lo.X || p.X > c.hi.X || p.Y < c.lo.Y || p.Y > c.hi.Y {
					continue
				}
				if !c.pair.Target.Contains(p, 1e-7) {
					continue
				}
				sp := c.inv.Apply(p)
				r, g, b, a := Bilinear(src, sp.X, sp.Y)
				dst.SetRGBA(x, y, r, g, b, a)
				found = true
				break
			}
			if !found {
				r, g, b, a := src.RGBA(x, y)
				dst.SetRGBA(x, y, r, g, b, a)
				stats.FallbackPixels++
			}
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
