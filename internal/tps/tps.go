// Package tps implements thin-plate spline interpolation between two
// point sets. It serves as a smooth, mesh-free alternative to
// per-triangle affine warping: the spline exactly reproduces the
// control-point correspondence and bends the rest of the plane with
// minimal integral curvature.
package tps

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/dudu/facewarp/internal/geom"
)

// ErrInsufficientPoints is returned when fewer than three
// non-collinear control points are supplied.
var ErrInsufficientPoints = errors.New("tps: need at least 3 control points")

// minControlPoints is the smallest set that pins down the affine part
const minControlPoints = 3

// Spline is a fitted thin-plate spline mapping source points to target
// points. A fitted spline is immutable and safe for concurrent use.
type Spline struct {
	control []geom.Point
	// wx and wy hold, per axis, the n radial weights followed by the
	// three affine coefficients (constant, x, y).
	wx []float64
	wy []float64
	// gaussBlend mixes a Gaussian RBF into the TPS kernel; 0 disables
	gaussBlend float64
	gaussSigma float64
}

// Option adjusts spline fitting
type Option func(*Spline)

// WithGaussianBlend mixes a Gaussian radial basis (weight frac, in
// [0,1]) into the thin-plate kernel. A small blend localizes the
// deformation around the control points at the cost of exact
// minimal-bending behavior.
func WithGaussianBlend(frac, sigma float64) Option {
	return func(s *Spline) {
		s.gaussBlend = math.Max(0, math.Min(1, frac))
		s.gaussSigma = sigma
	}
}

// Fit solves the spline weights for the given correspondence. source
// and target must be the same length, with at least three points.
func Fit(source, target []geom.Point, opts ...Option) (*Spline, error) {
	if len(source) != len(target) {
		return nil, fmt.Errorf("tps: point count mismatch: %d vs %d", len(source), len(target))
	}
	if len(source) < minControlPoints {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientPoints, len(source))
	}

	s := &Spline{
		control: append([]geom.Point(nil), source...),
	}
	for _, opt := range opts {
		opt(s)
	}

	n := len(source)
	dim := n + 3

	// System matrix:
	//   [ K  P ] [w]   [v]
	//   [ Pᵀ 0 ] [a] = [0]
	// where K is the kernel matrix and P carries the affine monomials.
	sys := mat.NewDense(dim, dim, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sys.Set(i, j, s.kernel(source[i].Dist(source[j])))
		}
		sys.Set(i, n, 1)
		sys.Set(i, n+1, source[i].X)
		sys.Set(i, n+2, source[i].Y)
		sys.Set(n, i, 1)
		sys.Set(n+1, i, source[i].X)
		sys.Set(n+2, i, source[i].Y)
	}

	rhs := mat.NewDense(dim, 2, nil)
	for i := 0; i < n; i++ {
		rhs.Set(i, 0, target[i].X)
		rhs.Set(i, 1, target[i].Y)
	}

	var sol mat.Dense
	if err := sol.Solve(sys, rhs); err != nil {
		return nil, fmt.Errorf("tps: solving spline system: %w", err)
	}

	s.wx = make([]float64, dim)
	s.wy = make([]float64, dim)
	for i := 0; i < dim; i++ {
		s.wx[i] = sol.At(i, 0)
		s.wy[i] = sol.At(i, 1)
	}
	return s, nil
}

// kernel evaluates the radial basis at distance r
func (s *Spline) kernel(r float64) float64 {
	u := tpsKernel(r)
	if s.gaussBlend == 0 {
		return u
	}
	sigma := s.gaussSigma
	if sigma <= 0 {
		sigma = 1
	}
	g := math.Exp(-(r * r) / (2 * sigma * sigma))
	return (1-s.gaussBlend)*u + s.gaussBlend*g
}

// tpsKernel is U(r) = r² log r², zero at the origin by limit
func tpsKernel(r float64) float64 {
	if r == 0 {
		return 0
	}
	r2 := r * r
	return r2 * math.Log(r2)
}

// Apply maps a point through the fitted spline
func (s *Spline) Apply(p geom.Point) geom.Point {
	n := len(s.control)
	x := s.wx[n] + s.wx[n+1]*p.X + s.wx[n+2]*p.Y
	y := s.wy[n] + s.wy[n+1]*p.X + s.wy[n+2]*p.Y
	for i, c := range s.control {
		k := s.kernel(p.Dist(c))
		x += s.wx[i] * k
		y += s.wy[i] * k
	}
	return geom.Point{X: x, Y: y}
}

// ApplyAll maps a point slice, returning a new slice
func (s *Spline) ApplyAll(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = s.Apply(p)
	}
	return out
}
