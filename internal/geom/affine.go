package geom

import "math"

// degenerateEps is the determinant threshold below which a source
// triangle is treated as collinear
const degenerateEps = 1e-9

// AffineTransform is a 2x3 affine map:
//
//	x' = A*x + B*y + TX
//	y' = C*x + D*y + TY
type AffineTransform struct {
	A, B, C, D, TX, TY float64
}

// Identity returns the identity transform
func Identity() AffineTransform {
	return AffineTransform{A: 1, D: 1}
}

// Translate returns a pure translation
func Translate(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// ScaleAbout returns a scale by (sx, sy) keeping center fixed
func ScaleAbout(sx, sy float64, center Point) AffineTransform {
	return AffineTransform{
		A: sx, D: sy,
		TX: center.X * (1 - sx),
		TY: center.Y * (1 - sy),
	}
}

// RotateAbout returns a rotation by angle radians keeping center fixed
func RotateAbout(angle float64, center Point) AffineTransform {
	sin, cos := math.Sincos(angle)
	return AffineTransform{
		A: cos, B: -sin,
		C: sin, D: cos,
		TX: center.X - cos*center.X + sin*center.Y,
		TY: center.Y - sin*center.X - cos*center.Y,
	}
}

// Apply maps p through the transform
func (m AffineTransform) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.TX,
		Y: m.C*p.X + m.D*p.Y + m.TY,
	}
}

// Compose returns the transform equivalent to applying m first and n second
func (m AffineTransform) Compose(n AffineTransform) AffineTransform {
	return AffineTransform{
		A:  n.A*m.A + n.B*m.C,
		B:  n.A*m.B + n.B*m.D,
		C:  n.C*m.A + n.D*m.C,
		D:  n.C*m.B + n.D*m.D,
		TX: n.A*m.TX + n.B*m.TY + n.TX,
		TY: n.C*m.TX + n.D*m.TY + n.TY,
	}
}

// Invert returns the inverse transform. A singular transform inverts
// to the identity, with ok reporting false.
func (m AffineTransform) Invert() (AffineTransform, bool) {
	det := m.A*m.D - m.B*m.C
	if math.Abs(det) < degenerateEps {
		return Identity(), false
	}
	inv := AffineTransform{
		A: m.D / det,
		B: -m.B / det,
		C: -m.C / det,
		D: m.A / det,
	}
	inv.TX = -(inv.A*m.TX + inv.B*m.TY)
	inv.TY = -(inv.C*m.TX + inv.D*m.TY)
	return inv, true
}

// SolveAffine computes the unique affine map taking the three source
// vertices onto the three target vertices. The 3x3 homogeneous source
// matrix is inverted via its adjugate and multiplied by the target
// coordinate rows. A collinear source triangle (determinant below
// epsilon) yields the identity transform with ok reporting false, so
// a single bad triangle never poisons a render with NaNs.
func SolveAffine(source, target Triangle) (AffineTransform, bool) {
	x0, y0 := source.P[0].X, source.P[0].Y
	x1, y1 := source.P[1].X, source.P[1].Y
	x2, y2 := source.P[2].X, source.P[2].Y

	// Determinant of [x0 y0 1; x1 y1 1; x2 y2 1]
	det := x0*(y1-y2) - y0*(x1-x2) + (x1*y2 - x2*y1)
	if math.Abs(det) < degenerateEps {
		return Identity(), false
	}

	// Adjugate of the homogeneous source matrix
	a00 := (y1 - y2) / det
	a01 := (y2 - y0) / det
	a02 := (y0 - y1) / det
	a10 := (x2 - x1) / det
	a11 := (x0 - x2) / det
	a12 := (x1 - x0) / det
	a20 := (x1*y2 - x2*y1) / det
	a21 := (x2*y0 - x0*y2) / det
	a22 := (x0*y1 - x1*y0) / det

	u0, v0 := target.P[0].X, target.P[0].Y
	u1, v1 := target.P[1].X, target.P[1].Y
	u2, v2 := target.P[2].X, target.P[2].Y

	return AffineTransform{
		A:  u0*a00 + u1*a01 + u2*a02,
		B:  u0*a10 + u1*a11 + u2*a12,
		TX: u0*a20 + u1*a21 + u2*a22,
		C:  v0*a00 + v1*a01 + v2*a02,
		D:  v0*a10 + v1*a11 + v2*a12,
		TY: v0*a20 + v1*a21 + v2*a22,
	}, true
}
