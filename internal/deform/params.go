// Package deform applies per-facial-part deformation rules to a
// landmark set, producing deformed point positions that keep the
// source mesh topology valid.
package deform

import (
	"errors"
	"fmt"
)

// ErrBadParameters reports an out-of-range deformation parameter
var ErrBadParameters = errors.New("deform: bad parameters")

// EyeParams deforms one eye. Scale is isotropic about the eye centroid.
// Translation and iris offsets are fractions of the face-region
// reference size, not pixels, so the same parameters work at any
// image scale.
type EyeParams struct {
	Scale      float64 `yaml:"scale"`
	TranslateX float64 `yaml:"translate_x"`
	TranslateY float64 `yaml:"translate_y"`
	IrisX      float64 `yaml:"iris_x"`
	IrisY      float64 `yaml:"iris_y"`
}

// StretchParams deforms the mouth or nose with independent x/y scales
type StretchParams struct {
	ScaleX     float64 `yaml:"scale_x"`
	ScaleY     float64 `yaml:"scale_y"`
	TranslateX float64 `yaml:"translate_x"`
	TranslateY float64 `yaml:"translate_y"`
}

// ContourParams reshapes the jawline. Shape biases toward a rounder
// (positive) or squarer (negative) face. Cheek and ChinHeight are
// fractions of the face-region reference size.
type ContourParams struct {
	Shape      float64 `yaml:"shape"`       // [-1, 1]
	JawWidth   float64 `yaml:"jaw_width"`   // lateral scale, 1 = unchanged
	Cheek      float64 `yaml:"cheek"`       // mid-jaw lateral bulge
	ChinHeight float64 `yaml:"chin_height"` // longitudinal chin offset
	Smoothness float64 `yaml:"smoothness"`  // [0, 1], drives 0-5 smoothing passes
	LockChin   bool    `yaml:"lock_chin"`
}

// Parameters is the full per-part deformation parameter set
type Parameters struct {
	LeftEye  EyeParams     `yaml:"left_eye"`
	RightEye EyeParams     `yaml:"right_eye"`
	Mouth    StretchParams `yaml:"mouth"`
	Nose     StretchParams `yaml:"nose"`
	Contour  ContourParams `yaml:"contour"`
}

// Defaults returns the identity deformation
func Defaults() Parameters {
	return Parameters{
		LeftEye:  EyeParams{Scale: 1},
		RightEye: EyeParams{Scale: 1},
		Mouth:    StretchParams{ScaleX: 1, ScaleY: 1},
		Nose:     StretchParams{ScaleX: 1, ScaleY: 1},
		Contour:  ContourParams{JawWidth: 1},
	}
}

const (
	maxScale     = 4.0
	maxTranslate = 1.0 // a full face size of travel is already absurd
)

// Validate checks every parameter against its documented range,
// once at the boundary.
func (p Parameters) Validate() error {
	check := func(name string, v, lo, hi float64) error {
		if v < lo || v > hi {
			return fmt.Errorf("%w: %s = %g outside [%g, %g]", ErrBadParameters, name, v, lo, hi)
		}
		return nil
	}
	for _, c := range []struct {
		name string
		v    float64
		lo   float64
		hi   float64
	}{
		{"left_eye.scale", p.LeftEye.Scale, 0.01, maxScale},
		{"right_eye.scale", p.RightEye.Scale, 0.01, maxScale},
		{"mouth.scale_x", p.Mouth.ScaleX, 0.01, maxScale},
		{"mouth.scale_y", p.Mouth.ScaleY, 0.01, maxScale},
		{"nose.scale_x", p.Nose.ScaleX, 0.01, maxScale},
		{"nose.scale_y", p.Nose.ScaleY, 0.01, maxScale},
		{"left_eye.translate_x", p.LeftEye.TranslateX, -maxTranslate, maxTranslate},
		{"left_eye.translate_y", p.LeftEye.TranslateY, -maxTranslate, maxTranslate},
		{"right_eye.translate_x", p.RightEye.TranslateX, -maxTranslate, maxTranslate},
		{"right_eye.translate_y", p.RightEye.TranslateY, -maxTranslate, maxTranslate},
		{"mouth.translate_x", p.Mouth.TranslateX, -maxTranslate, maxTranslate},
		{"mouth.translate_y", p.Mouth.TranslateY, -maxTranslate, maxTranslate},
		{"nose.translate_x", p.Nose.TranslateX, -maxTranslate, maxTranslate},
		{"nose.translate_y", p.Nose.TranslateY, -maxTranslate, maxTranslate},
		{"contour.shape", p.Contour.Shape, -1, 1},
		{"contour.jaw_width", p.Contour.JawWidth, 0.25, maxScale},
		{"contour.cheek", p.Contour.Cheek, -maxTranslate, maxTranslate},
		{"contour.chin_height", p.Contour.ChinHeight, -maxTranslate, maxTranslate},
		{"contour.smoothness", p.Contour.Smoothness, 0, 1},
	} {
		if err := check(c.name, c.v, c.lo, c.hi); err != nil {
			return err
		}
	}
	return nil
}
