package geom

import (
	"errors"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrZeroVector is returned when a zero-length (or non-finite) vector
// is asked to be normalized.
var ErrZeroVector = errors.New("geom: cannot normalize zero-length vector")

// Normalized returns v scaled to unit length. Unlike v3.Vec.Normalize it
// refuses vectors that would produce NaN components.
func Normalized(v v3.Vec) (v3.Vec, error) {
	l := v.Length()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return v3.Vec{}, ErrZeroVector
	}
	return v.Normalize(), nil
}

// Midpoint returns the projection onto the unit sphere of the midpoint
// between a and b.
func Midpoint(a, b v3.Vec) (v3.Vec, error) {
	return Normalized(a.Add(b))
}

// IsUnit reports whether v has length 1 within tol.
func IsUnit(v v3.Vec, tol float64) bool {
	return math.Abs(v.Length()-1) <= tol
}
