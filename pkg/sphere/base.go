package sphere

import (
	"math"

	"github.com/chazu/icosphere/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// baseVertices returns the 12 icosahedron vertices: the poles at +Y
// (index 0) and -Y (index 11), and ten points around the equator, 36
// degrees apart, alternating above and below it at atan(1/2).
func baseVertices() []v3.Vec {
	inc := math.Pi/2 - math.Atan(0.5)
	offset := math.Cos(inc)
	r := math.Sin(inc)

	c18 := r * math.Cos(math.Pi/10)
	c36 := r * math.Cos(math.Pi/5)
	s18 := r * math.Sin(math.Pi/10)
	s36 := r * math.Sin(math.Pi/5)

	return []v3.Vec{
		{X: 0, Y: 1, Z: 0},
		{X: r, Y: offset, Z: 0},
		{X: c36, Y: -offset, Z: s36},
		{X: s18, Y: offset, Z: c18},
		{X: -s18, Y: -offset, Z: c18},
		{X: -c36, Y: offset, Z: s36},
		{X: -r, Y: -offset, Z: 0},
		{X: -c36, Y: offset, Z: -s36},
		{X: -s18, Y: -offset, Z: -c18},
		{X: s18, Y: offset, Z: -c18},
		{X: c36, Y: -offset, Z: -s36},
		{X: 0, Y: -1, Z: 0},
	}
}

// baseFaces returns the 20 icosahedron faces: a cap of five around the
// north pole, a band of ten, and a cap of five around the south pole.
func baseFaces() []geom.Face {
	return []geom.Face{
		{A: 0, B: 3, C: 1},
		{A: 0, B: 5, C: 3},
		{A: 0, B: 7, C: 5},
		{A: 0, B: 9, C: 7},
		{A: 0, B: 1, C: 9},

		{A: 1, B: 3, C: 2},
		{A: 2, B: 3, C: 4},
		{A: 3, B: 5, C: 4},
		{A: 4, B: 5, C: 6},
		{A: 5, B: 7, C: 6},
		{A: 6, B: 7, C: 8},
		{A: 7, B: 9, C: 8},
		{A: 8, B: 9, C: 10},
		{A: 9, B: 1, C: 10},
		{A: 10, B: 1, C: 2},

		{A: 11, B: 2, C: 4},
		{A: 11, B: 4, C: 6},
		{A: 11, B: 6, C: 8},
		{A: 11, B: 8, C: 10},
		{A: 11, B: 10, C: 2},
	}
}
