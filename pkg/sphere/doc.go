// Package sphere builds and queries nested geodesic spheres made by
// recursive quadrisection of an icosahedron.
//
// A Cache owns the vertex, face and neighbor arrays of every level it has
// computed. Levels are created on first request and never recomputed:
// level 0 is the base icosahedron with 12 vertices and 20 faces, and level
// L has 10·4^L+2 vertices. Vertices are shared across levels, so a vertex
// keeps its index at every finer level.
//
// Raycast finds the vertex closest to a direction with a coarse-to-fine
// greedy walk over the per-level neighbor tables:
//
//	c := sphere.New()
//	idx, err := c.Raycast(v3.Vec{X: 0, Y: 1, Z: 0}, 4, true)
//
// A Cache is safe for concurrent use.
package sphere
