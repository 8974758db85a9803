package sphere

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang/geo/s2"
)

// The mesh pole is +Y (vertex 0) while s2 puts the north pole on +Z. The
// cyclic axis permutation below keeps both frames right-handed:
// mesh (x, y, z) is s2 (z, x, y).

func toS2(v v3.Vec) s2.Point {
	return s2.PointFromCoords(v.Z, v.X, v.Y)
}

func fromS2(p s2.Point) v3.Vec {
	return v3.Vec{X: p.Y, Y: p.Z, Z: p.X}
}

// DirectionFromLatLng returns the unit direction of a geographic
// coordinate in mesh space.
func DirectionFromLatLng(ll s2.LatLng) v3.Vec {
	return fromS2(s2.PointFromLatLng(ll))
}

// LatLng returns the geographic coordinate of a vertex.
func (c *Cache) LatLng(index int) (s2.LatLng, error) {
	if index < 0 {
		return s2.LatLng{}, fmt.Errorf("%w: %d", ErrVertexOutOfRange, index)
	}
	c.mu.RLock()
	n := len(c.vertices)
	var v v3.Vec
	if index < n {
		v = c.vertices[index]
	}
	c.mu.RUnlock()
	if index >= n {
		return s2.LatLng{}, fmt.Errorf("%w: %d not built yet", ErrVertexOutOfRange, index)
	}
	return s2.LatLngFromPoint(toS2(v)), nil
}

// RaycastLatLng returns the level vertex nearest to a geographic
// coordinate.
func (c *Cache) RaycastLatLng(ll s2.LatLng, level int) (int, error) {
	if !ll.IsValid() {
		return 0, fmt.Errorf("sphere: invalid coordinate %v", ll)
	}
	return c.Raycast(DirectionFromLatLng(ll), level, true)
}
