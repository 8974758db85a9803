package sphere

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Transformed returns a copy of level's vertices with m applied. The
// result can be searched with RaycastVertices.
func (c *Cache) Transformed(level int, m sdf.M44) ([]v3.Vec, error) {
	verts, err := c.Vertices(level)
	if err != nil {
		return nil, err
	}
	for i, v := range verts {
		verts[i] = m.MulPosition(v)
	}
	return verts, nil
}

// Rotation returns the rotation by Euler angles in degrees, applied about
// X, then Y, then Z.
func Rotation(x, y, z float64) sdf.M44 {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0
	return sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
}

// Rotated returns a copy of level's vertices rotated by Euler angles in
// degrees.
func (c *Cache) Rotated(level int, x, y, z float64) ([]v3.Vec, error) {
	return c.Transformed(level, Rotation(x, y, z))
}
