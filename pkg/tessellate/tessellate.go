// Package tessellate flattens a cached sphere level into index-buffer form.
// Vertex indices in the output are the cache's vertex indices, so a raycast
// result addresses the mesh directly.
package tessellate

import (
	"fmt"

	"github.com/chazu/icosphere/pkg/sphere"
)

// Tessellate returns level's vertices, normals and triangles as flat
// arrays. On the unit sphere a vertex normal is its position.
func Tessellate(c *sphere.Cache, level int) (*Mesh, error) {
	verts, err := c.Vertices(level)
	if err != nil {
		return nil, fmt.Errorf("tessellate: level %d: %w", level, err)
	}
	faces, err := c.Faces(level)
	if err != nil {
		return nil, fmt.Errorf("tessellate: level %d: %w", level, err)
	}

	vertices := make([]float32, 0, len(verts)*3)
	normals := make([]float32, 0, len(verts)*3)
	indices := make([]uint32, 0, len(faces)*3)

	for _, v := range verts {
		x, y, z := float32(v.X), float32(v.Y), float32(v.Z)
		vertices = append(vertices, x, y, z)
		normals = append(normals, x, y, z)
	}
	for _, f := range faces {
		indices = append(indices, uint32(f.A), uint32(f.B), uint32(f.C))
	}

	return &Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
		Level:    level,
	}, nil
}
