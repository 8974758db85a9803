// Package subdivide quadrisects triangle meshes on the unit sphere. Each
// face is split into four by its edge midpoints, and midpoints shared by
// adjacent faces are created exactly once.
package subdivide

import (
	"errors"
	"fmt"

	"github.com/chazu/icosphere/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrFaceOutOfRange is returned when a face references a vertex index that
// is negative or past the end of the vertex slice.
var ErrFaceOutOfRange = errors.New("subdivide: face references vertex out of range")

// MaxVertices is the number of vertex indices an edge key can encode.
const MaxVertices uint64 = 1 << 32

// fitsEdgeKey reports whether n vertices can all be addressed by an edge key.
func fitsEdgeKey(n int) bool {
	return n >= 0 && uint64(n) <= MaxVertices
}

// edgeKey identifies an undirected edge: the smaller index sits in the
// high 32 bits and the larger in the low 32 bits.
type edgeKey uint64

func makeEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey(uint64(uint32(a))<<32 | uint64(uint32(b)))
}

// split returns the two vertex indices of the edge.
func (k edgeKey) split() (lo, hi int) {
	return int(k >> 32), int(uint32(k))
}

// midpoints is the midpoint table for a single subdivision pass.
type midpoints struct {
	vertices []v3.Vec
	index    map[edgeKey]int
}

// get returns the index of the midpoint of edge (a, b), appending a new
// vertex the first time the edge is seen.
func (m *midpoints) get(a, b int) (int, error) {
	key := makeEdgeKey(a, b)
	if idx, ok := m.index[key]; ok {
		return idx, nil
	}
	p, err := geom.Midpoint(m.vertices[a], m.vertices[b])
	if err != nil {
		return 0, fmt.Errorf("subdivide: midpoint of edge %d-%d: %w", a, b, err)
	}
	idx := len(m.vertices)
	m.vertices = append(m.vertices, p)
	m.index[key] = idx
	return idx, nil
}

// Subdivide splits every face into four and returns the extended vertex
// sequence and the new face list. The returned vertex slice is freshly
// allocated; its prefix equals the input and midpoints are appended in the
// order their edges are first met while walking faces in slice order.
//
// For a face (p1, p2, p3) with edge midpoints m12, m13 and m23 the children
// are (p1, m12, m13), (p2, m23, m12), (p3, m13, m23) and (m23, m13, m12).
func Subdivide(vertices []v3.Vec, faces []geom.Face) ([]v3.Vec, []geom.Face, error) {
	if !fitsEdgeKey(len(vertices)) {
		return nil, nil, fmt.Errorf("subdivide: %d vertices exceed edge key range", len(vertices))
	}

	// Closed meshes gain one vertex per edge, and every edge is shared by
	// two faces: 3F/2 new vertices.
	grow := len(faces) * 3 / 2
	m := &midpoints{
		vertices: make([]v3.Vec, len(vertices), len(vertices)+grow),
		index:    make(map[edgeKey]int, grow),
	}
	copy(m.vertices, vertices)

	out := make([]geom.Face, 0, len(faces)*4)
	for i, f := range faces {
		if f.Min() < 0 || f.Max() >= len(vertices) {
			return nil, nil, fmt.Errorf("%w: face %d %s with %d vertices", ErrFaceOutOfRange, i, f, len(vertices))
		}

		m12, err := m.get(f.A, f.B)
		if err != nil {
			return nil, nil, err
		}
		m13, err := m.get(f.A, f.C)
		if err != nil {
			return nil, nil, err
		}
		m23, err := m.get(f.B, f.C)
		if err != nil {
			return nil, nil, err
		}

		out = append(out,
			geom.Face{A: f.A, B: m12, C: m13},
			geom.Face{A: f.B, B: m23, C: m12},
			geom.Face{A: f.C, B: m13, C: m23},
			geom.Face{A: m23, B: m13, C: m12},
		)
	}

	return m.vertices, out, nil
}
