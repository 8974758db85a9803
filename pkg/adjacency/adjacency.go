// Package adjacency builds fixed-degree neighbor tables from triangle
// face lists. Each vertex has at most MaxDegree neighbor slots, filled in
// the order links are first registered.
package adjacency

import (
	"errors"
	"fmt"

	"github.com/chazu/icosphere/pkg/geom"
)

// MaxDegree is the number of neighbor slots per vertex.
const MaxDegree = 6

// Unused marks an empty neighbor slot.
const Unused = -1

var (
	// ErrTopologyViolation is returned when a vertex would need more than
	// MaxDegree neighbors.
	ErrTopologyViolation = errors.New("adjacency: vertex exceeds maximum degree")

	// ErrFaceOutOfRange is returned for faces with negative vertex indices.
	ErrFaceOutOfRange = errors.New("adjacency: face references negative vertex")
)

// DegreeError reports the vertex that overflowed its slots.
type DegreeError struct {
	Vertex   int
	Neighbor int // the link that did not fit
	Face     int // index of the face being registered
}

func (e *DegreeError) Error() string {
	return fmt.Sprintf("adjacency: vertex %d has more than %d neighbors (adding %d from face %d)",
		e.Vertex, MaxDegree, e.Neighbor, e.Face)
}

func (e *DegreeError) Unwrap() error { return ErrTopologyViolation }

// Slots holds the neighbors of one vertex, padded with Unused.
type Slots [MaxDegree]int

// emptySlots is a Slots with every entry Unused.
var emptySlots = Slots{Unused, Unused, Unused, Unused, Unused, Unused}

// Degree returns the number of filled slots.
func (s Slots) Degree() int {
	n := 0
	for _, v := range s {
		if v == Unused {
			break
		}
		n++
	}
	return n
}

// Contains reports whether v is one of the neighbors.
func (s Slots) Contains(v int) bool {
	for _, n := range s {
		if n == Unused {
			return false
		}
		if n == v {
			return true
		}
	}
	return false
}

// List returns the filled slots as a slice, in insertion order.
func (s Slots) List() []int {
	return append([]int(nil), s[:s.Degree()]...)
}

// Table maps vertex index to its neighbor slots.
type Table []Slots

// Clone returns an independent copy of the table.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// Of returns the neighbors of vertex v, or empty slots when v is outside
// the table.
func (t Table) Of(v int) Slots {
	if v < 0 || v >= len(t) {
		return emptySlots
	}
	return t[v]
}

// Build constructs the neighbor table of a face list. The table covers
// vertex indices 0 through the largest index referenced by any face; it
// does not rely on a separately tracked vertex count.
func Build(faces []geom.Face) (Table, error) {
	maxVertex := -1
	for i, f := range faces {
		if f.Min() < 0 {
			return nil, fmt.Errorf("%w: face %d %s", ErrFaceOutOfRange, i, f)
		}
		maxVertex = max(maxVertex, f.Max())
	}

	t := make(Table, maxVertex+1)
	for i := range t {
		t[i] = emptySlots
	}
	// fill[v] is the next free slot of vertex v.
	fill := make([]uint8, maxVertex+1)

	for i, f := range faces {
		links := [6][2]int{
			{f.A, f.B}, {f.A, f.C},
			{f.B, f.A}, {f.B, f.C},
			{f.C, f.A}, {f.C, f.B},
		}
		for _, l := range links {
			if err := t.link(fill, l[0], l[1]); err != nil {
				err.Face = i
				return nil, err
			}
		}
	}
	return t, nil
}

// link registers dst as a neighbor of src unless already present.
func (t Table) link(fill []uint8, src, dst int) *DegreeError {
	s := &t[src]
	n := int(fill[src])
	for _, v := range s[:n] {
		if v == dst {
			return nil
		}
	}
	if n == MaxDegree {
		return &DegreeError{Vertex: src, Neighbor: dst}
	}
	s[n] = dst
	fill[src]++
	return nil
}
