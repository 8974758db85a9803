package geom

import "fmt"

// Face is a triangle given by three vertex indices. Winding order is
// carried through subdivision but never checked.
type Face struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
}

// Indices returns the three vertex indices in order.
func (f Face) Indices() [3]int {
	return [3]int{f.A, f.B, f.C}
}

// Max returns the largest vertex index referenced by the face.
func (f Face) Max() int {
	return max(f.A, f.B, f.C)
}

// Min returns the smallest vertex index referenced by the face.
func (f Face) Min() int {
	return min(f.A, f.B, f.C)
}

// Distinct reports whether the face references three different vertices.
func (f Face) Distinct() bool {
	return f.A != f.B && f.A != f.C && f.B != f.C
}

func (f Face) String() string {
	return fmt.Sprintf("(%d %d %d)", f.A, f.B, f.C)
}
