// Package geom holds the small value types shared by the mesh packages:
// triangle faces as vertex-index triples, and error-checked helpers over
// the sdfx 3D vector.
package geom
