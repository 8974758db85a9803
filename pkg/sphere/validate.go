package sphere

import (
	"fmt"

	"github.com/chazu/icosphere/pkg/adjacency"
	"github.com/chazu/icosphere/pkg/geom"
)

// ValidationSeverity indicates whether a finding means the level is
// corrupt or merely suspicious.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // invariant broken
	SeverityWarning                           // numerically off, still usable
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes one finding. Vertex and Face are -1 when the
// finding is about the level as a whole.
type ValidationError struct {
	Level    int
	Vertex   int
	Face     int
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	switch {
	case e.Vertex >= 0:
		return fmt.Sprintf("[%s] level %d vertex %d: %s", e.Severity, e.Level, e.Vertex, e.Message)
	case e.Face >= 0:
		return fmt.Sprintf("[%s] level %d face %d: %s", e.Severity, e.Level, e.Face, e.Message)
	default:
		return fmt.Sprintf("[%s] level %d: %s", e.Severity, e.Level, e.Message)
	}
}

// unitTolerance is how far a vertex may drift from unit length before it
// is reported.
const unitTolerance = 1e-9

// Validate checks the structural invariants of a level: element counts,
// face indices, unit-length vertices, vertex degrees and link symmetry.
// An empty result means the level is sound. The level and its neighbor
// table are built if missing.
func (c *Cache) Validate(level int) ([]ValidationError, error) {
	if err := c.EnsureNeighbors(level); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []ValidationError
	errs = append(errs, c.validateCounts(level)...)
	errs = append(errs, c.validateFaces(level)...)
	errs = append(errs, c.validateVertices(level)...)
	errs = append(errs, c.validateDegrees(level)...)
	return errs, nil
}

func levelError(level int, msg string) ValidationError {
	return ValidationError{Level: level, Vertex: -1, Face: -1, Message: msg, Severity: SeverityError}
}

func (c *Cache) validateCounts(level int) []ValidationError {
	var errs []ValidationError
	wantV := mustVertexCount(level)
	wantF, _ := FaceCount(level)

	if len(c.vertices) < wantV {
		errs = append(errs, levelError(level, fmt.Sprintf("have %d vertices, want at least %d", len(c.vertices), wantV)))
	}
	if got := len(c.faces[level]); got != wantF {
		errs = append(errs, levelError(level, fmt.Sprintf("have %d faces, want %d", got, wantF)))
	}
	if got := len(c.neighbors[level]); got != wantV {
		errs = append(errs, levelError(level, fmt.Sprintf("neighbor table covers %d vertices, want %d", got, wantV)))
	}
	return errs
}

func (c *Cache) validateFaces(level int) []ValidationError {
	var errs []ValidationError
	n := mustVertexCount(level)
	for i, f := range c.faces[level] {
		if f.Min() < 0 || f.Max() >= n {
			errs = append(errs, ValidationError{
				Level: level, Vertex: -1, Face: i,
				Message:  fmt.Sprintf("face %s references vertex outside 0..%d", f, n-1),
				Severity: SeverityError,
			})
			continue
		}
		if !f.Distinct() {
			errs = append(errs, ValidationError{
				Level: level, Vertex: -1, Face: i,
				Message:  fmt.Sprintf("face %s repeats a vertex", f),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func (c *Cache) validateVertices(level int) []ValidationError {
	var errs []ValidationError
	for i, v := range c.vertices[:min(len(c.vertices), mustVertexCount(level))] {
		if !geom.IsUnit(v, unitTolerance) {
			errs = append(errs, ValidationError{
				Level: level, Vertex: i, Face: -1,
				Message:  fmt.Sprintf("length %.12f is not 1", v.Length()),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateDegrees checks that the 12 base vertices have five neighbors,
// every later vertex has six, and every link has its reverse.
func (c *Cache) validateDegrees(level int) []ValidationError {
	var errs []ValidationError
	table := c.neighbors[level]
	for v, s := range table {
		want := adjacency.MaxDegree
		if v < 12 {
			want = 5
		}
		if got := s.Degree(); got != want {
			errs = append(errs, ValidationError{
				Level: level, Vertex: v, Face: -1,
				Message:  fmt.Sprintf("degree %d, want %d", got, want),
				Severity: SeverityError,
			})
		}
		for _, n := range s.List() {
			if !table.Of(n).Contains(v) {
				errs = append(errs, ValidationError{
					Level: level, Vertex: v, Face: -1,
					Message:  fmt.Sprintf("links to %d without a reverse link", n),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}
