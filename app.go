package main

import (
	"fmt"

	"github.com/chazu/icosphere/pkg/engine"
	"github.com/chazu/icosphere/pkg/sphere"
	"github.com/chazu/icosphere/pkg/tessellate"
	"github.com/sirupsen/logrus"
)

// App ties a sphere cache to the query engine and produces JSON-ready
// results for the command line.
type App struct {
	cache  *sphere.Cache
	engine *engine.Engine
	log    logrus.FieldLogger
}

// HitData is a JSON-serializable raycast record.
type HitData struct {
	Level     int        `json:"level"`
	Vertex    int        `json:"vertex"`
	Direction [3]float64 `json:"direction"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of evaluating a query script.
type EvalResult struct {
	Value    string          `json:"value"`
	Hits     []HitData       `json:"hits"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// MeshSummary describes a tessellated level without its arrays.
type MeshSummary struct {
	Level     int        `json:"level"`
	Vertices  int        `json:"vertices"`
	Triangles int        `json:"triangles"`
	Min       [3]float32 `json:"min"`
	Max       [3]float32 `json:"max"`
}

// NewApp creates an App over c. A nil c gets a cache capped at
// engine.DefaultMaxLevel; a nil logger discards output.
func NewApp(c *sphere.Cache, l logrus.FieldLogger) *App {
	if c == nil {
		c = sphere.New(sphere.WithMaxLevel(engine.DefaultMaxLevel))
	}
	if l == nil {
		nl := logrus.New()
		nl.SetLevel(logrus.PanicLevel)
		l = nl
	}
	return &App{cache: c, engine: engine.NewEngine(c), log: l}
}

// Evaluate runs a query script and converts the engine output.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Hits:     []HitData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	res, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.WithError(err).Error("evaluate failed")
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	result.Value = res.Value
	for _, h := range res.Hits {
		result.Hits = append(result.Hits, HitData{Level: h.Level, Vertex: h.Vertex, Direction: h.Direction})
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}
	a.log.WithFields(logrus.Fields{
		"hits":     len(result.Hits),
		"warnings": len(result.Warnings),
	}).Debug("evaluated script")
	return result
}

// Mesh tessellates level.
func (a *App) Mesh(level int) (*tessellate.Mesh, error) {
	return tessellate.Tessellate(a.cache, level)
}

// Summarize reduces a mesh to its counts and bounds.
func Summarize(m *tessellate.Mesh) MeshSummary {
	lo, hi := m.BoundingBox()
	return MeshSummary{
		Level:     m.Level,
		Vertices:  m.VertexCount(),
		Triangles: m.TriangleCount(),
		Min:       lo,
		Max:       hi,
	}
}

// Validate runs the structural checks for level and reports whether any
// finding is an error.
func (a *App) Validate(level int) ([]sphere.ValidationError, bool, error) {
	findings, err := a.cache.Validate(level)
	if err != nil {
		return nil, false, fmt.Errorf("validate level %d: %w", level, err)
	}
	ok := true
	for _, f := range findings {
		if f.Severity == sphere.SeverityError {
			ok = false
		}
		a.log.WithField("level", level).Warn(f.Error())
	}
	return findings, ok, nil
}
