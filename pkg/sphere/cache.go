package sphere

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/icosphere/pkg/adjacency"
	"github.com/chazu/icosphere/pkg/geom"
	"github.com/chazu/icosphere/pkg/subdivide"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Cache owns the vertex, face and neighbor arrays of every computed level.
// Growth is append-only: a level, once built, is never rebuilt, and a
// vertex keeps its index and position at every finer level.
//
// All accessors return copies, so callers may modify what they receive.
type Cache struct {
	mu sync.RWMutex

	// vertices is shared by all levels; level L uses the first
	// VertexCount(L) entries.
	vertices  []v3.Vec
	faces     [][]geom.Face
	neighbors []adjacency.Table

	opts options
}

// New returns an empty cache. No level is built until requested.
func New(opts ...Option) *Cache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache{opts: o}
}

// MaxLevel returns the deepest level this cache will build.
func (c *Cache) MaxLevel() int {
	return c.opts.maxLevel
}

// Level returns the highest level with vertex and face data, or -1.
func (c *Cache) Level() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.faces) - 1
}

// NeighborLevel returns the highest level with a neighbor table, or -1.
func (c *Cache) NeighborLevel() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.neighbors) - 1
}

func (c *Cache) checkLevel(level int) error {
	if level < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if level > c.opts.maxLevel {
		return fmt.Errorf("%w: %d exceeds %d", ErrLevelTooDeep, level, c.opts.maxLevel)
	}
	return nil
}

// EnsureLevel makes vertex and face data available for levels 0 through
// level. Missing levels are computed in increasing order; levels already
// present are left untouched.
func (c *Cache) EnsureLevel(level int) error {
	if err := c.checkLevel(level); err != nil {
		return err
	}

	c.mu.RLock()
	have := len(c.faces) - 1
	c.mu.RUnlock()
	if level <= have {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.growLocked(level)
}

// growLocked subdivides up to level. c.mu must be held for writing.
func (c *Cache) growLocked(level int) error {
	for len(c.faces) <= level {
		next := len(c.faces)
		start := time.Now()

		if next == 0 {
			c.vertices = baseVertices()
			c.faces = append(c.faces, baseFaces())
		} else {
			verts, faces, err := subdivide.Subdivide(c.vertices, c.faces[next-1])
			if err != nil {
				return fmt.Errorf("sphere: subdividing level %d: %w", next, err)
			}
			c.vertices = verts
			c.faces = append(c.faces, faces)
		}

		c.opts.metrics.levelBuilt()
		c.opts.logger.WithFields(logrus.Fields{
			"level":    next,
			"vertices": len(c.vertices),
			"faces":    len(c.faces[next]),
			"elapsed":  time.Since(start),
		}).Debug("built level")
	}
	return nil
}

// EnsureNeighbors makes neighbor tables available for levels 0 through
// level, building vertex and face data first if needed. Missing tables are
// built concurrently, each from its own level's faces.
func (c *Cache) EnsureNeighbors(level int) error {
	if err := c.checkLevel(level); err != nil {
		return err
	}

	c.mu.RLock()
	have := len(c.neighbors) - 1
	c.mu.RUnlock()
	if level <= have {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.growLocked(level); err != nil {
		return err
	}

	first := len(c.neighbors)
	if first > level {
		return nil
	}
	tables := make([]adjacency.Table, level-first+1)

	var g errgroup.Group
	g.SetLimit(c.opts.workers())
	for i := range tables {
		lvl := first + i
		faces := c.faces[lvl]
		g.Go(func() error {
			t, err := adjacency.Build(faces)
			if err != nil {
				return fmt.Errorf("sphere: neighbors of level %d: %w", lvl, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, t := range tables {
		c.neighbors = append(c.neighbors, t)
		c.opts.metrics.tableBuilt()
		c.opts.logger.WithFields(logrus.Fields{
			"level":    first + i,
			"vertices": len(t),
		}).Debug("built neighbor table")
	}
	return nil
}

// Vertices returns a copy of the vertex positions of level.
func (c *Cache) Vertices(level int) ([]v3.Vec, error) {
	if err := c.EnsureLevel(level); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]v3.Vec, mustVertexCount(level))
	copy(out, c.vertices)
	return out, nil
}

// Vertex returns the position of vertex index at level.
func (c *Cache) Vertex(index, level int) (v3.Vec, error) {
	if err := c.EnsureLevel(level); err != nil {
		return v3.Vec{}, err
	}
	if index < 0 || index >= mustVertexCount(level) {
		return v3.Vec{}, fmt.Errorf("%w: %d at level %d", ErrVertexOutOfRange, index, level)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vertices[index], nil
}

// Faces returns a copy of the faces of level.
func (c *Cache) Faces(level int) ([]geom.Face, error) {
	if err := c.EnsureLevel(level); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]geom.Face, len(c.faces[level]))
	copy(out, c.faces[level])
	return out, nil
}

// Neighbors returns a copy of the neighbor table of level.
func (c *Cache) Neighbors(level int) (adjacency.Table, error) {
	if err := c.EnsureNeighbors(level); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.neighbors[level].Clone(), nil
}

// NeighborsOf returns the neighbors of one vertex at level, in slot order.
func (c *Cache) NeighborsOf(index, level int) ([]int, error) {
	if err := c.EnsureNeighbors(level); err != nil {
		return nil, err
	}
	if index < 0 || index >= mustVertexCount(level) {
		return nil, fmt.Errorf("%w: %d at level %d", ErrVertexOutOfRange, index, level)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.neighbors[level].Of(index).List(), nil
}
