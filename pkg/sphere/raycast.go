package sphere

import (
	"fmt"

	"github.com/chazu/icosphere/pkg/adjacency"
	"github.com/chazu/icosphere/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Raycast returns the index of the level vertex whose position has the
// largest dot product with dir.
//
// The search starts at vertex 0 on level 0 and, for each level up to
// level, hill-climbs along that level's neighbor table until no neighbor
// improves on the current vertex. The dot product against a fixed
// direction has a single local maximum over a connected mesh covering the
// sphere, so every walk ends at that level's best vertex, and starting each
// finer walk from the coarser answer keeps it to a few moves.
//
// When normalize is set, dir and every examined position are scaled to unit
// length first; a zero-length vector then yields geom.ErrZeroVector.
func (c *Cache) Raycast(dir v3.Vec, level int, normalize bool) (int, error) {
	if err := c.EnsureNeighbors(level); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raycastLocked(c.vertices, dir, level, normalize)
}

// RaycastVertices is Raycast over caller-supplied positions, for example a
// transformed copy of the mesh. The cache's neighbor tables give the
// topology; vertices must hold at least VertexCount(level) entries.
//
// The positions are trusted to describe the same mesh: the walk is only
// exact when they still lie on a convex surface with the cached
// connectivity.
func (c *Cache) RaycastVertices(vertices []v3.Vec, dir v3.Vec, level int, normalize bool) (int, error) {
	if err := c.EnsureNeighbors(level); err != nil {
		return 0, err
	}
	if need := mustVertexCount(level); len(vertices) < need {
		return 0, fmt.Errorf("%w: have %d, level %d needs %d", ErrVertexCount, len(vertices), level, need)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raycastLocked(vertices, dir, level, normalize)
}

func (c *Cache) raycastLocked(positions []v3.Vec, dir v3.Vec, level int, normalize bool) (int, error) {
	if normalize {
		d, err := geom.Normalized(dir)
		if err != nil {
			return 0, fmt.Errorf("sphere: raycast direction: %w", err)
		}
		dir = d
	}

	score := func(i int) (float64, error) {
		p := positions[i]
		if normalize {
			n, err := geom.Normalized(p)
			if err != nil {
				return 0, fmt.Errorf("sphere: raycast vertex %d: %w", i, err)
			}
			p = n
		}
		return dir.Dot(p), nil
	}

	cur := 0
	curDot, err := score(cur)
	if err != nil {
		return 0, err
	}

	hops := 0
	for k := 0; k <= level; k++ {
		table := c.neighbors[k]
		for {
			best, bestDot := cur, curDot
			for _, n := range table.Of(cur) {
				if n == adjacency.Unused {
					break
				}
				if n == cur {
					continue
				}
				d, err := score(n)
				if err != nil {
					return 0, err
				}
				if d > bestDot {
					best, bestDot = n, d
				}
			}
			if best == cur {
				break
			}
			cur, curDot = best, bestDot
			hops++
		}
	}

	c.opts.metrics.observeHops(hops)
	return cur, nil
}
