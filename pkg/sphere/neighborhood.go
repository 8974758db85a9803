package sphere

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/chazu/icosphere/pkg/adjacency"
)

// Neighborhood returns every vertex of level within hops edges of center,
// center included.
func (c *Cache) Neighborhood(center, level, hops int) (*roaring.Bitmap, error) {
	if hops < 0 {
		return nil, fmt.Errorf("sphere: negative hop count %d", hops)
	}
	if err := c.EnsureNeighbors(level); err != nil {
		return nil, err
	}
	if center < 0 || center >= mustVertexCount(level) {
		return nil, fmt.Errorf("%w: %d at level %d", ErrVertexOutOfRange, center, level)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	table := c.neighbors[level]

	seen := roaring.New()
	seen.Add(uint32(center))
	frontier := []int{center}
	for step := 0; step < hops && len(frontier) > 0; step++ {
		var next []int
		for _, v := range frontier {
			for _, n := range table.Of(v) {
				if n == adjacency.Unused {
					break
				}
				if seen.CheckedAdd(uint32(n)) {
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return seen, nil
}
