package sphere

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors updated by a Cache.
type Metrics struct {
	LevelsBuilt         prometheus.Counter
	NeighborTablesBuilt prometheus.Counter
	RaycastHops         prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LevelsBuilt: f.NewCounter(prometheus.CounterOpts{
			Name: "icosphere_levels_built_total",
			Help: "Subdivision levels computed",
		}),
		NeighborTablesBuilt: f.NewCounter(prometheus.CounterOpts{
			Name: "icosphere_neighbor_tables_built_total",
			Help: "Neighbor tables computed",
		}),
		RaycastHops: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "icosphere_raycast_hops",
			Help:    "Vertex moves per raycast across all levels",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
	}
}

func (m *Metrics) levelBuilt() {
	if m != nil {
		m.LevelsBuilt.Inc()
	}
}

func (m *Metrics) tableBuilt() {
	if m != nil {
		m.NeighborTablesBuilt.Inc()
	}
}

func (m *Metrics) observeHops(n int) {
	if m != nil {
		m.RaycastHops.Observe(float64(n))
	}
}
