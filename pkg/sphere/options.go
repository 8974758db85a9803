package sphere

import (
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
)

// MaxLevel is the deepest level a Cache can build: beyond it vertex
// indices no longer fit the 32-bit halves of an edge key.
const MaxLevel = 14

type options struct {
	logger      logrus.FieldLogger
	metrics     *Metrics
	maxLevel    int
	parallelism int
}

// Option configures a Cache.
type Option func(*options)

// WithLogger sets the logger used for cache growth events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics attaches prometheus collectors to the cache.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithMaxLevel lowers the deepest level the cache will build. Values
// outside [0, MaxLevel] are clamped.
func WithMaxLevel(level int) Option {
	return func(o *options) {
		o.maxLevel = min(max(level, 0), MaxLevel)
	}
}

// WithParallelism bounds how many neighbor tables are built at once.
// n <= 0 means runtime.GOMAXPROCS(0).
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

func defaultOptions() options {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return options{
		logger:   l,
		maxLevel: MaxLevel,
	}
}

func (o *options) workers() int {
	if o.parallelism > 0 {
		return o.parallelism
	}
	return runtime.GOMAXPROCS(0)
}
