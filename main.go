package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/chazu/icosphere/pkg/sphere"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang/geo/s2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// cli carries state shared by the subcommands.
type cli struct {
	configPath string
	flags      Config

	cfg *Config
	log *logrus.Logger
	reg *prometheus.Registry
	app *App
	out io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	rootCmd := &cobra.Command{
		Use:   "icosphere",
		Short: "Query nested icosahedral sphere meshes",
		Long: `icosphere builds geodesic spheres by repeated subdivision of an
icosahedron and answers nearest-vertex queries against them.

Levels are built on demand and cached for the life of the process.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: c.teardown,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "TOML configuration file")
	pf.IntVar(&c.flags.MaxLevel, "max-level", -1, "Deepest level the cache may build (default 10, at most 14)")
	pf.IntVar(&c.flags.Parallelism, "parallelism", 0, "Concurrent neighbor table builds (0 = GOMAXPROCS)")
	pf.StringVar(&c.flags.LogLevel, "log-level", "", "Log level: debug|info|warning|error")
	pf.StringVar(&c.flags.LogFormat, "log-format", "", "Log format: text|json")
	pf.BoolVar(&c.flags.Metrics, "metrics", false, "Print collected metrics to stderr on exit")

	countsCmd := &cobra.Command{
		Use:   "counts [level...]",
		Short: "Print vertex, face and edge counts per level",
		RunE:  c.runCounts,
	}

	raycastCmd := &cobra.Command{
		Use:   "raycast (--dir x,y,z | --lat deg --lng deg)",
		Short: "Find the vertex nearest a direction or coordinate",
		Args:  cobra.NoArgs,
		RunE:  c.runRaycast,
	}
	raycastCmd.Flags().Float64Slice("dir", nil, "Query direction as x,y,z")
	raycastCmd.Flags().Float64("lat", 0, "Query latitude in degrees (with --lng)")
	raycastCmd.Flags().Float64("lng", 0, "Query longitude in degrees (with --lat)")
	raycastCmd.Flags().Int("level", 0, "Subdivision level")
	raycastCmd.Flags().Bool("normalize", false, "Normalize the direction and vertex positions")
	raycastCmd.Flags().Float64Slice("rotate", nil, "Rotate the mesh by x,y,z degrees before the query")
	raycastCmd.MarkFlagsMutuallyExclusive("dir", "lat")
	raycastCmd.MarkFlagsMutuallyExclusive("dir", "lng")
	raycastCmd.MarkFlagsRequiredTogether("lat", "lng")
	raycastCmd.MarkFlagsOneRequired("dir", "lat")

	neighborsCmd := &cobra.Command{
		Use:   "neighbors <index>",
		Short: "Print the neighbors of a vertex",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runNeighbors,
	}
	neighborsCmd.Flags().Int("level", 0, "Subdivision level")
	neighborsCmd.Flags().Int("hops", 1, "Ring radius; more than 1 prints the whole neighborhood")

	evalCmd := &cobra.Command{
		Use:   "eval <file|->",
		Short: "Evaluate a query script",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runEval,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the structural invariants of a level",
		RunE:  c.runValidate,
	}
	validateCmd.Flags().Int("level", 0, "Subdivision level")

	meshCmd := &cobra.Command{
		Use:   "mesh",
		Short: "Tessellate a level and print it as JSON",
		RunE:  c.runMesh,
	}
	meshCmd.Flags().Int("level", 0, "Subdivision level")
	meshCmd.Flags().Bool("full", false, "Include vertex, normal and index arrays")

	rootCmd.AddCommand(countsCmd, raycastCmd, neighborsCmd, evalCmd, validateCmd, meshCmd)
	return rootCmd
}

// setup loads the configuration, applies flag overrides and builds the App.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("max-level") {
		cfg.MaxLevel = c.flags.MaxLevel
	}
	if f.Changed("parallelism") {
		cfg.Parallelism = c.flags.Parallelism
	}
	if f.Changed("log-level") {
		cfg.LogLevel = c.flags.LogLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = c.flags.LogFormat
	}
	if f.Changed("metrics") {
		cfg.Metrics = c.flags.Metrics
	}
	c.cfg = cfg.OrDefault()

	if c.log, err = c.cfg.NewLogger(os.Stderr); err != nil {
		return err
	}
	var reg prometheus.Registerer
	if c.cfg.Metrics {
		c.reg = prometheus.NewRegistry()
		reg = c.reg
	}
	c.app = NewApp(sphere.New(c.cfg.CacheOptions(c.log, reg)...), c.log)
	return nil
}

// teardown prints gathered metrics when enabled.
func (c *cli) teardown(cmd *cobra.Command, args []string) {
	if c.reg == nil {
		return
	}
	if err := writeMetrics(os.Stderr, c.reg); err != nil {
		c.log.WithError(err).Warn("gathering metrics")
	}
}

func (c *cli) runCounts(cmd *cobra.Command, args []string) error {
	levels := make([]int, 0, len(args))
	for _, a := range args {
		l, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("level %q: %w", a, err)
		}
		levels = append(levels, l)
	}
	if len(levels) == 0 {
		for l := 0; l <= c.cfg.MaxLevel; l++ {
			levels = append(levels, l)
		}
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "level\tvertices\tfaces\tedges\t")
	for _, l := range levels {
		v, err := sphere.VertexCount(l)
		if err != nil {
			return err
		}
		f, err := sphere.FaceCount(l)
		if err != nil {
			return err
		}
		e, err := sphere.EdgeCount(l)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t\n", l, v, f, e)
	}
	return w.Flush()
}

type raycastOutput struct {
	Level     int        `json:"level"`
	Vertex    int        `json:"vertex"`
	Direction [3]float64 `json:"direction"`
	Position  [3]float64 `json:"position"`
}

func (c *cli) runRaycast(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	level, _ := f.GetInt("level")
	normalize, _ := f.GetBool("normalize")
	rotate, _ := f.GetFloat64Slice("rotate")

	var dir v3.Vec
	if f.Changed("dir") {
		xyz, _ := f.GetFloat64Slice("dir")
		if len(xyz) != 3 {
			return fmt.Errorf("--dir takes three components, got %d", len(xyz))
		}
		dir = v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	} else {
		lat, _ := f.GetFloat64("lat")
		lng, _ := f.GetFloat64("lng")
		ll := s2.LatLngFromDegrees(lat, lng)
		if !ll.IsValid() {
			return fmt.Errorf("coordinate %g,%g out of range", lat, lng)
		}
		dir = sphere.DirectionFromLatLng(ll)
		normalize = true
	}

	cache := c.app.cache
	var (
		idx int
		err error
	)
	switch len(rotate) {
	case 0:
		idx, err = cache.Raycast(dir, level, normalize)
	case 3:
		var verts []v3.Vec
		if verts, err = cache.Rotated(level, rotate[0], rotate[1], rotate[2]); err != nil {
			return err
		}
		idx, err = cache.RaycastVertices(verts, dir, level, normalize)
	default:
		return fmt.Errorf("--rotate takes three angles, got %d", len(rotate))
	}
	if err != nil {
		return err
	}

	pos, err := cache.Vertex(idx, level)
	if err != nil {
		return err
	}
	return writeJSON(c.out, raycastOutput{
		Level:     level,
		Vertex:    idx,
		Direction: [3]float64{dir.X, dir.Y, dir.Z},
		Position:  [3]float64{pos.X, pos.Y, pos.Z},
	})
}

func (c *cli) runNeighbors(cmd *cobra.Command, args []string) error {
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index %q: %w", args[0], err)
	}
	level, _ := cmd.Flags().GetInt("level")
	hops, _ := cmd.Flags().GetInt("hops")

	if hops == 1 {
		ns, err := c.app.cache.NeighborsOf(idx, level)
		if err != nil {
			return err
		}
		return writeJSON(c.out, ns)
	}
	set, err := c.app.cache.Neighborhood(idx, level, hops)
	if err != nil {
		return err
	}
	return writeJSON(c.out, set.ToArray())
}

func (c *cli) runEval(cmd *cobra.Command, args []string) error {
	var (
		src []byte
		err error
	)
	if args[0] == "-" {
		src, err = io.ReadAll(cmd.InOrStdin())
	} else {
		src, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	result := c.app.Evaluate(string(src))
	if err := writeJSON(c.out, result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%s: %d error(s)", args[0], len(result.Errors))
	}
	return nil
}

func (c *cli) runValidate(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetInt("level")
	findings, ok, err := c.app.Validate(level)
	if err != nil {
		return err
	}
	for _, f := range findings {
		fmt.Fprintln(c.out, f.Error())
	}
	if !ok {
		return fmt.Errorf("level %d failed validation", level)
	}
	fmt.Fprintf(c.out, "level %d ok\n", level)
	return nil
}

func (c *cli) runMesh(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetInt("level")
	full, _ := cmd.Flags().GetBool("full")
	m, err := c.app.Mesh(level)
	if err != nil {
		return err
	}
	if full {
		return writeJSON(c.out, m)
	}
	return writeJSON(c.out, Summarize(m))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeMetrics prints counters and histogram sample counts as
// "name value" lines.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	sort.Slice(mfs, func(i, j int) bool { return mfs[i].GetName() < mfs[j].GetName() })
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %g\n", mf.GetName(), m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s_count %d\n", mf.GetName(), h.GetSampleCount())
				fmt.Fprintf(w, "%s_sum %g\n", mf.GetName(), h.GetSampleSum())
			}
		}
	}
	return nil
}
