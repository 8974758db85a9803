package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/icosphere/pkg/sphere"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/golang/geo/s2"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites query source into something zygomys parses:
//
//   - :level becomes the string "__kw_level", which parseArgs later pairs
//     with the value that follows it. := is left alone.
//   - vertex-count becomes vertex_count; zygomys reads a bare hyphen as
//     subtraction. A hyphen only counts as part of a name when it joins
//     a name character to a letter, so (- 10 5) and -1 survive.
//   - ; and ;; comments become // comments.
//
// String literals in double quotes or backticks pass through untouched.
func preprocessSource(source string) string {
	s := &sourceScanner{src: source}
	s.out = make([]byte, 0, len(source)+len(source)/4)
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; {
		case c == '"':
			s.copyQuoted('"', true)
		case c == '`':
			s.copyQuoted('`', false)
		case c == ';':
			s.rewriteComment()
		case c == ':' && s.peek(1) == '=':
			s.copyN(2)
		case c == ':' && isLetter(s.peek(1)):
			s.rewriteKeyword()
		case c == '-' && s.joinsName():
			s.out = append(s.out, '_')
			s.pos++
		default:
			s.copyN(1)
		}
	}
	return string(s.out)
}

// sourceScanner walks query source one byte at a time.
type sourceScanner struct {
	src string
	pos int
	out []byte
}

// peek returns the byte off positions ahead, or 0 past the end.
func (s *sourceScanner) peek(off int) byte {
	if i := s.pos + off; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

func (s *sourceScanner) copyN(n int) {
	end := min(s.pos+n, len(s.src))
	s.out = append(s.out, s.src[s.pos:end]...)
	s.pos = end
}

// copyQuoted copies a literal through its closing quote, or to the end of
// input if it is unterminated.
func (s *sourceScanner) copyQuoted(quote byte, escapes bool) {
	s.copyN(1)
	for s.pos < len(s.src) && s.src[s.pos] != quote {
		if escapes && s.src[s.pos] == '\\' {
			s.copyN(2)
			continue
		}
		s.copyN(1)
	}
	s.copyN(1)
}

func (s *sourceScanner) rewriteComment() {
	for s.pos < len(s.src) && s.src[s.pos] == ';' {
		s.pos++
	}
	s.out = append(s.out, '/', '/')
	end := strings.IndexByte(s.src[s.pos:], '\n')
	if end < 0 {
		end = len(s.src) - s.pos
	}
	s.copyN(end)
}

func (s *sourceScanner) rewriteKeyword() {
	start := s.pos + 1
	end := start
	for end < len(s.src) && isKWChar(s.src[end]) {
		end++
	}
	s.out = append(s.out, '"')
	s.out = append(s.out, kwPrefix...)
	s.out = append(s.out, s.src[start:end]...)
	s.out = append(s.out, '"')
	s.pos = end
}

// joinsName reports whether the hyphen at pos sits inside a kebab-case name.
func (s *sourceScanner) joinsName() bool {
	return s.pos > 0 && isNameChar(s.src[s.pos-1]) && isLetter(s.peek(1))
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isNameChar matches bytes that may precede a joining hyphen.
func isNameChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}

// isKWChar matches bytes allowed in a keyword name, hyphens included.
func isKWChar(c byte) bool {
	return isNameChar(c) || c == '-'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a direction or vertex position.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); {
		if name, ok := isKW(args[i]); ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value is a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
			continue
		}
		result.positional = append(result.positional, args[i])
		i++
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean. A bare trailing keyword (SexpNull) counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a v3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// intArg reads keyword name as an integer, falling back to def.
func (pa kwArgs) intArg(name string, def int) (int, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	return toInt(v)
}

func intList(env *zygo.Zlisp, xs []int) zygo.Sexp {
	items := make([]zygo.Sexp, len(xs))
	for i, x := range xs {
		items[i] = &zygo.SexpInt{Val: int64(x)}
	}
	return &zygo.SexpArray{Val: items, Env: env}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// defaultLevel is the level used when a query omits :level.
const defaultLevel = 0

// registerBuiltins installs the query builtins into a zygomys environment.
// Raycasts and warnings are recorded on res.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, c *sphere.Cache, res *Result) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (vertex-count 3) (face-count 3) (edge-count 3)
	// -----------------------------------------------------------------------
	counts := map[string]func(int) (int, error){
		"vertex_count": sphere.VertexCount,
		"face_count":   sphere.FaceCount,
		"edge_count":   sphere.EdgeCount,
	}
	for fname, fn := range counts {
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a level argument", name)
			}
			level, err := toInt(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: level: %w", name, err)
			}
			n, err := fn(level)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &zygo.SexpInt{Val: int64(n)}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (ensure-level 4) (ensure-neighbors 4)
	// -----------------------------------------------------------------------
	ensure := map[string]func(int) error{
		"ensure_level":     c.EnsureLevel,
		"ensure_neighbors": c.EnsureNeighbors,
	}
	for fname, fn := range ensure {
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a level argument", name)
			}
			level, err := toInt(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: level: %w", name, err)
			}
			if err := fn(level); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &zygo.SexpInt{Val: int64(level)}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (raycast (vec3 0 1 0) :level 3 :normalize true)
	// -----------------------------------------------------------------------
	env.AddFunction("raycast", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("raycast requires a direction as first argument")
		}
		dir, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("raycast: direction: %w", err)
		}
		level, err := pa.intArg("level", defaultLevel)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("raycast: level: %w", err)
		}
		normalize := false
		if v, ok := pa.kw["normalize"]; ok {
			if normalize, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("raycast: normalize: %w", err)
			}
		}

		if !normalize && math.Abs(dir.Length()-1) > 1e-9 {
			res.Warnings = append(res.Warnings, EvalWarning{
				Message: fmt.Sprintf("raycast: direction %s is not unit length; dot products are scaled (use :normalize true)",
					(&sexpVec3{vec: dir}).SexpString(nil)),
			})
		}

		idx, err := c.Raycast(dir, level, normalize)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("raycast: %w", err)
		}
		res.Hits = append(res.Hits, Hit{Level: level, Vertex: idx, Direction: [3]float64{dir.X, dir.Y, dir.Z}})
		return &zygo.SexpInt{Val: int64(idx)}, nil
	})

	// -----------------------------------------------------------------------
	// (latlng-raycast 45.0 -122.5 :level 5)
	// -----------------------------------------------------------------------
	env.AddFunction("latlng_raycast", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("latlng-raycast requires latitude and longitude in degrees")
		}
		lat, err := toFloat64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("latlng-raycast: lat: %w", err)
		}
		lng, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("latlng-raycast: lng: %w", err)
		}
		level, err := pa.intArg("level", defaultLevel)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("latlng-raycast: level: %w", err)
		}

		ll := s2.LatLngFromDegrees(lat, lng)
		idx, err := c.RaycastLatLng(ll, level)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("latlng-raycast: %w", err)
		}
		dir := sphere.DirectionFromLatLng(ll)
		res.Hits = append(res.Hits, Hit{Level: level, Vertex: idx, Direction: [3]float64{dir.X, dir.Y, dir.Z}})
		return &zygo.SexpInt{Val: int64(idx)}, nil
	})

	// -----------------------------------------------------------------------
	// (vertex 12 :level 1)
	// -----------------------------------------------------------------------
	env.AddFunction("vertex", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("vertex requires an index argument")
		}
		idx, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex: index: %w", err)
		}
		level, err := pa.intArg("level", defaultLevel)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex: level: %w", err)
		}
		v, err := c.Vertex(idx, level)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex: %w", err)
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (neighbors 0 :level 2)
	// -----------------------------------------------------------------------
	env.AddFunction("neighbors", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("neighbors requires an index argument")
		}
		idx, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("neighbors: index: %w", err)
		}
		level, err := pa.intArg("level", defaultLevel)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("neighbors: level: %w", err)
		}
		ns, err := c.NeighborsOf(idx, level)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("neighbors: %w", err)
		}
		return intList(env, ns), nil
	})

	// -----------------------------------------------------------------------
	// (neighborhood 0 :level 2 :hops 2)
	// -----------------------------------------------------------------------
	env.AddFunction("neighborhood", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("neighborhood requires a center index argument")
		}
		center, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("neighborhood: center: %w", err)
		}
		level, err := pa.intArg("level", defaultLevel)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("neighborhood: level: %w", err)
		}
		hops, err := pa.intArg("hops", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("neighborhood: hops: %w", err)
		}
		set, err := c.Neighborhood(center, level, hops)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("neighborhood: %w", err)
		}
		ids := make([]int, 0, set.GetCardinality())
		for _, id := range set.ToArray() {
			ids = append(ids, int(id))
		}
		return intList(env, ids), nil
	})

	// -----------------------------------------------------------------------
	// (latlng 12) -> [lat lng] in degrees
	// -----------------------------------------------------------------------
	env.AddFunction("latlng", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("latlng requires an index argument")
		}
		idx, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("latlng: index: %w", err)
		}
		ll, err := c.LatLng(idx)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("latlng: %w", err)
		}
		return &zygo.SexpArray{Val: []zygo.Sexp{
			&zygo.SexpFloat{Val: ll.Lat.Degrees()},
			&zygo.SexpFloat{Val: ll.Lng.Degrees()},
		}, Env: env}, nil
	})
}
