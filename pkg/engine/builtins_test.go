package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/icosphere/pkg/sphere"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(vertex 4 :level 2)`,
			expect: `(vertex 4 "__kw_level" 2)`,
		},
		{
			name:   "multiple keywords",
			input:  `(neighborhood 0 :level 3 :hops 2)`,
			expect: `(neighborhood 0 "__kw_level" 3 "__kw_hops" 2)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(latlng-raycast 10 20 :level 1)`,
			expect: `(latlng_raycast 10 20 "__kw_level" 1)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:max-level`,
			expect: `"__kw_max-level"`,
		},
		{
			name:   "negative literal after kebab name",
			input:  `(vertex-count -1)`,
			expect: `(vertex_count -1)`,
		},
		{
			name:   "escaped quote inside string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "unterminated string copied to end",
			input:  `(vertex "x :level`,
			expect: `(vertex "x :level`,
		},
		{
			name:   "backtick string preserved",
			input:  "`raw :level`",
			expect: "`raw :level`",
		},
		{
			name:   "comment to end of line only",
			input:  "(+ 1 2) ; sum\n(neighbors 0 :level 1)",
			expect: "(+ 1 2) // sum\n(neighbors 0 \"__kw_level\" 1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Direct builtin evaluation helpers
// ---------------------------------------------------------------------------

// evalSexp runs preprocessed source in a sandbox with the builtins installed
// and returns the raw value, so tests can inspect arrays and vectors.
func evalSexp(t *testing.T, c *sphere.Cache, source string) (zygo.Sexp, *Result, error) {
	t.Helper()
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	res := &Result{}
	registerBuiltins(env, c, res)
	v, err := env.EvalString(preprocessSource(source))
	return v, res, err
}

func intsOf(t *testing.T, s zygo.Sexp) []int {
	t.Helper()
	arr, ok := s.(*zygo.SexpArray)
	if !ok {
		t.Fatalf("expected array, got %T", s)
	}
	out := make([]int, len(arr.Val))
	for i, x := range arr.Val {
		n, err := toInt(x)
		if err != nil {
			t.Fatalf("element %d: %v", i, err)
		}
		out[i] = n
	}
	return out
}

// ---------------------------------------------------------------------------
// Count builtins
// ---------------------------------------------------------------------------

func TestCountBuiltins(t *testing.T) {
	eng := NewEngine(nil)

	tests := []struct {
		source string
		want   string
	}{
		{"(vertex-count 0)", "12"},
		{"(vertex-count 2)", "162"},
		{"(face-count 1)", "80"},
		{"(edge-count 3)", "1920"},
		{"(+ (vertex-count 1) (face-count 1))", "122"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			res, evalErrs, err := eng.Evaluate(tt.source)
			if err != nil {
				t.Fatalf("fatal error: %v", err)
			}
			if len(evalErrs) > 0 {
				t.Fatalf("eval errors: %v", evalErrs)
			}
			if res.Value != tt.want {
				t.Errorf("value = %q, want %q", res.Value, tt.want)
			}
		})
	}

	// Counts never build the cache.
	if got := eng.Cache().Level(); got != -1 {
		t.Errorf("cache level = %d after count queries, want -1", got)
	}
}

func TestCountBuiltinInvalidLevel(t *testing.T) {
	eng := NewEngine(nil)

	res, evalErrs, err := eng.Evaluate("(vertex-count -1)")
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected an eval error for a negative level")
	}
	if !strings.Contains(evalErrs[0].Message, "vertex_count") {
		t.Errorf("error should name the builtin, got %q", evalErrs[0].Message)
	}
}

// ---------------------------------------------------------------------------
// Vec3
// ---------------------------------------------------------------------------

func TestVec3(t *testing.T) {
	v, _, err := evalSexp(t, sphere.New(), "(vec3 10.5 20 -30.7)")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	vec, err := toVec3(v)
	if err != nil {
		t.Fatalf("toVec3: %v", err)
	}
	if vec.X != 10.5 || vec.Y != 20 || vec.Z != -30.7 {
		t.Errorf("vec3 = %v, want {10.5 20 -30.7}", vec)
	}

	if _, _, err := evalSexp(t, sphere.New(), "(vec3 1 2)"); err == nil {
		t.Error("expected error for two components")
	}
	if _, _, err := evalSexp(t, sphere.New(), `(vec3 1 "y" 3)`); err == nil {
		t.Error("expected error for non-numeric component")
	}
}

// ---------------------------------------------------------------------------
// Raycast
// ---------------------------------------------------------------------------

func TestRaycastPoles(t *testing.T) {
	eng := NewEngine(nil)

	source := `
(def north (raycast (vec3 0 1 0) :level 3))
(def south (raycast (vec3 0 -1 0) :level 3))
(+ (* north 100) south)
`
	res, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if res.Value != "11" {
		t.Errorf("value = %q, want %q (north 0, south 11)", res.Value, "11")
	}
	if len(res.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(res.Hits))
	}
	if res.Hits[0].Vertex != 0 || res.Hits[1].Vertex != 11 {
		t.Errorf("hits = %+v", res.Hits)
	}
	if res.Hits[0].Level != 3 {
		t.Errorf("hit level = %d, want 3", res.Hits[0].Level)
	}
	if res.Hits[1].Direction != [3]float64{0, -1, 0} {
		t.Errorf("hit direction = %v", res.Hits[1].Direction)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unit directions should not warn, got %v", res.Warnings)
	}
}

func TestRaycastMatchesCache(t *testing.T) {
	c := sphere.New()
	eng := NewEngine(c)

	res, evalErrs, err := eng.Evaluate("(raycast (vec3 3 -2 7) :level 4 :normalize true)")
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}

	want, err := c.Raycast(v3.Vec{X: 3, Y: -2, Z: 7}, 4, true)
	if err != nil {
		t.Fatalf("Raycast: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].Vertex != want {
		t.Errorf("hits = %+v, want vertex %d", res.Hits, want)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("normalized raycast should not warn, got %v", res.Warnings)
	}
}

func TestRaycastWarnsOnNonUnitDirection(t *testing.T) {
	eng := NewEngine(nil)

	res, evalErrs, err := eng.Evaluate("(raycast (vec3 0 5 0) :level 1)")
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if res.Value != "0" {
		t.Errorf("value = %q, want %q", res.Value, "0")
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(res.Warnings))
	}
	if !strings.Contains(res.Warnings[0].Message, "not unit length") {
		t.Errorf("unexpected warning: %q", res.Warnings[0].Message)
	}
}

func TestRaycastZeroDirectionNormalized(t *testing.T) {
	_, _, err := evalSexp(t, sphere.New(), "(raycast (vec3 0 0 0) :normalize true)")
	if err == nil {
		t.Fatal("expected error for zero direction")
	}
	if !strings.Contains(err.Error(), "raycast") {
		t.Errorf("error should name the builtin, got %v", err)
	}
}

func TestRaycastArgumentErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"missing direction", "(raycast)"},
		{"direction not vec3", "(raycast 5)"},
		{"level not integer", "(raycast (vec3 0 1 0) :level 1.5)"},
		{"normalize not boolean", "(raycast (vec3 0 1 0) :normalize 3)"},
		{"level too deep", "(raycast (vec3 0 1 0) :level 99)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := evalSexp(t, sphere.New(), tt.source); err == nil {
				t.Errorf("expected error for %s", tt.source)
			}
		})
	}
}

func TestRaycastNormalizeFlag(t *testing.T) {
	// A trailing keyword with no value is a flag.
	v, res, err := evalSexp(t, sphere.New(), "(raycast (vec3 0 -9 0) :level 2 :normalize)")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if n, _ := toInt(v); n != 11 {
		t.Errorf("raycast = %s, want 11", v.SexpString(nil))
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

// ---------------------------------------------------------------------------
// Geographic queries
// ---------------------------------------------------------------------------

func TestLatLngRaycast(t *testing.T) {
	eng := NewEngine(nil)

	res, evalErrs, err := eng.Evaluate("(latlng-raycast -90 0 :level 2)")
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if res.Value != "11" {
		t.Errorf("value = %q, want %q", res.Value, "11")
	}
	if len(res.Hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(res.Hits))
	}
	if math.Abs(res.Hits[0].Direction[1]+1) > 1e-12 {
		t.Errorf("hit direction = %v, want south pole", res.Hits[0].Direction)
	}

	if _, _, err := evalSexp(t, sphere.New(), "(latlng-raycast 120 0)"); err == nil {
		t.Error("expected error for latitude out of range")
	}
}

func TestLatLngBuiltin(t *testing.T) {
	c := sphere.New()
	v, _, err := evalSexp(t, c, "(ensure-level 0) (latlng 0)")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	arr, ok := v.(*zygo.SexpArray)
	if !ok || len(arr.Val) != 2 {
		t.Fatalf("expected [lat lng], got %s", v.SexpString(nil))
	}
	lat, err := toFloat64(arr.Val[0])
	if err != nil {
		t.Fatalf("lat: %v", err)
	}
	if math.Abs(lat-90) > 1e-9 {
		t.Errorf("lat = %g, want 90", lat)
	}

	if _, _, err := evalSexp(t, sphere.New(), "(latlng 0)"); err == nil {
		t.Error("expected error before any level is built")
	}
}

// ---------------------------------------------------------------------------
// Mesh queries
// ---------------------------------------------------------------------------

func TestVertexBuiltin(t *testing.T) {
	v, _, err := evalSexp(t, sphere.New(), "(vertex 11 :level 1)")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	vec, err := toVec3(v)
	if err != nil {
		t.Fatalf("toVec3: %v", err)
	}
	if math.Abs(vec.Y+1) > 1e-12 {
		t.Errorf("vertex 11 = %v, want the south pole", vec)
	}

	_, _, err = evalSexp(t, sphere.New(), "(vertex 12 :level 0)")
	if err == nil {
		t.Fatal("expected out-of-range error")
	}
	if !strings.Contains(err.Error(), "vertex") {
		t.Errorf("error should name the builtin, got %v", err)
	}
}

func TestNeighborsBuiltin(t *testing.T) {
	v, _, err := evalSexp(t, sphere.New(), "(neighbors 0)")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	got := intsOf(t, v)
	want := []int{3, 1, 5, 7, 9}
	if len(got) != len(want) {
		t.Fatalf("neighbors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("neighbors = %v, want %v", got, want)
			break
		}
	}

	v, _, err = evalSexp(t, sphere.New(), "(neighbors 12 :level 1)")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if n := len(intsOf(t, v)); n != 6 {
		t.Errorf("subdivision vertex has %d neighbors, want 6", n)
	}
}

func TestNeighborhoodBuiltin(t *testing.T) {
	v, _, err := evalSexp(t, sphere.New(), "(neighborhood 0 :level 2 :hops 1)")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	got := intsOf(t, v)
	if len(got) != 6 {
		t.Fatalf("1-ring of a base vertex = %v, want 6 members", got)
	}
	if got[0] != 0 {
		t.Errorf("neighborhood should be sorted and include the center, got %v", got)
	}

	v, _, err = evalSexp(t, sphere.New(), "(neighborhood 5)")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if n := len(intsOf(t, v)); n != 6 {
		t.Errorf("default hops should be 1, got %d members", n)
	}

	if _, _, err := evalSexp(t, sphere.New(), "(neighborhood 0 :hops -1)"); err == nil {
		t.Error("expected error for negative hops")
	}
}

func TestEnsureBuiltins(t *testing.T) {
	c := sphere.New()
	if _, _, err := evalSexp(t, c, "(ensure-neighbors 2)"); err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got := c.Level(); got != 2 {
		t.Errorf("level = %d, want 2", got)
	}
	if got := c.NeighborLevel(); got != 2 {
		t.Errorf("neighbor level = %d, want 2", got)
	}

	if _, _, err := evalSexp(t, c, `(ensure-level "two")`); err == nil {
		t.Error("expected error for a non-integer level")
	}
}

// ---------------------------------------------------------------------------
// Plain Lisp still works (regression)
// ---------------------------------------------------------------------------

func TestArithmeticStillWorks(t *testing.T) {
	eng := NewEngine(nil)
	res, evalErrs, err := eng.Evaluate("(* (vertex-count 0) 2)")
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if res.Value != "24" {
		t.Errorf("value = %q, want %q", res.Value, "24")
	}
}
