// Package engine provides the Lisp query engine for icosphere.
// It wraps zygomys in a sandboxed environment whose builtins query a
// shared sphere cache.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/icosphere/pkg/sphere"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Message string
}

// Hit records one raycast performed by a script.
type Hit struct {
	Level     int
	Vertex    int
	Direction [3]float64
}

// Result is the output of a successful evaluation.
type Result struct {
	Value    string // printed form of the last expression
	Hits     []Hit
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandboxed environment, while the
// sphere cache is shared between calls.
type Engine struct {
	cache *sphere.Cache

	mu         sync.Mutex
	generation uint64 // number of the latest submitted script

	timeout time.Duration
}

// DefaultMaxLevel caps the private cache of an engine created without one.
// Level 10 already holds about ten million vertices; deeper levels are
// available through a cache configured with sphere.WithMaxLevel.
const DefaultMaxLevel = 10

// NewEngine creates an Engine querying c. A nil c gets a private cache
// capped at DefaultMaxLevel.
func NewEngine(c *sphere.Cache) *Engine {
	if c == nil {
		c = sphere.New(sphere.WithMaxLevel(DefaultMaxLevel))
	}
	return &Engine{cache: c}
}

// Cache returns the sphere cache the engine's builtins query.
func (e *Engine) Cache() *sphere.Cache {
	return e.cache
}

// Evaluate runs Lisp source code against the engine's cache.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns nil result + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Result, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan scriptOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- scriptOutcome{script: gen, err: fmt.Errorf("engine: script %d panicked: %v", gen, r)}
			}
		}()

		res, evalErrs, err := e.evaluate(source)
		ch <- scriptOutcome{script: gen, result: res, errors: evalErrs, err: err}
	}()

	return e.await(ch, gen)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Result, []EvalError, error) {
	// Empty source is a valid program with no value.
	if strings.TrimSpace(source) == "" {
		return &Result{}, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	res := &Result{}
	registerBuiltins(env, e.cache, res)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	v, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}
	if v != nil {
		res.Value = v.SexpString(nil)
	}
	return res, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
