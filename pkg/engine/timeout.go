package engine

import (
	"errors"
	"fmt"
	"time"
)

// EvalTimeout is the default limit on one script's wall time. A script that
// asks for a deep level keeps building after the deadline; only its result
// is dropped.
const EvalTimeout = 5 * time.Second

var (
	// ErrSuperseded is returned to a script whose result arrived after a
	// newer script was submitted to the same engine.
	ErrSuperseded = errors.New("engine: script superseded")

	// ErrTimeout is returned when a script runs past the engine's limit.
	ErrTimeout = errors.New("engine: script timed out")
)

// scriptOutcome carries one script's results back from its goroutine.
type scriptOutcome struct {
	script uint64
	result *Result
	errors []EvalError
	err    error
}

// latest returns the number of the most recently submitted script.
func (e *Engine) latest() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// await blocks until script's outcome arrives or the engine's limit passes.
// Outcomes of scripts that are no longer the latest are dropped so that a
// caller never sees hits computed for source it has since replaced.
func (e *Engine) await(ch <-chan scriptOutcome, script uint64) (*Result, []EvalError, error) {
	limit := e.timeout
	if limit <= 0 {
		limit = EvalTimeout
	}
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case out := <-ch:
		if cur := e.latest(); cur != out.script {
			return nil, nil, fmt.Errorf("%w: script %d replaced by script %d", ErrSuperseded, out.script, cur)
		}
		return out.result, out.errors, out.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w: script %d after %s", ErrTimeout, script, limit)
	}
}
