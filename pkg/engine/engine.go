// Package engine evaluates scalar-field scripts into volumes. A script is a
// zygomys Lisp expression evaluated once per voxel in a sandbox, with the
// current lattice coordinate available through the (x), (y) and (z)
// builtins. It lets phantoms be described without writing Go.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/volgrad/pkg/volume"
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

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandboxed environment for determinism.
type Engine struct {
	// Timeout bounds a whole evaluation. Zero means EvalTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs source at every lattice point of d and returns the sampled
// grid.
//
// Return semantics:
//   - On success: returns grid + nil errors + nil error
//   - On parse/eval failure: returns nil grid + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string, d volume.Dims) (*volume.Grid, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	timeout := e.Timeout
	e.mu.Unlock()
	if timeout <= 0 {
		timeout = EvalTimeout
	}

	ch := make(chan evalResult, 1)
	stop := make(chan struct{})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		g, evalErrs, err := evaluate(source, d, stop)
		ch <- evalResult{grid: g, errors: evalErrs, err: err}
	}()

	g, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, timeout)
	close(stop)
	return g, evalErrs, err
}

// evaluate performs the per-voxel evaluation in a fresh sandbox. It returns
// early once stop is closed.
func evaluate(source string, d volume.Dims, stop <-chan struct{}) (*volume.Grid, []EvalError, error) {
	if d.Count() == 0 {
		return nil, nil, fmt.Errorf("engine: empty dims %s", d)
	}
	g := volume.NewGrid(d)

	// Empty source is a valid program that produces an all-zero field.
	if strings.TrimSpace(source) == "" {
		return g, nil, nil
	}
	source = preprocessSource(source)

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	cur := &cursor{dims: d}
	registerBuiltins(env, cur)

	fn, evalErrs := compile(env, source)
	if evalErrs != nil {
		return nil, evalErrs, nil
	}

	for z := 0; z < d.Z; z++ {
		select {
		case <-stop:
			return nil, nil, fmt.Errorf("engine: evaluation abandoned at z=%d", z)
		default:
		}
		for y := 0; y < d.Y; y++ {
			for x := 0; x < d.X; x++ {
				cur.x, cur.y, cur.z = x, y, z
				v, evalErrs := evalVoxel(env, fn)
				if evalErrs != nil {
					for i := range evalErrs {
						evalErrs[i].Message = fmt.Sprintf("at voxel (%d,%d,%d): %s", x, y, z, evalErrs[i].Message)
					}
					return nil, evalErrs, nil
				}
				g.Set(x, y, z, v)
			}
		}
	}
	return g, nil, nil
}

// voxelFunc names the function the script body is compiled into.
const voxelFunc = "volgrad-voxel"

// compile loads source once as the body of a zero-argument function and
// returns it. The wrapper opens on the script's first line so parse error
// line numbers still match the user's source.
func compile(env *zygo.Zlisp, source string) (*zygo.SexpFunction, []EvalError) {
	wrapped := "(defn " + voxelFunc + " [] " + source + "\n)"
	if err := env.LoadString(wrapped); err != nil {
		return nil, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err)
	}
	obj, ok := env.FindObject(voxelFunc)
	if !ok {
		return nil, []EvalError{{Message: "script did not compile to a function"}}
	}
	fn, ok := obj.(*zygo.SexpFunction)
	if !ok {
		return nil, []EvalError{{Message: "script did not compile to a function"}}
	}
	return fn, nil
}

// evalVoxel calls the compiled script against the current cursor.
func evalVoxel(env *zygo.Zlisp, fn *zygo.SexpFunction) (float64, []EvalError) {
	res, err := env.Apply(fn, nil)
	if err != nil {
		return 0, parseZygomysError(err)
	}
	v, err := toFloat64(res)
	if err != nil {
		return 0, []EvalError{{Message: "script result: " + err.Error()}}
	}
	return v, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
