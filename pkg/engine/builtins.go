package engine

import (
	"fmt"

	"github.com/chazu/volgrad/pkg/volume"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource converts traditional Lisp ; line comments to the //
// comments zygomys understands. String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+8)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Collapse ;; style runs.
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

// cursor is the lattice point currently being evaluated.
type cursor struct {
	x, y, z int
	dims    volume.Dims
}

// registerBuiltins exposes the cursor and lattice extent to scripts:
//
//	(x) (y) (z)     current voxel coordinate
//	(nx) (ny) (nz)  volume extent
func registerBuiltins(env *zygo.Zlisp, cur *cursor) {
	intFn := func(get func() int) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 0 {
				return zygo.SexpNull, fmt.Errorf("%s takes no arguments, got %d", name, len(args))
			}
			return &zygo.SexpInt{Val: int64(get())}, nil
		}
	}
	env.AddFunction("x", intFn(func() int { return cur.x }))
	env.AddFunction("y", intFn(func() int { return cur.y }))
	env.AddFunction("z", intFn(func() int { return cur.z }))
	env.AddFunction("nx", intFn(func() int { return cur.dims.X }))
	env.AddFunction("ny", intFn(func() int { return cur.dims.Y }))
	env.AddFunction("nz", intFn(func() int { return cur.dims.Z }))
}

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
