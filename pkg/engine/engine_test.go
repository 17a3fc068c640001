package engine

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/volgrad/pkg/volume"
)

var small = volume.Dims{X: 3, Y: 2, Z: 2}

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	g, evalErrs, err := eng.Evaluate("   \n\t  \n  ", small)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if g == nil {
		t.Fatal("expected non-nil grid")
	}
	if g.Dims() != small {
		t.Errorf("Dims() = %v, want %v", g.Dims(), small)
	}
	if v := g.Voxel(2, 1, 1); v != 0 {
		t.Errorf("Voxel(2,1,1) = %v, want 0", v)
	}
}

func TestEvaluateEmptyDims(t *testing.T) {
	eng := NewEngine()
	if _, _, err := eng.Evaluate("(x)", volume.Dims{X: 2}); err == nil {
		t.Fatal("expected fatal error for empty dims")
	}
}

func TestEvaluateCoordinateBuiltins(t *testing.T) {
	eng := NewEngine()

	g, evalErrs, err := eng.Evaluate("(+ (x) (* 10 (y)) (* 100 (z)))", small)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	for z := 0; z < small.Z; z++ {
		for y := 0; y < small.Y; y++ {
			for x := 0; x < small.X; x++ {
				want := float64(x + 10*y + 100*z)
				if got := g.Voxel(x, y, z); got != want {
					t.Errorf("Voxel(%d,%d,%d) = %v, want %v", x, y, z, got, want)
				}
			}
		}
	}
}

func TestEvaluateExtentBuiltins(t *testing.T) {
	eng := NewEngine()

	g, evalErrs, err := eng.Evaluate("(+ (nx) (ny) (nz))", small)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("Evaluate() = %v, %v", evalErrs, err)
	}
	if got := g.Voxel(0, 0, 0); got != 7 {
		t.Errorf("Voxel(0,0,0) = %v, want 7", got)
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	eng := NewEngine()

	source := `
; the last expression is the sample value
(+ 1 2)
(* 2.5 (x))
`
	g, evalErrs, err := eng.Evaluate(source, small)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if got := g.Voxel(2, 0, 0); got != 5 {
		t.Errorf("Voxel(2,0,0) = %v, want 5", got)
	}
}

func TestEvaluateTrailingComment(t *testing.T) {
	eng := NewEngine()

	g, evalErrs, err := eng.Evaluate("(+ (y) 1) ; no newline after this", small)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("Evaluate: err %v, eval errors %v", err, evalErrs)
	}
	if got := g.Voxel(0, 1, 0); got != 2 {
		t.Errorf("Voxel(0,1,0) = %v, want 2", got)
	}
}

// TestEvaluateLargeGridWithinBudget runs a CLI-default sized lattice. The
// script is compiled once, so the cost per voxel stays flat as the grid
// grows.
func TestEvaluateLargeGridWithinBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("large grid")
	}
	eng := NewEngine()
	eng.Timeout = 10 * time.Second

	source := `
(- (* 0.5 (z))
   (+ (* 0.1 (- (x) (/ (nx) 2.0)) (- (x) (/ (nx) 2.0)))
      (* 0.1 (- (y) (/ (ny) 2.0)) (- (y) (/ (ny) 2.0)))))
`
	d := volume.Dims{X: 32, Y: 32, Z: 32}
	start := time.Now()
	g, evalErrs, err := eng.Evaluate(source, d)
	if err != nil {
		t.Fatalf("Evaluate(32^3): %v (after %s)", err, time.Since(start))
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	// f(16, 16, 31) = 15.5
	if got := g.Voxel(16, 16, 31); got != 15.5 {
		t.Errorf("Voxel(16,16,31) = %v, want 15.5", got)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	// Unmatched paren is a parse error.
	g, evalErrs, err := eng.Evaluate("(+ 1 2", small)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil grid on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	g, evalErrs, err := eng.Evaluate("(+ 1 undefinedSymbol)", small)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil grid on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateNonNumericResult(t *testing.T) {
	eng := NewEngine()

	g, evalErrs, err := eng.Evaluate(`"bright"`, small)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil grid for non-numeric result")
	}
	if len(evalErrs) != 1 {
		t.Fatalf("expected one eval error, got %v", evalErrs)
	}
	if !strings.Contains(evalErrs[0].Message, "voxel (0,0,0)") {
		t.Errorf("message = %q, want voxel location", evalErrs[0].Message)
	}
}

func TestEvaluateBuiltinArity(t *testing.T) {
	eng := NewEngine()

	_, evalErrs, err := eng.Evaluate("(x 1)", small)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error for (x 1)")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Col: 0, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Line: 0, Col: 0, Message: "no location"}
	if s2 := e2.Error(); strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()

	var first *volume.Grid
	for i := 0; i < 3; i++ {
		g, evalErrs, err := eng.Evaluate("(- (* (x) (x)) (y))", small)
		if err != nil || len(evalErrs) > 0 {
			t.Fatalf("iteration %d: Evaluate() = %v, %v", i, evalErrs, err)
		}
		if first == nil {
			first = g
			continue
		}
		for z := 0; z < small.Z; z++ {
			for y := 0; y < small.Y; y++ {
				for x := 0; x < small.X; x++ {
					if got, want := g.Voxel(x, y, z), first.Voxel(x, y, z); got != want {
						t.Fatalf("iteration %d: Voxel(%d,%d,%d) = %v, want %v", i, x, y, z, got, want)
					}
				}
			}
		}
	}
}

func TestEvaluateConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng := NewEngine()
			if _, evalErrs, err := eng.Evaluate("(x)", small); err != nil || len(evalErrs) > 0 {
				t.Errorf("Evaluate() = %v, %v", evalErrs, err)
			}
		}()
	}
	wg.Wait()
}

func TestEvaluateTimeout(t *testing.T) {
	// A channel that never sends exercises the timeout plumbing without a
	// script that actually runs forever.
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult)

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
}

func TestEngineTimeoutAbandonsEvaluation(t *testing.T) {
	eng := NewEngine()
	eng.Timeout = time.Nanosecond

	_, _, err := eng.Evaluate("(x)", volume.Dims{X: 64, Y: 64, Z: 64})
	if err == nil {
		t.Fatal("expected fatal timeout error")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2) // Current generation is 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	// Pass generation 1 (stale).
	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, time.Second)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "short line format",
			msg:      "line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"comment", "; note\n(x)", "// note\n(x)"},
		{"double comment", ";; note\n(x)", "// note\n(x)"},
		{"semicolon in string", `"a;b"`, `"a;b"`},
		{"escaped quote", `"a\";b" ; c`, `"a\";b" // c`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.in); got != tt.want {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
