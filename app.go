package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/chazu/volgrad/pkg/engine"
	"github.com/chazu/volgrad/pkg/gradient"
	"github.com/chazu/volgrad/pkg/kernel"
	"github.com/chazu/volgrad/pkg/kernel/sdfx"
	"github.com/chazu/volgrad/pkg/shade"
	"github.com/chazu/volgrad/pkg/store"
	"github.com/chazu/volgrad/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// phantomPad keeps phantom surfaces away from the zero boundary voxels.
const phantomPad = 2

// App wires a volume source, the gradient builder and the optional cache.
type App struct {
	cfg    *Config
	engine *engine.Engine
	kernel kernel.Kernel
	store  *store.SQLiteStore

	script []byte // script text, read once per run
}

// SampleData is the JSON form of one gradient query.
type SampleData struct {
	Coord     [3]float64 `json:"coord"`
	Dir       [3]float64 `json:"dir"`
	Magnitude float64    `json:"magnitude"`
	Class     string     `json:"class"`
}

// EvalErrorData is a JSON-serializable script error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// MeshData summarizes the gradient-shaded reference isosurface.
type MeshData struct {
	Vertices  int `json:"vertices"`
	Triangles int `json:"triangles"`
	Shaded    int `json:"shaded"`
}

// Report is the full result of a run.
type Report struct {
	Source       string          `json:"source"`
	Dims         [3]int          `json:"dims"`
	Mode         string          `json:"mode"`
	MinMagnitude float64         `json:"minMagnitude"`
	MaxMagnitude float64         `json:"maxMagnitude"`
	Cached       bool            `json:"cached"`
	Samples      []SampleData    `json:"samples"`
	Mesh         *MeshData       `json:"mesh,omitempty"`
	Errors       []EvalErrorData `json:"errors"`
}

// ScriptError carries the non-fatal errors of a failed script evaluation.
type ScriptError struct {
	Errors []engine.EvalError
}

func (e *ScriptError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ee := range e.Errors {
		msgs[i] = ee.Error()
	}
	return "script: " + strings.Join(msgs, "; ")
}

// NewApp creates an App for cfg, which must already have defaults applied.
// The sdfx kernel backs phantom sources.
func NewApp(cfg *Config) *App {
	eng := engine.NewEngine()
	eng.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
	return &App{
		cfg:    cfg,
		engine: eng,
		kernel: sdfx.New(),
	}
}

// OpenCache attaches the SQLite cache named by the config, if any.
func (a *App) OpenCache() error {
	if a.cfg.Cache == "" {
		return nil
	}
	db, err := store.Open(a.cfg.Cache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	s, err := store.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("open cache: %w", err)
	}
	a.store = s
	return nil
}

// Field returns the gradient field for the configured source, from the
// cache when possible. The bool reports a cache hit. A cached field whose
// extent differs from the configured dims is rebuilt.
func (a *App) Field(ctx context.Context) (*gradient.Field, bool, error) {
	var key string
	if a.store != nil {
		var err error
		if key, err = a.cacheKey(); err != nil {
			return nil, false, err
		}
		f, err := a.store.Load(ctx, key)
		switch {
		case err == nil && f.Dims() != a.cfg.VolumeDims():
			log.Printf("cache entry %q is %s, want %s; rebuilding", key, f.Dims(), a.cfg.VolumeDims())
		case err == nil:
			a.logf("cache hit for %q", key)
			f.Mode = a.cfg.InterpolationMode()
			return f, true, nil
		case !errors.Is(err, store.ErrNotFound):
			log.Printf("cache load %q failed, rebuilding: %v", key, err)
		}
	}

	vol, err := a.Volume()
	if err != nil {
		return nil, false, err
	}
	start := time.Now()
	f := gradient.New(vol, gradient.WithWorkers(a.cfg.Workers))
	f.Mode = a.cfg.InterpolationMode()
	a.logf("built %s gradient field in %s (%d workers)", f.Dims(), time.Since(start), a.cfg.Workers)

	if a.store != nil {
		if err := a.store.Save(ctx, key, f); err != nil {
			log.Printf("cache save %q failed: %v", key, err)
		}
	}
	return f, false, nil
}

// cacheKey returns the explicit key, or one derived from the source.
func (a *App) cacheKey() (string, error) {
	if a.cfg.Key != "" {
		return a.cfg.Key, nil
	}
	var src []byte
	if a.cfg.Script != "" {
		var err error
		if src, err = a.readScript(); err != nil {
			return "", err
		}
	}
	return a.cfg.defaultKey(src), nil
}

func (a *App) readScript() ([]byte, error) {
	if a.script == nil {
		src, err := os.ReadFile(a.cfg.Script)
		if err != nil {
			return nil, fmt.Errorf("read script: %w", err)
		}
		a.script = src
	}
	return a.script, nil
}

// Volume produces the scalar volume named by the config.
func (a *App) Volume() (volume.Volume, error) {
	d := a.cfg.VolumeDims()
	if a.cfg.Script != "" {
		src, err := a.readScript()
		if err != nil {
			return nil, err
		}
		return a.evalScript(string(src), d)
	}

	solid, origin, step, err := a.fitPhantom()
	if err != nil {
		return nil, err
	}
	a.logf("sampling %s phantom at step %g from %+v", a.cfg.Phantom, step, origin)
	return volume.FromSolid(solid, d, origin, step), nil
}

// fitPhantom builds the configured phantom and its lattice placement.
func (a *App) fitPhantom() (kernel.Solid, v3.Vec, float64, error) {
	solid, err := a.phantom(a.cfg.Phantom)
	if err != nil {
		return nil, v3.Vec{}, 0, err
	}
	origin, step := volume.FitSolid(solid, a.cfg.VolumeDims(), phantomPad)
	return solid, origin, step, nil
}

// ShadePhantom tessellates the phantom surface and replaces its normals with
// gradient normals from f.
func (a *App) ShadePhantom(f *gradient.Field) (*kernel.Mesh, int, error) {
	if a.cfg.Script != "" {
		return nil, 0, errors.New("mesh shading needs a phantom source")
	}
	solid, origin, step, err := a.fitPhantom()
	if err != nil {
		return nil, 0, err
	}
	m, err := a.kernel.ToMesh(solid, a.cfg.MeshCells)
	if err != nil {
		return nil, 0, fmt.Errorf("tessellate %s: %w", a.cfg.Phantom, err)
	}
	shaded := shade.ShadeMesh(m, f, shade.LatticeMapping(origin, step))
	a.logf("shaded %d of %d vertices", shaded, m.VertexCount())
	return m, shaded, nil
}

func (a *App) evalScript(src string, d volume.Dims) (volume.Volume, error) {
	g, evalErrs, err := a.engine.Evaluate(src, d)
	if err != nil {
		return nil, fmt.Errorf("evaluate script: %w", err)
	}
	if len(evalErrs) > 0 {
		return nil, &ScriptError{Errors: evalErrs}
	}
	return g, nil
}

// phantom builds a named test solid.
func (a *App) phantom(name string) (kernel.Solid, error) {
	k := a.kernel
	switch name {
	case "sphere":
		return k.Sphere(10), nil
	case "box":
		return k.Box(16, 12, 8), nil
	case "cylinder":
		return k.Cylinder(20, 6), nil
	case "shell":
		return k.Difference(k.Sphere(10), k.Sphere(6)), nil
	case "dumbbell":
		return k.Union(
			k.Union(k.Translate(k.Sphere(5), -8, 0, 0), k.Translate(k.Sphere(5), 8, 0, 0)),
			k.Rotate(k.Cylinder(16, 2), 0, 90, 0),
		), nil
	default:
		return nil, fmt.Errorf("unknown phantom %q (want sphere, box, cylinder, shell or dumbbell)", name)
	}
}

// Run builds the field and answers the configured sample queries.
func (a *App) Run(ctx context.Context) Report {
	d := a.cfg.VolumeDims()
	report := Report{
		Source:  a.sourceName(),
		Dims:    [3]int{d.X, d.Y, d.Z},
		Mode:    a.cfg.InterpolationMode().String(),
		Samples: []SampleData{},
		Errors:  []EvalErrorData{},
	}

	f, cached, err := a.Field(ctx)
	if err != nil {
		var se *ScriptError
		if errors.As(err, &se) {
			for _, e := range se.Errors {
				report.Errors = append(report.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
			}
			return report
		}
		log.Printf("build failed: %v", err)
		report.Errors = append(report.Errors, EvalErrorData{Message: err.Error()})
		return report
	}

	fd := f.Dims()
	report.Dims = [3]int{fd.X, fd.Y, fd.Z}
	report.Cached = cached
	report.MinMagnitude = f.MinMagnitude()
	report.MaxMagnitude = f.MaxMagnitude()

	// Surface and edge thresholds at a third and two thirds of the range.
	lo := report.MinMagnitude + (report.MaxMagnitude-report.MinMagnitude)/3
	hi := report.MinMagnitude + 2*(report.MaxMagnitude-report.MinMagnitude)/3
	for _, c := range a.cfg.Samples {
		g := f.Interpolate(v3.Vec{X: c[0], Y: c[1], Z: c[2]})
		report.Samples = append(report.Samples, SampleData{
			Coord:     c,
			Dir:       [3]float64{g.Dir.X, g.Dir.Y, g.Dir.Z},
			Magnitude: g.Magnitude,
			Class:     shade.Classify(g, lo, hi).String(),
		})
	}

	if a.cfg.MeshCells > 0 {
		m, shaded, err := a.ShadePhantom(f)
		if err != nil {
			report.Errors = append(report.Errors, EvalErrorData{Message: err.Error()})
			return report
		}
		report.Mesh = &MeshData{Vertices: m.VertexCount(), Triangles: m.TriangleCount(), Shaded: shaded}
	}
	return report
}

func (a *App) sourceName() string {
	if a.cfg.Script != "" {
		return "script:" + a.cfg.Script
	}
	return "phantom:" + a.cfg.Phantom
}

func (a *App) logf(format string, args ...any) {
	if a.cfg.Verbose {
		log.Printf(format, args...)
	}
}

// Close releases the cache connection, if one is open.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
