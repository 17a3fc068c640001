// Command volgrad builds a gradient vector field over a scalar volume and
// answers interpolated gradient queries against it.
//
// The volume comes from a zygomys script or a built-in phantom solid, and
// the field can be cached in SQLite between runs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("volgrad: %v", err)
	}
}

// run parses args, builds the field and writes the report to stdout.
func run(args []string, stdout io.Writer) error {
	var fl Config
	fs := flag.NewFlagSet("volgrad", flag.ContinueOnError)
	configPath := fs.String("config", "", "JSON config file")
	fs.Var(dimsFlag{&fl.Dims}, "dims", "volume extent as X,Y,Z or N")
	fs.StringVar(&fl.Mode, "mode", "", "interpolation mode: nearest, linear or cubic")
	fs.IntVar(&fl.Workers, "workers", 0, "goroutines used to build the field (default NumCPU)")
	fs.StringVar(&fl.Script, "script", "", "scalar-field script to evaluate")
	fs.StringVar(&fl.Phantom, "phantom", "", "built-in solid: sphere, box, cylinder, shell, dumbbell")
	fs.StringVar(&fl.Cache, "cache", "", "SQLite DSN for the field cache")
	fs.StringVar(&fl.Key, "key", "", "cache key (derived from the source when empty)")
	fs.Var(samplesFlag{&fl.Samples}, "sample", "gradient query as x,y,z (repeatable)")
	fs.IntVar(&fl.MeshCells, "mesh", 0, "tessellate the phantom with N cells and shade it from the field")
	fs.IntVar(&fl.TimeoutSec, "timeout", 0, "script evaluation timeout in seconds")
	fs.BoolVar(&fl.Verbose, "v", false, "verbose logging")
	fs.BoolVar(&fl.JSON, "json", false, "write the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) { cfg.override(&fl, f.Name) })
	if err := cfg.applyDefaults(); err != nil {
		return err
	}

	app := NewApp(cfg)
	if err := app.OpenCache(); err != nil {
		return err
	}
	defer app.Close()

	report := app.Run(context.Background())
	if err := writeReport(stdout, report, cfg.JSON); err != nil {
		return err
	}
	if len(report.Errors) > 0 {
		return fmt.Errorf("%d error(s) building field", len(report.Errors))
	}
	return nil
}

// override copies the field named by a set flag from fl into c.
func (c *Config) override(fl *Config, name string) {
	switch name {
	case "dims":
		c.Dims = fl.Dims
	case "mode":
		c.Mode = fl.Mode
	case "workers":
		c.Workers = fl.Workers
	case "script":
		c.Script = fl.Script
		c.Phantom = ""
	case "phantom":
		c.Phantom = fl.Phantom
		c.Script = ""
	case "cache":
		c.Cache = fl.Cache
	case "key":
		c.Key = fl.Key
	case "sample":
		c.Samples = fl.Samples
	case "mesh":
		c.MeshCells = fl.MeshCells
	case "timeout":
		c.TimeoutSec = fl.TimeoutSec
	case "v":
		c.Verbose = fl.Verbose
	case "json":
		c.JSON = fl.JSON
	}
}

func writeReport(w io.Writer, r Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "source:    %s\n", r.Source)
	fmt.Fprintf(w, "dims:      %dx%dx%d\n", r.Dims[0], r.Dims[1], r.Dims[2])
	fmt.Fprintf(w, "mode:      %s\n", r.Mode)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error:     line %d: %s\n", e.Line, e.Message)
	}
	if len(r.Errors) > 0 {
		return nil
	}
	fmt.Fprintf(w, "cached:    %t\n", r.Cached)
	fmt.Fprintf(w, "magnitude: min %g max %g\n", r.MinMagnitude, r.MaxMagnitude)
	for _, s := range r.Samples {
		fmt.Fprintf(w, "sample (%g, %g, %g): dir (%g, %g, %g) |g| %g %s\n",
			s.Coord[0], s.Coord[1], s.Coord[2],
			s.Dir[0], s.Dir[1], s.Dir[2], s.Magnitude, s.Class)
	}
	if r.Mesh != nil {
		fmt.Fprintf(w, "mesh:      %d vertices, %d triangles, %d shaded\n",
			r.Mesh.Vertices, r.Mesh.Triangles, r.Mesh.Shaded)
	}
	return nil
}
