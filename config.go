package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/volgrad/pkg/gradient"
	"github.com/chazu/volgrad/pkg/volume"
)

// Defaults applied to zero config fields.
const (
	DefaultDim     = 32
	DefaultMode    = "linear"
	DefaultPhantom = "sphere"
	DefaultTimeout = 30 * time.Second
)

// Config describes one run. It is loaded from JSON and then overridden by
// command-line flags.
type Config struct {
	Dims    [3]int       `json:"dims"`
	Mode    string       `json:"mode,omitempty"`
	Workers int          `json:"workers,omitempty"`
	Script  string       `json:"script,omitempty"`  // path to a scalar-field script
	Phantom string       `json:"phantom,omitempty"` // used when Script is empty
	Cache   string       `json:"cache,omitempty"`   // SQLite DSN; empty disables caching
	Key     string       `json:"key,omitempty"`     // cache key; derived per run when empty
	Samples [][3]float64 `json:"samples,omitempty"`

	// MeshCells, when positive, tessellates the phantom with that many
	// cells and shades it from the field.
	MeshCells int `json:"meshCells,omitempty"`

	// TimeoutSec bounds script evaluation.
	TimeoutSec int  `json:"timeoutSec,omitempty"`
	Verbose    bool `json:"verbose,omitempty"`
	JSON       bool `json:"json,omitempty"`
}

// loadConfig reads a JSON config file. A missing path yields an empty
// config; defaults are applied separately by applyDefaults.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// applyDefaults fills zero fields and validates the result.
func (c *Config) applyDefaults() error {
	for i := range c.Dims {
		if c.Dims[i] == 0 {
			c.Dims[i] = DefaultDim
		}
		if c.Dims[i] < 0 {
			return fmt.Errorf("config: dims must be positive, got %v", c.Dims)
		}
	}
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	if _, err := gradient.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Script == "" && c.Phantom == "" {
		c.Phantom = DefaultPhantom
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = int(DefaultTimeout / time.Second)
	}
	if c.MeshCells < 0 {
		return fmt.Errorf("config: meshCells must not be negative, got %d", c.MeshCells)
	}
	return nil
}

// defaultKey names a cache entry after its source and extent. Script keys
// include a digest of the script text so edits invalidate the entry.
func (c *Config) defaultKey(script []byte) string {
	src := "phantom:" + c.Phantom
	if c.Script != "" {
		sum := sha256.Sum256(script)
		src = fmt.Sprintf("script:%s#%x", c.Script, sum[:6])
	}
	return fmt.Sprintf("%s@%s", src, c.VolumeDims())
}

// VolumeDims returns Dims as a volume.Dims.
func (c *Config) VolumeDims() volume.Dims {
	return volume.Dims{X: c.Dims[0], Y: c.Dims[1], Z: c.Dims[2]}
}

// InterpolationMode returns the parsed Mode. applyDefaults has validated it.
func (c *Config) InterpolationMode() gradient.Mode {
	m, _ := gradient.ParseMode(c.Mode)
	return m
}

// parseTriple parses "a,b,c" into three values using parse.
func parseTriple[T any](s string, parse func(string) (T, error)) ([3]T, error) {
	var out [3]T
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected 3 comma-separated values, got %q", s)
	}
	for i, p := range parts {
		v, err := parse(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("%q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// dimsFlag implements flag.Value for -dims X,Y,Z. A single value means a cube.
type dimsFlag struct{ dims *[3]int }

func (f dimsFlag) String() string {
	if f.dims == nil {
		return ""
	}
	return fmt.Sprintf("%d,%d,%d", f.dims[0], f.dims[1], f.dims[2])
}

func (f dimsFlag) Set(s string) error {
	if !strings.Contains(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		*f.dims = [3]int{n, n, n}
		return nil
	}
	d, err := parseTriple(s, strconv.Atoi)
	if err != nil {
		return err
	}
	*f.dims = d
	return nil
}

// samplesFlag implements flag.Value for repeated -sample x,y,z.
type samplesFlag struct{ samples *[][3]float64 }

func (f samplesFlag) String() string {
	if f.samples == nil {
		return ""
	}
	parts := make([]string, len(*f.samples))
	for i, s := range *f.samples {
		parts[i] = fmt.Sprintf("%g,%g,%g", s[0], s[1], s[2])
	}
	return strings.Join(parts, " ")
}

func (f samplesFlag) Set(s string) error {
	p, err := parseTriple(s, parseFloat)
	if err != nil {
		return err
	}
	*f.samples = append(*f.samples, p)
	return nil
}
