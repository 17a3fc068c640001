package gradient

import (
	"fmt"
	"sync"

	"github.com/chazu/volgrad/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Field is an immutable gradient field with the same extent as the volume
// it was built from.
type Field struct {
	// Mode selects the reconstruction used by Interpolate.
	Mode Mode

	dims         volume.Dims
	data         []Voxel
	minMagnitude float64
	maxMagnitude float64
}

type buildConfig struct {
	workers int
}

// Option configures New.
type Option func(*buildConfig)

// WithWorkers splits the interior slices across n goroutines. The volume
// must then tolerate concurrent Voxel calls. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(c *buildConfig) {
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}

// New computes the gradient field of vol and its magnitude range. The
// returned field uses Linear interpolation.
//
// New panics if vol has no voxels.
func New(vol volume.Volume, opts ...Option) *Field {
	cfg := buildConfig{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	d := vol.Dims()
	data := build(vol, d, cfg.workers)
	return &Field{
		Mode:         Linear,
		dims:         d,
		data:         data,
		minMagnitude: minMagnitude(data),
		maxMagnitude: maxMagnitude(data),
	}
}

// FromVoxels restores a field from a snapshot previously taken with Voxels.
// The magnitude range is recomputed.
func FromVoxels(d volume.Dims, voxels []Voxel) (*Field, error) {
	n := d.Count()
	if n == 0 {
		return nil, fmt.Errorf("gradient: empty dims %s", d)
	}
	if len(voxels) != n {
		return nil, fmt.Errorf("gradient: %d voxels for dims %s, want %d", len(voxels), d, n)
	}
	data := make([]Voxel, n)
	copy(data, voxels)
	return &Field{
		Mode:         Linear,
		dims:         d,
		data:         data,
		minMagnitude: minMagnitude(data),
		maxMagnitude: maxMagnitude(data),
	}, nil
}

// build allocates the whole field up front so boundary voxels stay zero,
// then fills the interior with central differences.
func build(vol volume.Volume, d volume.Dims, workers int) []Voxel {
	out := make([]Voxel, d.Count())

	// Interior z range is [1, d.Z-2]; empty when an axis has fewer than 3 samples.
	zLo, zHi := 1, d.Z-1
	if zHi <= zLo || d.X < 3 || d.Y < 3 {
		return out
	}

	if workers > zHi-zLo {
		workers = zHi - zLo
	}
	if workers <= 1 {
		buildSlab(vol, d, out, zLo, zHi)
		return out
	}

	var wg sync.WaitGroup
	chunk := (zHi - zLo + workers - 1) / workers
	for start := zLo; start < zHi; start += chunk {
		end := min(start+chunk, zHi)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			buildSlab(vol, d, out, start, end)
		}(start, end)
	}
	wg.Wait()
	return out
}

// buildSlab fills interior voxels with z in [zStart, zEnd).
func buildSlab(vol volume.Volume, d volume.Dims, out []Voxel, zStart, zEnd int) {
	for z := zStart; z < zEnd; z++ {
		for y := 1; y < d.Y-1; y++ {
			for x := 1; x < d.X-1; x++ {
				g := v3.Vec{
					X: (vol.Voxel(x+1, y, z) - vol.Voxel(x-1, y, z)) / 2,
					Y: (vol.Voxel(x, y+1, z) - vol.Voxel(x, y-1, z)) / 2,
					Z: (vol.Voxel(x, y, z+1) - vol.Voxel(x, y, z-1)) / 2,
				}
				out[d.Index(x, y, z)] = Voxel{Dir: g, Magnitude: g.Length()}
			}
		}
	}
}

// minMagnitude and maxMagnitude scan the whole field, boundary included.
// An empty field is a programming error.
func minMagnitude(data []Voxel) float64 {
	if len(data) == 0 {
		panic("gradient: magnitude range of empty field")
	}
	m := data[0].Magnitude
	for _, v := range data[1:] {
		if v.Magnitude < m {
			m = v.Magnitude
		}
	}
	return m
}

func maxMagnitude(data []Voxel) float64 {
	if len(data) == 0 {
		panic("gradient: magnitude range of empty field")
	}
	m := data[0].Magnitude
	for _, v := range data[1:] {
		if v.Magnitude > m {
			m = v.Magnitude
		}
	}
	return m
}

// Dims returns the field extent, equal to the source volume's.
func (f *Field) Dims() volume.Dims { return f.dims }

// MinMagnitude returns the smallest magnitude in the field.
func (f *Field) MinMagnitude() float64 { return f.minMagnitude }

// MaxMagnitude returns the largest magnitude in the field.
func (f *Field) MaxMagnitude() float64 { return f.maxMagnitude }

// Gradient returns the stored voxel at (x, y, z) without bounds checking.
// Out-of-range coordinates either panic or alias another voxel; callers
// must validate them first.
func (f *Field) Gradient(x, y, z int) Voxel {
	return f.data[f.dims.Index(x, y, z)]
}

// GradientChecked is Gradient with bounds validation.
func (f *Field) GradientChecked(x, y, z int) (Voxel, bool) {
	i, ok := f.dims.CheckedIndex(x, y, z)
	if !ok {
		return Zero, false
	}
	return f.data[i], true
}

// Voxels returns a copy of the field in x-fastest order.
func (f *Field) Voxels() []Voxel {
	out := make([]Voxel, len(f.data))
	copy(out, f.data)
	return out
}
