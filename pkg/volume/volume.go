package volume

import "fmt"

// Volume is a read-only scalar field sampled on an integer lattice.
// Voxel is only required to be valid for coordinates inside Dims.
type Volume interface {
	Dims() Dims
	Voxel(x, y, z int) float64
}

// Compile-time interface checks.
var (
	_ Volume = (*Grid)(nil)
	_ Volume = Func{}
)

// Grid is an in-memory Volume backed by a flat float32 slice.
type Grid struct {
	dims Dims
	data []float32
}

// NewGrid allocates a zero-filled grid. Negative extents are treated as 0.
func NewGrid(d Dims) *Grid {
	return &Grid{dims: d, data: make([]float32, d.Count())}
}

// GridFromData wraps an existing slice, which must hold exactly d.Count()
// samples in x-fastest order.
func GridFromData(d Dims, data []float32) (*Grid, error) {
	if len(data) != d.Count() {
		return nil, fmt.Errorf("volume: %d samples for dims %s, want %d", len(data), d, d.Count())
	}
	return &Grid{dims: d, data: data}, nil
}

// Dims returns the grid extent.
func (g *Grid) Dims() Dims { return g.dims }

// Voxel returns the sample at (x, y, z). Out-of-range coordinates panic.
func (g *Grid) Voxel(x, y, z int) float64 {
	return float64(g.data[g.dims.Index(x, y, z)])
}

// Set stores v at (x, y, z).
func (g *Grid) Set(x, y, z int, v float64) {
	g.data[g.dims.Index(x, y, z)] = float32(v)
}

// Fill evaluates fn at every lattice point.
func (g *Grid) Fill(fn func(x, y, z int) float64) {
	for z := 0; z < g.dims.Z; z++ {
		for y := 0; y < g.dims.Y; y++ {
			for x := 0; x < g.dims.X; x++ {
				g.data[g.dims.Index(x, y, z)] = float32(fn(x, y, z))
			}
		}
	}
}

// Func adapts a function to the Volume interface. Useful for analytic
// fields in tests, where no storage is needed.
type Func struct {
	Extent Dims
	Fn     func(x, y, z int) float64
}

func (f Func) Dims() Dims                { return f.Extent }
func (f Func) Voxel(x, y, z int) float64 { return f.Fn(x, y, z) }
