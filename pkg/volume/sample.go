package volume

import (
	"github.com/chazu/volgrad/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// FromSolid samples the signed distance of s at every lattice point. Voxel
// (x, y, z) maps to origin + step*(x, y, z) in solid space. The sign is
// flipped so that the inside of the solid is positive, matching the usual
// "dense material is bright" convention of scanned volumes.
func FromSolid(s kernel.Solid, d Dims, origin v3.Vec, step float64) *Grid {
	g := NewGrid(d)
	g.Fill(func(x, y, z int) float64 {
		p := origin.Add(v3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}.MulScalar(step))
		return -s.Distance(p.X, p.Y, p.Z)
	})
	return g
}

// FitSolid returns the origin and step that map a lattice of extent d onto
// the bounding box of s, padded by pad cells on every side so the surface
// does not touch the boundary voxels.
func FitSolid(s kernel.Solid, d Dims, pad int) (origin v3.Vec, step float64) {
	lo, hi := s.BoundingBox()
	size := v3.Vec{X: hi[0] - lo[0], Y: hi[1] - lo[1], Z: hi[2] - lo[2]}
	cells := [3]int{d.X - 1 - 2*pad, d.Y - 1 - 2*pad, d.Z - 1 - 2*pad}
	step = 0
	for i, extent := range [3]float64{size.X, size.Y, size.Z} {
		if cells[i] <= 0 {
			continue
		}
		if st := extent / float64(cells[i]); st > step {
			step = st
		}
	}
	if step == 0 {
		step = 1
	}
	// Centre the solid in the lattice.
	centre := v3.Vec{X: (lo[0] + hi[0]) / 2, Y: (lo[1] + hi[1]) / 2, Z: (lo[2] + hi[2]) / 2}
	half := v3.Vec{X: float64(d.X-1) / 2, Y: float64(d.Y-1) / 2, Z: float64(d.Z-1) / 2}
	origin = centre.Sub(half.MulScalar(step))
	return origin, step
}
