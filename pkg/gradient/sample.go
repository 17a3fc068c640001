package gradient

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Interpolate returns the gradient at a continuous coordinate using f.Mode.
// Coordinates outside the region the mode can reconstruct yield Zero.
func (f *Field) Interpolate(coord v3.Vec) Voxel {
	switch f.Mode {
	case NearestNeighbour:
		return f.nearest(coord)
	case Linear:
		return f.trilinear(coord)
	case Cubic:
		// Linear is good enough for gradients.
		return f.trilinear(coord)
	default:
		panic(fmt.Sprintf("gradient: unknown interpolation mode %d", int(f.Mode)))
	}
}

// inside reports whether coord lies in [0, dims) on every axis.
func (f *Field) inside(coord v3.Vec) bool {
	return coord.X >= 0 && coord.Y >= 0 && coord.Z >= 0 &&
		coord.X < float64(f.dims.X) && coord.Y < float64(f.dims.Y) && coord.Z < float64(f.dims.Z)
}

// nearest rounds half up on every axis. Coordinates in [dims-0.5, dims)
// round past the last lattice point and also yield Zero.
func (f *Field) nearest(coord v3.Vec) Voxel {
	if !f.inside(coord) {
		return Zero
	}
	x := int(math.Floor(coord.X + 0.5))
	y := int(math.Floor(coord.Y + 0.5))
	z := int(math.Floor(coord.Z + 0.5))
	v, _ := f.GradientChecked(x, y, z)
	return v
}

// trilinear blends the 8 lattice points around coord, first along x, then
// y, then z. The whole cell must lie inside the field.
func (f *Field) trilinear(coord v3.Vec) Voxel {
	if !f.inside(coord) ||
		coord.X+1 >= float64(f.dims.X) || coord.Y+1 >= float64(f.dims.Y) || coord.Z+1 >= float64(f.dims.Z) {
		return Zero
	}

	x0, x1 := int(math.Floor(coord.X)), int(math.Ceil(coord.X))
	y0, y1 := int(math.Floor(coord.Y)), int(math.Ceil(coord.Y))
	z0, z1 := int(math.Floor(coord.Z)), int(math.Ceil(coord.Z))

	fx := coord.X - float64(x0)
	fy := coord.Y - float64(y0)
	fz := coord.Z - float64(z0)

	c00 := LinearInterpolate(f.Gradient(x0, y0, z0), f.Gradient(x1, y0, z0), fx)
	c10 := LinearInterpolate(f.Gradient(x0, y1, z0), f.Gradient(x1, y1, z0), fx)
	c01 := LinearInterpolate(f.Gradient(x0, y0, z1), f.Gradient(x1, y0, z1), fx)
	c11 := LinearInterpolate(f.Gradient(x0, y1, z1), f.Gradient(x1, y1, z1), fx)

	c0 := LinearInterpolate(c00, c10, fy)
	c1 := LinearInterpolate(c01, c11, fy)

	return LinearInterpolate(c0, c1, fz)
}
