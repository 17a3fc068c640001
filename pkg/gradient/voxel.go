package gradient

import v3 "github.com/deadsy/sdfx/vec/v3"

// Voxel is the gradient at one lattice point. Magnitude is the Euclidean
// norm of Dir for built voxels; after interpolation the two are blended
// independently and need not agree.
type Voxel struct {
	Dir       v3.Vec
	Magnitude float64
}

// Zero is returned for queries outside the interpolation region.
var Zero = Voxel{}

// LinearInterpolate blends g0 towards g1. The factor is clamped to [0, 1];
// 0 yields g0 and 1 yields g1 exactly. Dir and Magnitude are interpolated
// separately.
func LinearInterpolate(g0, g1 Voxel, factor float64) Voxel {
	if factor <= 0 {
		return g0
	}
	if factor >= 1 {
		return g1
	}
	return Voxel{
		Dir:       g0.Dir.Add(g1.Dir.Sub(g0.Dir).MulScalar(factor)),
		Magnitude: g0.Magnitude + factor*(g1.Magnitude-g0.Magnitude),
	}
}
