// Package shade turns sampled gradients into the quantities a volume
// renderer consumes: unit shading normals, magnitude-based surface
// classification, and gradient normals for isosurface meshes.
package shade

import (
	"github.com/chazu/volgrad/pkg/gradient"
	"github.com/chazu/volgrad/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Class labels a sample by how sharply the field changes there.
type Class int

const (
	Homogeneous Class = iota // magnitude below the surface threshold
	Surface                  // between the thresholds
	Edge                     // at or above the edge threshold
)

func (c Class) String() string {
	switch c {
	case Homogeneous:
		return "homogeneous"
	case Surface:
		return "surface"
	case Edge:
		return "edge"
	default:
		return "unknown"
	}
}

// Normal returns the unit vector along the interpolated gradient at coord.
// It reports false where the gradient direction is zero, which includes
// every coordinate the sampler cannot reconstruct.
func Normal(f *gradient.Field, coord v3.Vec) (v3.Vec, bool) {
	g := f.Interpolate(coord)
	l := g.Dir.Length()
	if l == 0 {
		return v3.Vec{}, false
	}
	return g.Dir.MulScalar(1 / l), true
}

// Normalized maps v's magnitude into [0, 1] using the field's range.
// A field with a flat range maps everything to 0.
func Normalized(f *gradient.Field, v gradient.Voxel) float64 {
	lo, hi := f.MinMagnitude(), f.MaxMagnitude()
	if hi <= lo {
		return 0
	}
	t := (v.Magnitude - lo) / (hi - lo)
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

// Classify compares the magnitude of v against the surface threshold lo and
// the edge threshold hi.
func Classify(v gradient.Voxel, lo, hi float64) Class {
	switch {
	case v.Magnitude >= hi:
		return Edge
	case v.Magnitude >= lo:
		return Surface
	default:
		return Homogeneous
	}
}

// ShadeMesh replaces the normals of m with gradient normals sampled from f.
// toVoxel maps a mesh vertex into field coordinates. Normals point along
// -gradient, out of dense material. Vertices where no gradient is
// available keep their existing normal. It returns the number of vertices
// shaded from the field.
func ShadeMesh(m *kernel.Mesh, f *gradient.Field, toVoxel func(p v3.Vec) v3.Vec) int {
	if len(m.Normals) != len(m.Vertices) {
		m.Normals = make([]float32, len(m.Vertices))
	}
	shaded := 0
	for i := 0; i < m.VertexCount(); i++ {
		x, y, z := m.Vertex(i)
		n, ok := Normal(f, toVoxel(v3.Vec{X: x, Y: y, Z: z}))
		if !ok {
			continue
		}
		m.SetNormal(i, -n.X, -n.Y, -n.Z)
		shaded++
	}
	return shaded
}

// LatticeMapping returns the inverse of the mapping used by
// volume.FromSolid, taking solid space into field coordinates.
func LatticeMapping(origin v3.Vec, step float64) func(p v3.Vec) v3.Vec {
	return func(p v3.Vec) v3.Vec {
		return p.Sub(origin).MulScalar(1 / step)
	}
}
