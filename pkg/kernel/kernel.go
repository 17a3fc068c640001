// Package kernel defines the abstract solid-modelling interface used to
// synthesize phantom volumes. A solid is queried for its signed distance,
// which volume.FromSolid samples onto a lattice, and can be tessellated into
// a reference isosurface mesh. The abstraction keeps the rest of the system
// independent of the modelling backend.
package kernel

// Solid is an opaque handle to a kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Distance returns the signed distance from (x, y, z) to the surface,
	// negative inside the solid.
	Distance(x, y, z float64) float64
}

// Kernel is the abstract solid-modelling interface.
type Kernel interface {
	// Primitives, centred on the origin.
	Box(x, y, z float64) Solid
	Sphere(radius float64) Solid
	Cylinder(height, radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh tessellates the zero isosurface with the given number of
	// cells along the longest bounding box axis.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
