package volume

import "fmt"

// Dims holds the extent of a volume along each axis.
type Dims struct {
	X, Y, Z int
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%dx%d", d.X, d.Y, d.Z)
}

// Count returns the number of voxels, or 0 if any axis is non-positive.
func (d Dims) Count() int {
	if d.X <= 0 || d.Y <= 0 || d.Z <= 0 {
		return 0
	}
	return d.X * d.Y * d.Z
}

// Contains reports whether (x, y, z) is a valid lattice coordinate.
func (d Dims) Contains(x, y, z int) bool {
	return x >= 0 && x < d.X && y >= 0 && y < d.Y && z >= 0 && z < d.Z
}

// Index returns the flat index of (x, y, z). The coordinate is not checked;
// callers on the hot path validate bounds themselves.
func (d Dims) Index(x, y, z int) int {
	return x + d.X*(y+d.Y*z)
}

// CheckedIndex is Index with bounds validation.
func (d Dims) CheckedIndex(x, y, z int) (int, bool) {
	if !d.Contains(x, y, z) {
		return 0, false
	}
	return d.Index(x, y, z), true
}

// OnBoundary reports whether (x, y, z) lies on any face of the lattice.
func (d Dims) OnBoundary(x, y, z int) bool {
	return x == 0 || y == 0 || z == 0 || x == d.X-1 || y == d.Y-1 || z == d.Z-1
}
