// Package gradient derives a gradient vector field from a scalar volume.
//
// A Field is built once from a volume.Volume using central differences on
// interior voxels; boundary voxels hold the zero Voxel. The field tracks the
// global magnitude range and answers queries at continuous coordinates under
// a selectable interpolation Mode. Voxel spacing is 1 along every axis.
//
// After construction every accessor is read-only and safe for concurrent
// use. Field.Mode is the only mutable state; callers that change it while
// other goroutines query the field must synchronize themselves.
package gradient
