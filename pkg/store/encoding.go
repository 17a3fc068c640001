package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chazu/volgrad/pkg/gradient"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// voxelSize is the encoded size of one voxel: dir x, y, z and magnitude as
// little-endian IEEE 754 float64 values.
const voxelSize = 4 * 8

// EncodeVoxels encodes voxels into a BLOB without a length prefix; the count
// is derived from the BLOB size on decode.
func EncodeVoxels(voxels []gradient.Voxel) []byte {
	b := make([]byte, len(voxels)*voxelSize)
	for i, v := range voxels {
		off := i * voxelSize
		binary.LittleEndian.PutUint64(b[off:], math.Float64bits(v.Dir.X))
		binary.LittleEndian.PutUint64(b[off+8:], math.Float64bits(v.Dir.Y))
		binary.LittleEndian.PutUint64(b[off+16:], math.Float64bits(v.Dir.Z))
		binary.LittleEndian.PutUint64(b[off+24:], math.Float64bits(v.Magnitude))
	}
	return b
}

// DecodeVoxels decodes a BLOB produced by EncodeVoxels.
func DecodeVoxels(b []byte) ([]gradient.Voxel, error) {
	if len(b)%voxelSize != 0 {
		return nil, fmt.Errorf("store: invalid voxel blob length %d (not multiple of %d)", len(b), voxelSize)
	}
	n := len(b) / voxelSize
	out := make([]gradient.Voxel, n)
	f := func(off int) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b[off:])) }
	for i := range out {
		off := i * voxelSize
		out[i] = gradient.Voxel{
			Dir:       v3.Vec{X: f(off), Y: f(off + 8), Z: f(off + 16)},
			Magnitude: f(off + 24),
		}
	}
	return out, nil
}
