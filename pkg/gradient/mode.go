package gradient

import (
	"fmt"
	"strings"
)

// Mode selects how Field.Interpolate reconstructs gradients between
// lattice points.
type Mode int

const (
	NearestNeighbour Mode = iota // round to the closest lattice point
	Linear                       // trilinear blend of the 8 surrounding points
	Cubic                        // alias of Linear; no cubic reconstruction is done
)

func (m Mode) String() string {
	switch m {
	case NearestNeighbour:
		return "nearest"
	case Linear:
		return "linear"
	case Cubic:
		return "cubic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names produced by String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "nearestneighbour", "nn":
		return NearestNeighbour, nil
	case "linear", "trilinear":
		return Linear, nil
	case "cubic":
		return Cubic, nil
	default:
		return 0, fmt.Errorf("gradient: unknown interpolation mode %q", s)
	}
}
