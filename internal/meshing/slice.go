package meshing

import "voxelmesh/internal/voxel"

// SlicePos is a position in slice space: X and Y run inside the plane perpendicular to a face axis,
// Offset runs along the axis.
//
//	axis | slice X | slice Y
//	-----+---------+--------
//	  X  |    Z    |    Y
//	  Y  |    X    |    Z
//	  Z  |    X    |    Y
type SlicePos struct {
	X, Y, Offset int
}

// ToSlice maps a chunk-local position into the slice space of axis.
func ToSlice(axis int, p voxel.Pos) SlicePos {
	switch axis {
	case 0:
		return SlicePos{X: p.Z, Y: p.Y, Offset: p.X}
	case 1:
		return SlicePos{X: p.X, Y: p.Z, Offset: p.Y}
	default:
		return SlicePos{X: p.X, Y: p.Y, Offset: p.Z}
	}
}

// Local maps s back into chunk-local space. The transform is its own inverse.
func (s SlicePos) Local(axis int) voxel.Pos {
	switch axis {
	case 0:
		return voxel.Pos{X: s.Offset, Y: s.Y, Z: s.X}
	case 1:
		return voxel.Pos{X: s.X, Y: s.Offset, Z: s.Y}
	default:
		return voxel.Pos{X: s.X, Y: s.Y, Z: s.Offset}
	}
}

// sliceAxes returns the local axes that slice X and slice Y run along.
func sliceAxes(axis int) (int, int) {
	switch axis {
	case 0:
		return 2, 1
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}
