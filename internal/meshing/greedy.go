package meshing

import (
	"context"

	"voxelmesh/internal/profiling"
	"voxelmesh/internal/voxel"
)

// Probe reports whether a chunk-local position outside the grid's footprint is solid.
// It is how the mesher sees across chunk borders.
type Probe func(p voxel.Pos) bool

// Mesher builds the merged quads of one chunk from its sparse grid.
type Mesher struct {
	grid    *voxel.Grid
	pool    *QuadPool
	outside Probe
}

// NewMesher creates a mesher over grid. outside may be nil, in which case everything beyond the
// footprint is treated as air.
func NewMesher(grid *voxel.Grid, outside Probe) *Mesher {
	if outside == nil {
		outside = func(voxel.Pos) bool { return false }
	}
	return &Mesher{grid: grid, outside: outside}
}

// BuildGreedy is shorthand for NewMesher(grid, outside).Build(ctx).
func BuildGreedy(ctx context.Context, grid *voxel.Grid, outside Probe) (*QuadPool, error) {
	return NewMesher(grid, outside).Build(ctx)
}

// Build scans every slice of the chunk and merges visible faces into rectangles.
//
// Planes are visited per axis, offset and sign. Inside a plane rows run bottom to top and cells left
// to right, so the quads below and to the left of a cell are always final when the cell is reached.
// Face references on solid records are rebuilt from scratch; air records keep their counts.
// The returned pool is only valid when err is nil.
func (m *Mesher) Build(ctx context.Context) (*QuadPool, error) {
	defer profiling.Track("meshing.Build")()

	m.pool = NewQuadPool()
	m.grid.Range(func(_ voxel.Pos, v *voxel.Voxel) bool {
		if v.Solid() {
			for i := range v.FaceQuad {
				v.FaceQuad[i] = voxel.NoQuad
			}
			v.Exposed = 0
		}
		return true
	})

	sizeX, sizeZ := m.grid.Size()
	minY, maxY := m.grid.HeightBounds()
	lo := [3]int{0, minY, 0}
	hi := [3]int{sizeX, maxY, sizeZ}

	for axis := 0; axis < 3; axis++ {
		ax, ay := sliceAxes(axis)
		for off := lo[axis]; off < hi[axis]; off++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for _, positive := range [2]bool{true, false} {
				face := voxel.FaceFor(axis, positive)
				for sy := lo[ay]; sy < hi[ay]; sy++ {
					for sx := lo[ax]; sx < hi[ax]; sx++ {
						m.visit(face, SlicePos{X: sx, Y: sy, Offset: off})
					}
				}
			}
		}
	}

	m.pool.PositionAll()
	return m.pool, nil
}

func (m *Mesher) visit(face voxel.Face, s SlicePos) {
	axis := face.Axis()
	p := s.Local(axis)
	v, ok := m.grid.Get(p)
	if !ok || !v.Solid() {
		return
	}
	if m.solidAt(p.Neighbor(face)) {
		return
	}
	v.SetFace(face, m.mergeOrAllocate(face, s))
}

func (m *Mesher) solidAt(p voxel.Pos) bool {
	if m.grid.InFootprint(p) {
		return m.grid.Resolve(p)
	}
	return m.outside(p)
}

// quadAt returns the quad covering face of the cell at s, if that cell has one.
func (m *Mesher) quadAt(face voxel.Face, s SlicePos) (voxel.QuadRef, *Quad) {
	v, ok := m.grid.Get(s.Local(face.Axis()))
	if !ok || !v.HasFace(face) {
		return voxel.NoQuad, nil
	}
	ref := v.FaceQuad[face]
	return ref, m.pool.MustGet(ref)
}

// mergeOrAllocate picks the quad for a newly visible cell. The priority is fixed:
//  1. grow the quad below upward, but only while it is one cell wide;
//  2. otherwise grow the quad to the left rightward while it is one cell tall, folding it into the
//     quad below when both now span exactly the same columns;
//  3. otherwise start a new 1x1 quad.
func (m *Mesher) mergeOrAllocate(face voxel.Face, s SlicePos) voxel.QuadRef {
	belowRef, below := m.quadAt(face, SlicePos{X: s.X, Y: s.Y - 1, Offset: s.Offset})
	leftRef, left := m.quadAt(face, SlicePos{X: s.X - 1, Y: s.Y, Offset: s.Offset})

	if below != nil && below.W == 1 {
		below.H++
		return belowRef
	}

	if left != nil && left.H == 1 {
		left.W++
		if below == nil || left.Origin.X != below.Origin.X || left.W != below.W {
			return leftRef
		}

		// The row to the left now matches the rectangle below column for column.
		below.H++
		width := left.W
		m.pool.Recycle(leftRef)
		for i := 1; i < width; i++ {
			p := SlicePos{X: s.X - i, Y: s.Y, Offset: s.Offset}.Local(face.Axis())
			v, ok := m.grid.Get(p)
			if !ok {
				panic("meshing: merged row references a missing voxel")
			}
			v.ReplaceFace(face, belowRef)
		}
		return belowRef
	}

	return m.pool.Allocate(face, s, 1, 1)
}
