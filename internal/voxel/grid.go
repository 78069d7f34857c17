package voxel

import (
	"errors"
	"fmt"
)

// ErrOccupied is returned by Put when a record already exists at the position.
var ErrOccupied = errors.New("voxel: position already occupied")

// Grid is the sparse per-chunk map from local position to voxel record.
//
// Only cells within one step of the exposed surface are stored. Everything else is inferred from the
// per-column policy: cells below the column top (or below the world floor) are solid, the rest is air.
type Grid struct {
	sizeX, sizeZ int
	voxels       map[Pos]*Voxel
	tops         []int

	minY, maxY int
	hasBounds  bool
}

// NewGrid creates an empty grid with the given horizontal footprint.
// All column tops start at zero, i.e. everything above the floor is air.
func NewGrid(sizeX, sizeZ int) *Grid {
	return &Grid{
		sizeX:  sizeX,
		sizeZ:  sizeZ,
		voxels: make(map[Pos]*Voxel),
		tops:   make([]int, sizeX*sizeZ),
	}
}

// Size returns the horizontal footprint.
func (g *Grid) Size() (int, int) { return g.sizeX, g.sizeZ }

// InFootprint reports whether p lies inside the grid's horizontal footprint.
func (g *Grid) InFootprint(p Pos) bool {
	return p.X >= 0 && p.X < g.sizeX && p.Z >= 0 && p.Z < g.sizeZ
}

// Get returns the record at p.
func (g *Grid) Get(p Pos) (*Voxel, bool) {
	v, ok := g.voxels[p]
	return v, ok
}

// Put stores v at p. It fails if p is occupied or outside the footprint.
func (g *Grid) Put(p Pos, v *Voxel) error {
	if !g.InFootprint(p) {
		return fmt.Errorf("voxel: put %v outside %dx%d footprint", p, g.sizeX, g.sizeZ)
	}
	if _, ok := g.voxels[p]; ok {
		return fmt.Errorf("put %v: %w", p, ErrOccupied)
	}
	g.voxels[p] = v
	g.extendBounds(p.Y)
	return nil
}

// Remove deletes the record at p, if any. Height bounds are not shrunk.
func (g *Grid) Remove(p Pos) {
	delete(g.voxels, p)
}

// Len returns the number of stored records.
func (g *Grid) Len() int { return len(g.voxels) }

// Range calls fn for every record until fn returns false. Order is unspecified.
func (g *Grid) Range(fn func(Pos, *Voxel) bool) {
	for p, v := range g.voxels {
		if !fn(p, v) {
			return
		}
	}
}

func (g *Grid) extendBounds(y int) {
	if !g.hasBounds {
		g.minY, g.maxY = y, y+1
		g.hasBounds = true
		return
	}
	if y < g.minY {
		g.minY = y
	}
	if y+1 > g.maxY {
		g.maxY = y + 1
	}
}

// HeightBounds returns the vertical span [min, max) covering every record ever stored.
// An empty grid reports (0, 0).
func (g *Grid) HeightBounds() (int, int) {
	return g.minY, g.maxY
}

// SetColumnTop sets the policy height of column (x, z): absent cells below top are solid.
func (g *Grid) SetColumnTop(x, z, top int) {
	g.tops[x*g.sizeZ+z] = top
}

// ColumnTop returns the policy height of column (x, z).
func (g *Grid) ColumnTop(x, z int) int {
	return g.tops[x*g.sizeZ+z]
}

// ColumnTops returns a copy of all column tops, indexed x*sizeZ+z.
func (g *Grid) ColumnTops() []int {
	out := make([]int, len(g.tops))
	copy(out, g.tops)
	return out
}

// DefaultSolid is the state assumed for an absent cell inside the footprint.
func (g *Grid) DefaultSolid(p Pos) bool {
	if p.Y < 0 {
		return true
	}
	return p.Y < g.ColumnTop(p.X, p.Z)
}

// Resolve reports whether the cell at p is solid, using the record if present and the policy otherwise.
func (g *Grid) Resolve(p Pos) bool {
	if v, ok := g.voxels[p]; ok {
		return v.Solid()
	}
	return g.DefaultSolid(p)
}

// Stub returns the record at p, materializing one from the policy default when absent.
// The second result is true when a new stub was stored.
func (g *Grid) Stub(p Pos, solidData DataID) (*Voxel, bool) {
	if v, ok := g.voxels[p]; ok {
		return v, false
	}
	data := Air
	if g.DefaultSolid(p) {
		data = solidData
	}
	v := New(data, NoBiome)
	g.voxels[p] = v
	g.extendBounds(p.Y)
	return v, true
}

// Evictable reports whether the record at p carries no information: nothing is exposed and the
// policy would infer the same state once the record is gone.
func (g *Grid) Evictable(p Pos, v *Voxel) bool {
	return v.Exposed == 0 && v.Solid() == g.DefaultSolid(p)
}

// EvictIfRedundant removes the record at p when Evictable and reports whether it did.
func (g *Grid) EvictIfRedundant(p Pos, v *Voxel) bool {
	if !g.Evictable(p, v) {
		return false
	}
	delete(g.voxels, p)
	return true
}
