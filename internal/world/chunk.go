package world

import (
	"fmt"
	"sync"
	"sync/atomic"

	"voxelmesh/internal/meshing"
	"voxelmesh/internal/voxel"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkCoord addresses a column chunk on the XZ plane.
type ChunkCoord struct {
	X, Z int
}

// Less orders coordinates by X, then Z. The editor locks chunks in this order.
func (c ChunkCoord) Less(o ChunkCoord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Z < o.Z
}

func (c ChunkCoord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Z) }

// ChunkState is the lifecycle of a chunk.
type ChunkState int32

const (
	ChunkGenerating ChunkState = iota
	ChunkReady
	ChunkDiscarded
)

func (s ChunkState) String() string {
	switch s {
	case ChunkGenerating:
		return "generating"
	case ChunkReady:
		return "ready"
	case ChunkDiscarded:
		return "discarded"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// DirtyFlags tell downstream consumers what changed since they last looked.
type DirtyFlags uint32

const (
	DirtyRedraw DirtyFlags = 1 << iota
	DirtyCollision
	DirtyPersist

	DirtyAll = DirtyRedraw | DirtyCollision | DirtyPersist
)

// Chunk is a column of voxels with its own sparse grid and quad pool.
type Chunk struct {
	Coord ChunkCoord

	mu   sync.RWMutex
	grid *voxel.Grid
	pool *meshing.QuadPool

	state atomic.Int32
	dirty atomic.Uint32
}

// NewChunk creates an empty chunk in the Generating state.
func NewChunk(coord ChunkCoord, sizeX, sizeZ int) *Chunk {
	return &Chunk{
		Coord: coord,
		grid:  voxel.NewGrid(sizeX, sizeZ),
		pool:  meshing.NewQuadPool(),
	}
}

// State returns the lifecycle state.
func (c *Chunk) State() ChunkState { return ChunkState(c.state.Load()) }

func (c *Chunk) setState(s ChunkState) { c.state.Store(int32(s)) }

// Ready reports whether the chunk is published and editable.
func (c *Chunk) Ready() bool { return c.State() == ChunkReady }

func (c *Chunk) markDirty(f DirtyFlags) { c.dirty.Or(uint32(f)) }

// MarkDirty sets flags again, typically after a consumer failed to act on them.
func (c *Chunk) MarkDirty(f DirtyFlags) { c.markDirty(f) }

// TakeDirty clears the flags in mask and returns those of them that were set.
// Each consumer takes only its own flags.
func (c *Chunk) TakeDirty(mask DirtyFlags) DirtyFlags {
	return DirtyFlags(c.dirty.And(^uint32(mask))) & mask
}

// PeekDirty returns the pending dirty flags without clearing them.
func (c *Chunk) PeekDirty() DirtyFlags { return DirtyFlags(c.dirty.Load()) }

// Size returns the horizontal footprint.
func (c *Chunk) Size() (int, int) { return c.grid.Size() }

// Origin returns the world position of local (0, 0, 0).
func (c *Chunk) Origin() voxel.Pos {
	sx, sz := c.grid.Size()
	return voxel.Pos{X: c.Coord.X * sx, Z: c.Coord.Z * sz}
}

// HeightBounds returns the vertical span [min, max) of stored records.
func (c *Chunk) HeightBounds() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.grid.HeightBounds()
}

// Solid resolves a local position inside the footprint.
func (c *Chunk) Solid(local voxel.Pos) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.grid.Resolve(local)
}

// Voxel returns a copy of the record at a local position.
func (c *Chunk) Voxel(local voxel.Pos) (voxel.Voxel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.grid.Get(local)
	if !ok {
		return voxel.Voxel{}, false
	}
	return *v, true
}

// MeshData returns a copy of the render buffers.
func (c *Chunk) MeshData() meshing.MeshData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pool.Snapshot()
}

// CollisionMesh is a triangle soup in chunk-local coordinates.
type CollisionMesh struct {
	Vertices []mgl32.Vec3
	Indices  []uint32
}

// CollisionGeometry returns the triangles of every live quad.
func (c *Chunk) CollisionGeometry() CollisionMesh {
	c.mu.RLock()
	defer c.mu.RUnlock()
	verts, tris := c.pool.CollisionTriangles()
	return CollisionMesh{Vertices: verts, Indices: tris}
}

// Rects lists the live rectangles of the chunk.
func (c *Chunk) Rects() []meshing.PlacedRect {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pool.Rects()
}

// ChunkStats summarizes a chunk's memory footprint.
type ChunkStats struct {
	Records   int
	LiveQuads int
	FreeSlots int
	MinY      int
	MaxY      int
}

// Stats returns record and quad counts.
func (c *Chunk) Stats() ChunkStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	minY, maxY := c.grid.HeightBounds()
	return ChunkStats{
		Records:   c.grid.Len(),
		LiveQuads: c.pool.LiveCount(),
		FreeSlots: c.pool.FreeCount(),
		MinY:      minY,
		MaxY:      maxY,
	}
}

func (s ChunkStats) String() string {
	return fmt.Sprintf("records=%d quads=%d free=%d y=[%d,%d)", s.Records, s.LiveQuads, s.FreeSlots, s.MinY, s.MaxY)
}
