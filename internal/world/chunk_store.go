package world

import (
	"fmt"
	"sort"
	"sync"

	"voxelmesh/internal/voxel"
)

// Directory maps world positions to chunks. The editor and the boundary probe reach neighboring
// chunks through it.
type Directory interface {
	ChunkSize() (int, int)
	ChunkContaining(p voxel.Pos) ChunkCoord
	LocalCoordinate(p voxel.Pos, coord ChunkCoord) voxel.Pos
	GetChunk(coord ChunkCoord) *Chunk
}

var _ Directory = (*ChunkStore)(nil)

// ChunkStore holds the Ready chunks of a world, indexed by coordinate.
type ChunkStore struct {
	sizeX, sizeZ int

	chunks   map[ChunkCoord]*Chunk
	mu       sync.RWMutex
	modCount uint64 // Increases on any chunk add/remove
}

// NewChunkStore creates a store for chunks with the given footprint.
func NewChunkStore(sizeX, sizeZ int) *ChunkStore {
	return &ChunkStore{
		sizeX:  sizeX,
		sizeZ:  sizeZ,
		chunks: make(map[ChunkCoord]*Chunk),
	}
}

// ChunkSize returns the footprint shared by every chunk of the store.
func (cs *ChunkStore) ChunkSize() (int, int) { return cs.sizeX, cs.sizeZ }

// ChunkContaining returns the coordinate of the chunk holding world position p.
func (cs *ChunkStore) ChunkContaining(p voxel.Pos) ChunkCoord {
	return ChunkCoord{X: floorDiv(p.X, cs.sizeX), Z: floorDiv(p.Z, cs.sizeZ)}
}

// LocalCoordinate converts world position p into coordinates local to chunk coord.
// The result lies outside the footprint when p is not in that chunk.
func (cs *ChunkStore) LocalCoordinate(p voxel.Pos, coord ChunkCoord) voxel.Pos {
	return voxel.Pos{X: p.X - coord.X*cs.sizeX, Y: p.Y, Z: p.Z - coord.Z*cs.sizeZ}
}

// Locate returns the chunk holding p and p's position inside it.
func (cs *ChunkStore) Locate(p voxel.Pos) (ChunkCoord, voxel.Pos) {
	coord := ChunkCoord{X: floorDiv(p.X, cs.sizeX), Z: floorDiv(p.Z, cs.sizeZ)}
	return coord, voxel.Pos{X: mod(p.X, cs.sizeX), Y: p.Y, Z: mod(p.Z, cs.sizeZ)}
}

// Origin returns the world position of local (0, 0, 0) in chunk coord.
func (cs *ChunkStore) Origin(coord ChunkCoord) voxel.Pos {
	return voxel.Pos{X: coord.X * cs.sizeX, Z: coord.Z * cs.sizeZ}
}

// GetChunk returns the chunk at coord, or nil.
func (cs *ChunkStore) GetChunk(coord ChunkCoord) *Chunk {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.chunks[coord]
}

// HasChunk checks if a chunk exists.
func (cs *ChunkStore) HasChunk(coord ChunkCoord) bool {
	cs.mu.RLock()
	_, exists := cs.chunks[coord]
	cs.mu.RUnlock()
	return exists
}

// AddChunk publishes a chunk. It fails with ErrChunkExists when the coordinate is taken.
func (cs *ChunkStore) AddChunk(chunk *Chunk) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, ok := cs.chunks[chunk.Coord]; ok {
		return fmt.Errorf("add chunk %v: %w", chunk.Coord, ErrChunkExists)
	}
	cs.chunks[chunk.Coord] = chunk
	cs.modCount++
	return nil
}

// RemoveChunk unpublishes the chunk at coord and returns it, or nil if there was none.
func (cs *ChunkStore) RemoveChunk(coord ChunkCoord) *Chunk {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.chunks[coord]
	if !ok {
		return nil
	}
	delete(cs.chunks, coord)
	cs.modCount++
	return c
}

// AllChunks returns every chunk, ordered by coordinate.
func (cs *ChunkStore) AllChunks() []*Chunk {
	cs.mu.RLock()
	out := make([]*Chunk, 0, len(cs.chunks))
	for _, c := range cs.chunks {
		out = append(out, c)
	}
	cs.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Coord.Less(out[j].Coord) })
	return out
}

// Len returns the number of loaded chunks.
func (cs *ChunkStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.chunks)
}

// GetModCount returns the current modification count of the chunk map.
func (cs *ChunkStore) GetModCount() uint64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.modCount
}

// CoordsOutside lists loaded coordinates farther than radius (in chunks) from center.
func (cs *ChunkStore) CoordsOutside(center ChunkCoord, radius int) []ChunkCoord {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	var out []ChunkCoord
	for coord := range cs.chunks {
		dx := coord.X - center.X
		dz := coord.Z - center.Z
		if dx*dx+dz*dz > radius*radius {
			out = append(out, coord)
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
