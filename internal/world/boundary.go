package world

import (
	"log"

	"voxelmesh/internal/voxel"
)

// boundaryProbe answers solidity for cells just outside a chunk that is being built. A Ready neighbor
// is asked first, then the neighbor's persisted snapshot, and finally the terrain oracle.
// A probe belongs to one generation job and is not safe for concurrent use.
type boundaryProbe struct {
	origin      voxel.Pos
	store       Directory
	oracle      TerrainOracle
	persist     Persister
	worldHeight int

	saved map[ChunkCoord]*voxel.Grid
}

func newBoundaryProbe(w *World, coord ChunkCoord) *boundaryProbe {
	return &boundaryProbe{
		origin:      w.store.Origin(coord),
		store:       w.store,
		oracle:      w.oracle,
		persist:     w.persist,
		worldHeight: w.cfg.WorldHeight,
		saved:       make(map[ChunkCoord]*voxel.Grid),
	}
}

// Local resolves a position given relative to the chunk being built. It satisfies meshing.Probe.
func (b *boundaryProbe) Local(p voxel.Pos) bool {
	return b.solidWorld(p.Add(b.origin))
}

func (b *boundaryProbe) solidWorld(p voxel.Pos) bool {
	if p.Y < 0 {
		return true
	}
	if p.Y >= b.worldHeight {
		return false
	}
	coord := b.store.ChunkContaining(p)
	local := b.store.LocalCoordinate(p, coord)
	if c := b.store.GetChunk(coord); c != nil && c.Ready() {
		return c.Solid(local)
	}
	if g := b.savedGrid(coord); g != nil {
		return g.Resolve(local)
	}
	return b.oracle.HasSolid(p)
}

func (b *boundaryProbe) savedGrid(coord ChunkCoord) *voxel.Grid {
	if b.persist == nil {
		return nil
	}
	if g, ok := b.saved[coord]; ok {
		return g
	}
	var grid *voxel.Grid
	snap, ok, err := b.persist.LoadChunk(coord)
	switch {
	case err != nil:
		log.Printf("[World] probe: loading neighbor %v: %v", coord, err)
	case ok:
		sx, sz := b.store.ChunkSize()
		grid, err = restoreGrid(snap, sx, sz)
		if err != nil {
			log.Printf("[World] probe: %v", err)
			grid = nil
		}
	}
	b.saved[coord] = grid
	return grid
}
