package world

import (
	"fmt"
	"sort"

	"voxelmesh/internal/meshing"
	"voxelmesh/internal/voxel"
)

// CellRecord is the persisted part of a voxel record. Face references and counts are rebuilt on load.
type CellRecord struct {
	Pos   voxel.Pos
	Data  voxel.DataID
	Biome voxel.BiomeID
}

// ChunkSnapshot is everything needed to rebuild a chunk without the terrain oracle.
type ChunkSnapshot struct {
	Coord        ChunkCoord
	SizeX, SizeZ int
	Tops         []int
	Cells        []CellRecord
}

// Persister loads and saves chunk snapshots. LoadChunk reports false when nothing is stored.
type Persister interface {
	LoadChunk(coord ChunkCoord) (*ChunkSnapshot, bool, error)
	SaveChunk(snap *ChunkSnapshot) error
}

// Snapshot captures the chunk's records and column tops, sorted by position.
func (c *Chunk) Snapshot() *ChunkSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sx, sz := c.grid.Size()
	snap := &ChunkSnapshot{
		Coord: c.Coord,
		SizeX: sx,
		SizeZ: sz,
		Tops:  c.grid.ColumnTops(),
		Cells: make([]CellRecord, 0, c.grid.Len()),
	}
	c.grid.Range(func(p voxel.Pos, v *voxel.Voxel) bool {
		snap.Cells = append(snap.Cells, CellRecord{Pos: p, Data: v.Data, Biome: v.Biome})
		return true
	})
	sort.Slice(snap.Cells, func(i, j int) bool {
		a, b := snap.Cells[i].Pos, snap.Cells[j].Pos
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
	return snap
}

// restoreGrid rebuilds the records and column policy of a snapshot. Exposed counts are left at zero.
func restoreGrid(snap *ChunkSnapshot, sizeX, sizeZ int) (*voxel.Grid, error) {
	if snap.SizeX != sizeX || snap.SizeZ != sizeZ {
		return nil, fmt.Errorf("snapshot %v is %dx%d, world chunks are %dx%d", snap.Coord, snap.SizeX, snap.SizeZ, sizeX, sizeZ)
	}
	if len(snap.Tops) != sizeX*sizeZ {
		return nil, fmt.Errorf("snapshot %v has %d column tops, want %d", snap.Coord, len(snap.Tops), sizeX*sizeZ)
	}
	grid := voxel.NewGrid(sizeX, sizeZ)
	for x := 0; x < sizeX; x++ {
		for z := 0; z < sizeZ; z++ {
			grid.SetColumnTop(x, z, snap.Tops[x*sizeZ+z])
		}
	}
	for _, cell := range snap.Cells {
		if err := grid.Put(cell.Pos, voxel.New(cell.Data, cell.Biome)); err != nil {
			return nil, fmt.Errorf("snapshot %v: %w", snap.Coord, err)
		}
	}
	return grid, nil
}

// recountAir sets every air record's count to its number of solid neighbors.
func recountAir(grid *voxel.Grid, outside meshing.Probe, worldHeight int) {
	solidAt := func(p voxel.Pos) bool {
		switch {
		case p.Y < 0:
			return true
		case p.Y >= worldHeight:
			return false
		case grid.InFootprint(p):
			return grid.Resolve(p)
		}
		return outside(p)
	}
	grid.Range(func(p voxel.Pos, v *voxel.Voxel) bool {
		if v.Solid() {
			return true
		}
		v.Exposed = 0
		for _, f := range voxel.Faces {
			if solidAt(p.Neighbor(f)) {
				v.Exposed++
			}
		}
		return true
	})
}
