package world

import (
	"fmt"
	"sort"

	"voxelmesh/internal/meshing"
	"voxelmesh/internal/profiling"
	"voxelmesh/internal/voxel"
)

// Editor applies single-voxel edits to loaded chunks, repairing the merged quads of the edited cell and
// of its six neighbors in place.
type Editor struct {
	store       Directory
	worldHeight int
	// material names the solid cells that only the column policy knew about until an edit exposed them.
	material func(p voxel.Pos) (voxel.DataID, voxel.BiomeID)
}

// NewEditor creates an editor over store. material may be nil, in which case exposed cells are stone.
func NewEditor(store Directory, worldHeight int, material func(voxel.Pos) (voxel.DataID, voxel.BiomeID)) *Editor {
	if material == nil {
		material = func(voxel.Pos) (voxel.DataID, voxel.BiomeID) { return voxel.Stone, voxel.NoBiome }
	}
	return &Editor{store: store, worldHeight: worldHeight, material: material}
}

// EditResult describes what an edit changed.
type EditResult struct {
	// Changed is false when the cell already had the requested state.
	Changed bool
	// Touched lists every chunk whose records or quads were modified, in lock order.
	Touched []ChunkCoord
}

// cell is one resolved position of an edit: the chunk it lives in and its local coordinates.
// virtual cells lie above or below the world and have no chunk.
type cell struct {
	chunk   *Chunk
	local   voxel.Pos
	virtual bool
	solid   bool
}

// ApplyEdit sets the voxel at world position pos to data; voxel.Air removes it.
//
// Every chunk the edit can touch must be loaded and Ready, otherwise nothing is changed and
// ErrChunkNotLoaded is returned. Chunks are locked in coordinate order for the whole edit.
func (e *Editor) ApplyEdit(pos voxel.Pos, data voxel.DataID) (EditResult, error) {
	defer profiling.Track("world.ApplyEdit")()

	if pos.Y < 0 || pos.Y >= e.worldHeight {
		return EditResult{}, fmt.Errorf("edit %v: %w", pos, ErrOutOfBounds)
	}

	chunks, err := e.collect(pos)
	if err != nil {
		return EditResult{}, err
	}
	for _, c := range chunks {
		c.mu.Lock()
	}
	defer func() {
		for i := len(chunks) - 1; i >= 0; i-- {
			chunks[i].mu.Unlock()
		}
	}()
	// A chunk may have been unloaded between lookup and locking.
	for _, c := range chunks {
		if !c.Ready() {
			return EditResult{}, fmt.Errorf("edit %v: chunk %v is %v: %w", pos, c.Coord, c.State(), ErrChunkNotLoaded)
		}
	}

	byCoord := make(map[ChunkCoord]*Chunk, len(chunks))
	for _, c := range chunks {
		byCoord[c.Coord] = c
	}
	resolve := func(p voxel.Pos) cell {
		if p.Y < 0 {
			return cell{virtual: true, solid: true}
		}
		if p.Y >= e.worldHeight {
			return cell{virtual: true}
		}
		coord := e.store.ChunkContaining(p)
		local := e.store.LocalCoordinate(p, coord)
		c := byCoord[coord]
		return cell{chunk: c, local: local, solid: c.grid.Resolve(local)}
	}

	target := resolve(pos)
	place := data != voxel.Air
	touched := make(map[ChunkCoord]bool, len(chunks))

	if place == target.solid {
		// Same solidity: only a recorded solid can change material.
		v, ok := target.chunk.grid.Get(target.local)
		if !place || !ok || v.Data == data {
			return EditResult{}, nil
		}
		v.Data = data
		target.chunk.markDirty(DirtyPersist)
		return EditResult{Changed: true, Touched: []ChunkCoord{target.chunk.Coord}}, nil
	}

	grid, pool := target.chunk.grid, target.chunk.pool
	v, _ := e.stub(target, pos)
	touched[target.chunk.Coord] = true

	if place {
		v.Data = data
		v.Biome = voxel.NoBiome
		v.Exposed = 0
	} else {
		// Drop the faces while the record is still solid, then count it as tracked air.
		for _, f := range voxel.Faces {
			meshing.RemoveFace(grid, pool, target.local, f)
		}
		v.Data = voxel.Air
		v.Biome = voxel.NoBiome
		v.Exposed = 0
	}

	for _, f := range voxel.Faces {
		np := pos.Neighbor(f)
		n := resolve(np)

		switch {
		case place && !n.solid:
			meshing.AddFace(grid, pool, target.local, f)
			if !n.virtual {
				nv, _ := e.stub(n, np)
				nv.Exposed++
				touched[n.chunk.Coord] = true
			}

		case place && n.solid:
			if n.virtual {
				continue
			}
			nv, _ := e.stub(n, np)
			meshing.RemoveFace(n.chunk.grid, n.chunk.pool, n.local, f.Opposite())
			n.chunk.grid.EvictIfRedundant(n.local, nv)
			touched[n.chunk.Coord] = true

		case !place && n.solid:
			v.Exposed++
			if n.virtual {
				continue
			}
			e.stub(n, np)
			meshing.AddFace(n.chunk.grid, n.chunk.pool, n.local, f.Opposite())
			touched[n.chunk.Coord] = true

		case !place && !n.solid:
			if n.virtual {
				continue
			}
			nv, ok := n.chunk.grid.Get(n.local)
			if !ok {
				continue
			}
			nv.Unexpose()
			n.chunk.grid.EvictIfRedundant(n.local, nv)
			touched[n.chunk.Coord] = true
		}
	}
	grid.EvictIfRedundant(target.local, v)

	res := EditResult{Changed: true}
	for _, c := range chunks {
		if touched[c.Coord] {
			c.markDirty(DirtyAll)
			res.Touched = append(res.Touched, c.Coord)
		}
	}
	return res, nil
}

// collect looks up the target chunk and every distinct neighbor chunk, sorted by coordinate.
func (e *Editor) collect(pos voxel.Pos) ([]*Chunk, error) {
	coords := []ChunkCoord{e.store.ChunkContaining(pos)}
	for _, f := range voxel.Faces {
		if f.Axis() == 1 {
			continue
		}
		coord := e.store.ChunkContaining(pos.Neighbor(f))
		dup := false
		for _, c := range coords {
			if c == coord {
				dup = true
				break
			}
		}
		if !dup {
			coords = append(coords, coord)
		}
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })

	chunks := make([]*Chunk, 0, len(coords))
	for _, coord := range coords {
		c := e.store.GetChunk(coord)
		if c == nil || !c.Ready() {
			return nil, fmt.Errorf("edit %v: chunk %v: %w", pos, coord, ErrChunkNotLoaded)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// stub returns the record of a non-virtual cell, materializing it from the column policy if needed.
// Policy-solid stubs take their material from the editor's material source.
func (e *Editor) stub(c cell, world voxel.Pos) (*voxel.Voxel, bool) {
	v, created := c.chunk.grid.Stub(c.local, voxel.Stone)
	if created && v.Solid() {
		v.Data, v.Biome = e.material(world)
		if v.Data == voxel.Air {
			v.Data = voxel.Stone
		}
	}
	return v, created
}
