package world

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"

	"voxelmesh/internal/config"
	"voxelmesh/internal/meshing"
	"voxelmesh/internal/profiling"
	"voxelmesh/internal/voxel"

	"golang.org/x/sync/errgroup"
)

// World ties the chunk directory, the generation pool, the editor and optional persistence together.
type World struct {
	cfg     config.Config
	store   *ChunkStore
	oracle  TerrainOracle
	persist Persister
	editor  *Editor
	gen     *GenerationPool
}

// Option configures a World.
type Option func(*World)

// WithPersister makes generation prefer stored chunks and enables Unload/SaveDirty writes.
func WithPersister(p Persister) Option {
	return func(w *World) { w.persist = p }
}

// New creates a world. cfg must be valid.
func New(cfg config.Config, oracle TerrainOracle, opts ...Option) *World {
	w := &World{
		cfg:    cfg,
		store:  NewChunkStore(cfg.ChunkSizeX, cfg.ChunkSizeZ),
		oracle: oracle,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.editor = NewEditor(w.store, cfg.WorldHeight, func(p voxel.Pos) (voxel.DataID, voxel.BiomeID) {
		return materialAt(oracle, p)
	})
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	w.gen = NewGenerationPool(workers, cfg.QueueSize, w.build)
	return w
}

// Close cancels pending generation and stops the workers. It does not save.
func (w *World) Close() { w.gen.Close() }

// Store returns the chunk directory.
func (w *World) Store() *ChunkStore { return w.store }

// Chunk returns the Ready chunk at coord, or nil.
func (w *World) Chunk(coord ChunkCoord) *Chunk { return w.store.GetChunk(coord) }

// BeginGenerate starts generating coord and returns a handle to poll or await.
// A chunk that is already loaded yields a handle that has finished with it.
func (w *World) BeginGenerate(coord ChunkCoord) *GenerateHandle {
	if c := w.store.GetChunk(coord); c != nil {
		h := newGenerateHandle(context.Background(), coord)
		h.finish(c, nil)
		return h
	}
	return w.gen.Submit(coord)
}

// build is the generation job: restore or populate the grid, mesh it and publish the chunk.
func (w *World) build(ctx context.Context, coord ChunkCoord) (*Chunk, error) {
	defer profiling.Track("world.generate")()

	if w.store.HasChunk(coord) {
		return nil, fmt.Errorf("generate %v: %w", coord, ErrChunkExists)
	}
	chunk := NewChunk(coord, w.cfg.ChunkSizeX, w.cfg.ChunkSizeZ)
	probe := newBoundaryProbe(w, coord)

	restored, err := w.restore(chunk, probe)
	if err != nil {
		return nil, err
	}
	if !restored {
		err := populate(ctx, chunk.grid, w.store.Origin(coord), w.oracle, probe.Local, w.cfg.WorldHeight)
		if err != nil {
			chunk.setState(ChunkDiscarded)
			return nil, err
		}
	}

	pool, err := meshing.BuildGreedy(ctx, chunk.grid, probe.Local)
	if err != nil {
		chunk.setState(ChunkDiscarded)
		return nil, err
	}
	chunk.pool = pool
	chunk.setState(ChunkReady)
	chunk.markDirty(DirtyRedraw | DirtyCollision)

	if err := w.store.AddChunk(chunk); err != nil {
		chunk.setState(ChunkDiscarded)
		return nil, err
	}
	return chunk, nil
}

func (w *World) restore(chunk *Chunk, probe *boundaryProbe) (bool, error) {
	if w.persist == nil {
		return false, nil
	}
	snap, ok, err := w.persist.LoadChunk(chunk.Coord)
	if err != nil {
		return false, fmt.Errorf("load chunk %v: %w", chunk.Coord, err)
	}
	if !ok {
		return false, nil
	}
	grid, err := restoreGrid(snap, w.cfg.ChunkSizeX, w.cfg.ChunkSizeZ)
	if err != nil {
		return false, err
	}
	recountAir(grid, probe.Local, w.cfg.WorldHeight)
	chunk.grid = grid
	return true, nil
}

// LoadArea generates every chunk within radius of center and waits for all of them.
// Chunks already loaded are returned as they are.
func (w *World) LoadArea(ctx context.Context, center ChunkCoord, radius int) ([]*Chunk, error) {
	defer profiling.Track("world.LoadArea")()

	var handles []*GenerateHandle
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			if dx*dx+dz*dz > radius*radius {
				continue
			}
			handles = append(handles, w.BeginGenerate(ChunkCoord{X: center.X + dx, Z: center.Z + dz}))
		}
	}

	chunks := make([]*Chunk, len(handles))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		g.Go(func() error {
			c, err := h.Await(gctx)
			if errors.Is(err, ErrChunkExists) {
				c, err = w.store.GetChunk(h.Coord()), nil
			}
			if err != nil {
				return err
			}
			chunks[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, h := range handles {
			h.Cancel()
		}
		return nil, err
	}
	log.Printf("[World] loaded %d chunks around %v", len(chunks), center)
	return chunks, nil
}

// ApplyEdit sets the voxel at world position p. See Editor.ApplyEdit.
func (w *World) ApplyEdit(p voxel.Pos, data voxel.DataID) (EditResult, error) {
	return w.editor.ApplyEdit(p, data)
}

// SolidAt resolves a world position against the loaded chunks.
func (w *World) SolidAt(p voxel.Pos) (bool, error) {
	if p.Y < 0 {
		return true, nil
	}
	if p.Y >= w.cfg.WorldHeight {
		return false, nil
	}
	coord, local := w.store.Locate(p)
	c := w.store.GetChunk(coord)
	if c == nil {
		return false, fmt.Errorf("solid at %v: chunk %v: %w", p, coord, ErrChunkNotLoaded)
	}
	return c.Solid(local), nil
}

// Unload removes a chunk from the world, saving it first when it has unsaved edits.
func (w *World) Unload(coord ChunkCoord) error {
	c := w.store.RemoveChunk(coord)
	if c == nil {
		return nil
	}
	c.mu.Lock()
	c.setState(ChunkDiscarded)
	c.mu.Unlock()

	if w.persist == nil || c.TakeDirty(DirtyPersist) == 0 {
		return nil
	}
	if err := w.persist.SaveChunk(c.Snapshot()); err != nil {
		return fmt.Errorf("unload %v: %w", coord, err)
	}
	return nil
}

// UnloadOutside unloads every chunk farther than radius from center.
func (w *World) UnloadOutside(center ChunkCoord, radius int) (int, error) {
	var errs []error
	coords := w.store.CoordsOutside(center, radius)
	for _, coord := range coords {
		if err := w.Unload(coord); err != nil {
			errs = append(errs, err)
		}
	}
	return len(coords), errors.Join(errs...)
}

// SaveDirty writes every chunk with unsaved edits and returns how many were written.
func (w *World) SaveDirty() (int, error) {
	if w.persist == nil {
		return 0, nil
	}
	defer profiling.Track("world.SaveDirty")()

	saved := 0
	var errs []error
	for _, c := range w.store.AllChunks() {
		if c.TakeDirty(DirtyPersist) == 0 {
			continue
		}
		if err := w.persist.SaveChunk(c.Snapshot()); err != nil {
			c.markDirty(DirtyPersist)
			errs = append(errs, fmt.Errorf("save %v: %w", c.Coord, err))
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}
