package world

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voxelmesh/internal/config"
	"voxelmesh/internal/meshing"
	"voxelmesh/internal/voxel"
)

// columnOracle is a heightmap oracle driven by a plain function.
type columnOracle struct {
	height func(x, z int) int
}

func (o columnOracle) HasSolid(p voxel.Pos) bool {
	return p.Y < 0 || p.Y < o.height(p.X, p.Z)
}

func (o columnOracle) ColumnHeight(x, z int) int { return o.height(x, z) }

func flatOracle(h int) columnOracle {
	return columnOracle{height: func(int, int) int { return h }}
}

// islandOracle is solid up to h inside [0,sx)x[0,sz) and empty elsewhere.
func islandOracle(sx, sz, h int) columnOracle {
	return columnOracle{height: func(x, z int) int {
		if x >= 0 && x < sx && z >= 0 && z < sz {
			return h
		}
		return 0
	}}
}

func testConfig(sizeX, sizeZ int) config.Config {
	cfg := *config.DefaultConfig()
	cfg.ChunkSizeX = sizeX
	cfg.ChunkSizeZ = sizeZ
	cfg.WorldHeight = 32
	cfg.BaseHeight = 4
	cfg.Workers = 2
	cfg.QueueSize = 64
	return cfg
}

func newTestWorld(t *testing.T, sizeX, sizeZ int, oracle TerrainOracle, opts ...Option) *World {
	t.Helper()
	w := New(testConfig(sizeX, sizeZ), oracle, opts...)
	t.Cleanup(w.Close)
	return w
}

func newBenchWorld(b *testing.B, sizeX, sizeZ int, oracle TerrainOracle) *World {
	b.Helper()
	cfg := testConfig(sizeX, sizeZ)
	cfg.WorldHeight = 64
	w := New(cfg, oracle)
	b.Cleanup(w.Close)
	return w
}

func generate(t *testing.T, w *World, coord ChunkCoord) *Chunk {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := w.BeginGenerate(coord).Await(ctx)
	if err != nil {
		t.Fatalf("generate %v: %v", coord, err)
	}
	return c
}

func hasRect(rects []meshing.PlacedRect, want meshing.PlacedRect) bool {
	for _, r := range rects {
		if r == want {
			return true
		}
	}
	return false
}

func rectsEqual(a, b []meshing.PlacedRect) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGenerateFlatIsland(t *testing.T) {
	w := newTestWorld(t, 4, 4, islandOracle(4, 4, 1))
	c := generate(t, w, ChunkCoord{})

	if c.State() != ChunkReady {
		t.Fatalf("state: got %v, want ready", c.State())
	}
	rects := c.Rects()
	want := []meshing.PlacedRect{
		{Face: voxel.FacePosX, Offset: 3, Rect: meshing.Rect{X: 0, Y: 0, W: 4, H: 1}},
		{Face: voxel.FacePosY, Offset: 0, Rect: meshing.Rect{X: 0, Y: 0, W: 4, H: 4}},
		{Face: voxel.FacePosZ, Offset: 3, Rect: meshing.Rect{X: 0, Y: 0, W: 4, H: 1}},
		{Face: voxel.FaceNegX, Offset: 0, Rect: meshing.Rect{X: 0, Y: 0, W: 4, H: 1}},
		{Face: voxel.FaceNegZ, Offset: 0, Rect: meshing.Rect{X: 0, Y: 0, W: 4, H: 1}},
	}
	if !rectsEqual(rects, want) {
		t.Fatalf("rects:\n got %v\nwant %v", rects, want)
	}

	st := c.Stats()
	if st.LiveQuads != 5 {
		t.Errorf("Expected 5 live quads, got %d", st.LiveQuads)
	}
	// 16 solid surface cells and the 16 air cells resting on them.
	if st.Records != 32 {
		t.Errorf("Expected 32 records, got %d", st.Records)
	}
	if got := c.TakeDirty(DirtyRedraw | DirtyCollision); got != DirtyRedraw|DirtyCollision {
		t.Errorf("dirty after generation: got %b", got)
	}

	mesh := c.MeshData()
	if len(mesh.Indices) != 4*(st.LiveQuads+st.FreeSlots) {
		t.Errorf("indices: got %d for %d slots", len(mesh.Indices), st.LiveQuads+st.FreeSlots)
	}
	col := c.CollisionGeometry()
	if len(col.Indices) != 6*5 || len(col.Vertices) != 4*5 {
		t.Errorf("collision geometry: got %d verts, %d indices", len(col.Vertices), len(col.Indices))
	}
}

// TestGeneratedFacesCoverExactlyVisible checks every visible face of every solid record is covered by
// exactly one rectangle and nothing else is.
func TestGeneratedFacesCoverExactlyVisible(t *testing.T) {
	oracle := NewGenerator(4242).WithShape(6, 10, 32)
	w := newTestWorld(t, 8, 8, oracle)
	for _, coord := range []ChunkCoord{{0, 0}, {1, 0}} {
		generate(t, w, coord)
	}

	for _, c := range w.Store().AllChunks() {
		origin := c.Origin()
		covered := make(map[voxel.Face]map[voxel.Pos]int)
		for _, r := range c.Rects() {
			if covered[r.Face] == nil {
				covered[r.Face] = make(map[voxel.Pos]int)
			}
			r.Rect.Cells(func(x, y int) {
				p := meshing.SlicePos{X: x, Y: y, Offset: r.Offset}.Local(r.Face.Axis())
				covered[r.Face][p]++
			})
		}

		visible := 0
		c.grid.Range(func(p voxel.Pos, v *voxel.Voxel) bool {
			if !v.Solid() {
				return true
			}
			for _, f := range voxel.Faces {
				n := p.Neighbor(f)
				var solid bool
				if c.grid.InFootprint(n) {
					solid = c.grid.Resolve(n)
				} else {
					s, err := w.SolidAt(n.Add(origin))
					if err != nil {
						s = oracle.HasSolid(n.Add(origin))
					}
					solid = s
				}
				got := covered[f][p]
				switch {
				case !solid && got != 1:
					t.Errorf("chunk %v face %v of %v: covered %d times, want 1", c.Coord, f, p, got)
				case solid && got != 0:
					t.Errorf("chunk %v hidden face %v of %v is covered", c.Coord, f, p)
				}
				if v.HasFace(f) != !solid {
					t.Errorf("chunk %v face %v of %v: HasFace=%v, visible=%v", c.Coord, f, p, v.HasFace(f), !solid)
				}
				if !solid {
					visible++
				}
			}
			if v.Exposed != v.FaceCount() {
				t.Errorf("chunk %v %v: exposed %d, faces %d", c.Coord, p, v.Exposed, v.FaceCount())
			}
			return true
		})

		total := 0
		for _, r := range c.Rects() {
			total += r.Rect.Area()
		}
		if total != visible {
			t.Errorf("chunk %v: rectangles cover %d cells, %d faces visible", c.Coord, total, visible)
		}
	}
}

// caveOracle is flat ground six high with a sealed 3x3x3 hollow at (1..3, 1..3, 1..3).
type caveOracle struct{}

func (caveOracle) HasSolid(p voxel.Pos) bool {
	if p.Y < 0 {
		return true
	}
	inCave := p.X >= 1 && p.X <= 3 && p.Y >= 1 && p.Y <= 3 && p.Z >= 1 && p.Z <= 3
	return p.Y < 6 && !inCave
}

func (caveOracle) ColumnHeight(x, z int) int { return 6 }

func TestGenerateKeepsSealedCave(t *testing.T) {
	var oracle caveOracle
	w := newTestWorld(t, 8, 8, oracle)
	c := generate(t, w, ChunkCoord{})

	centre := voxel.Pos{X: 2, Y: 2, Z: 2}
	v, ok := c.Voxel(centre)
	if !ok {
		t.Fatalf("cave centre %v has no record", centre)
	}
	if v.Data != voxel.Air || v.Exposed != 0 {
		t.Fatalf("cave centre: data %v exposed %d, want air with no solid neighbors", v.Data, v.Exposed)
	}
	if solid, err := w.SolidAt(centre); err != nil || solid {
		t.Fatalf("SolidAt(cave centre) = %v, %v; want false", solid, err)
	}
	checkVisibleFaces(t, w, c, oracle)

	rects0, recs0 := c.Rects(), records(c)
	res, err := w.ApplyEdit(centre, voxel.Stone)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !res.Changed {
		t.Fatal("placing in the cave centre reported no change")
	}
	v, _ = c.Voxel(centre)
	if v.Exposed != voxel.NumFaces {
		t.Errorf("placed block exposes %d faces, want %d", v.Exposed, voxel.NumFaces)
	}
	checkQuadRefs(t, c)

	if _, err := w.ApplyEdit(centre, voxel.Air); err != nil {
		t.Fatalf("remove: %v", err)
	}
	checkQuadRefs(t, c)
	if got := c.Rects(); !rectsEqual(got, rects0) {
		t.Errorf("rects after round trip:\n got %v\nwant %v", got, rects0)
	}
	diffRecords(t, records(c), recs0)
}

func TestBeginGenerateLoadedChunk(t *testing.T) {
	w := newTestWorld(t, 4, 4, flatOracle(2))
	c := generate(t, w, ChunkCoord{})

	h := w.BeginGenerate(ChunkCoord{})
	got, done, err := h.Poll()
	if !done || err != nil || got != c {
		t.Fatalf("poll on loaded chunk: got (%p,%v,%v), want (%p,true,nil)", got, done, err, c)
	}
}

// gateOracle blocks every column query until the gate is closed and panics when asked to.
type gateOracle struct {
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
	panics  bool
}

func (o *gateOracle) HasSolid(p voxel.Pos) bool { return p.Y < 1 }

func (o *gateOracle) ColumnHeight(x, z int) int {
	o.once.Do(func() { close(o.entered) })
	<-o.gate
	if o.panics {
		panic("terrain source unavailable")
	}
	return 1
}

func TestGenerateCancel(t *testing.T) {
	oracle := &gateOracle{gate: make(chan struct{}), entered: make(chan struct{})}
	w := newTestWorld(t, 4, 4, oracle)

	h := w.BeginGenerate(ChunkCoord{X: 2, Z: 2})
	<-oracle.entered
	if _, done, _ := h.Poll(); done {
		t.Fatalf("Expected job to be running")
	}
	h.Cancel()
	close(oracle.gate)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := h.Await(ctx)
	if !errors.Is(err, ErrGenerationCancelled) {
		t.Fatalf("await: got %v, want ErrGenerationCancelled", err)
	}
	if c != nil {
		t.Errorf("Expected no chunk from a cancelled job")
	}
	if w.Store().HasChunk(ChunkCoord{X: 2, Z: 2}) {
		t.Errorf("cancelled chunk was published")
	}
}

func TestGeneratePanicReportsFailure(t *testing.T) {
	oracle := &gateOracle{gate: make(chan struct{}), entered: make(chan struct{}), panics: true}
	close(oracle.gate)
	w := newTestWorld(t, 4, 4, oracle)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := w.BeginGenerate(ChunkCoord{}).Await(ctx)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("await: got %v, want ErrGenerationFailed", err)
	}
	if w.Store().Len() != 0 {
		t.Errorf("failed chunk was published")
	}
}

func TestLoadAreaAndUnloadOutside(t *testing.T) {
	w := newTestWorld(t, 4, 4, flatOracle(3))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	chunks, err := w.LoadArea(ctx, ChunkCoord{}, 1)
	if err != nil {
		t.Fatalf("load area: %v", err)
	}
	// Radius 1 is the centre plus its four axis neighbors.
	if len(chunks) != 5 || w.Store().Len() != 5 {
		t.Fatalf("Expected 5 chunks, got %d (store %d)", len(chunks), w.Store().Len())
	}
	for _, c := range chunks {
		if c == nil || !c.Ready() {
			t.Fatalf("chunk not ready: %v", c)
		}
	}

	// Chunks of an endless flat world only show their top.
	for _, r := range w.Chunk(ChunkCoord{}).Rects() {
		if r.Face != voxel.FacePosY {
			t.Errorf("unexpected rect %v in flat world", r)
		}
	}

	n, err := w.UnloadOutside(ChunkCoord{X: 1}, 0)
	if err != nil {
		t.Fatalf("unload: %v", err)
	}
	if n != 4 || w.Store().Len() != 1 || w.Chunk(ChunkCoord{X: 1}) == nil {
		t.Errorf("after unload: removed %d, %d left", n, w.Store().Len())
	}
}

// memPersister keeps snapshots in memory.
type memPersister struct {
	mu    sync.Mutex
	snaps map[ChunkCoord]ChunkSnapshot
	saves int
}

func newMemPersister() *memPersister {
	return &memPersister{snaps: make(map[ChunkCoord]ChunkSnapshot)}
}

func (m *memPersister) LoadChunk(coord ChunkCoord) (*ChunkSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[coord]
	if !ok {
		return nil, false, nil
	}
	s.Tops = append([]int(nil), s.Tops...)
	s.Cells = append([]CellRecord(nil), s.Cells...)
	return &s, true, nil
}

func (m *memPersister) SaveChunk(snap *ChunkSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Coord] = *snap
	m.saves++
	return nil
}

func TestPersistedEditsSurviveReload(t *testing.T) {
	store := newMemPersister()
	w := newTestWorld(t, 4, 4, flatOracle(2), WithPersister(store))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := w.LoadArea(ctx, ChunkCoord{}, 1); err != nil {
		t.Fatalf("load area: %v", err)
	}

	tower := voxel.Pos{X: 1, Y: 2, Z: 1}
	hole := voxel.Pos{X: 2, Y: 1, Z: 2}
	if _, err := w.ApplyEdit(tower, voxel.Dirt); err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := w.ApplyEdit(hole, voxel.Air); err != nil {
		t.Fatalf("remove: %v", err)
	}

	saved, err := w.SaveDirty()
	if err != nil || saved != 1 {
		t.Fatalf("save dirty: saved %d, err %v", saved, err)
	}
	if saved, _ := w.SaveDirty(); saved != 0 {
		t.Errorf("second save wrote %d chunks, want 0", saved)
	}
	before := w.Chunk(ChunkCoord{}).Rects()

	if err := w.Unload(ChunkCoord{}); err != nil {
		t.Fatalf("unload: %v", err)
	}
	c := generate(t, w, ChunkCoord{})

	if solid, _ := w.SolidAt(tower); !solid {
		t.Errorf("placed block lost on reload")
	}
	if solid, _ := w.SolidAt(hole); solid {
		t.Errorf("removed block came back on reload")
	}
	v, ok := c.Voxel(tower)
	if !ok || v.Data != voxel.Dirt || v.FaceCount() != 5 {
		t.Errorf("reloaded tower record: %+v (present %v)", v, ok)
	}

	area := func(rects []meshing.PlacedRect) map[voxel.Face]int {
		out := make(map[voxel.Face]int)
		for _, r := range rects {
			out[r.Face] += r.Rect.Area()
		}
		return out
	}
	got, want := area(c.Rects()), area(before)
	for _, f := range voxel.Faces {
		if got[f] != want[f] {
			t.Errorf("face %v covers %d cells after reload, want %d", f, got[f], want[f])
		}
	}
}

func TestUnloadSavesOnlyEditedChunks(t *testing.T) {
	store := newMemPersister()
	w := newTestWorld(t, 4, 4, flatOracle(2), WithPersister(store))
	generate(t, w, ChunkCoord{})
	if err := w.Unload(ChunkCoord{}); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if store.saves != 0 {
		t.Errorf("unedited chunk was saved")
	}
}
