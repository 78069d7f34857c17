package meshsink

import (
	"log"
	"sort"
	"sync"

	"voxelmesh/internal/world"
)

// Publisher turns redraw-dirty chunks into frames on a hub and remembers the latest frame of every
// chunk so late viewers can be brought up to date.
type Publisher struct {
	hub *Hub

	mu     sync.Mutex
	seq    uint64
	latest map[world.ChunkCoord][]byte
	// Store modification count seen by the last Sync.
	mod    uint64
	synced bool
}

// NewPublisher creates a publisher and installs it as the hub's welcome source.
func NewPublisher(hub *Hub) *Publisher {
	p := &Publisher{hub: hub, latest: make(map[world.ChunkCoord][]byte)}
	hub.Welcome = p.Frames
	return p
}

// FrameFor builds the mesh frame of a chunk.
func FrameFor(c *world.Chunk) *MeshFrame {
	mesh := c.MeshData()
	origin := c.Origin()
	return &MeshFrame{
		ChunkX:   int32(c.Coord.X),
		ChunkZ:   int32(c.Coord.Z),
		Kind:     FrameMesh,
		OriginX:  int32(origin.X),
		OriginZ:  int32(origin.Z),
		Vertices: mesh.Vertices,
		Normals:  mesh.Normals,
		UVs:      mesh.UVs,
		Indices:  mesh.Triangles(),
	}
}

// Publish sends a frame for every chunk whose redraw flag is set and a removal frame for every
// previously published chunk missing from chunks. It returns the number of frames queued.
func (p *Publisher) Publish(chunks []*world.Chunk) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.publish(chunks, true)
}

// Sync publishes the chunks of store. Removed chunks are only looked for when the store gained or
// lost chunks since the previous Sync.
func (p *Publisher) Sync(store *world.ChunkStore) int {
	mod := store.GetModCount()
	chunks := store.AllChunks()
	p.mu.Lock()
	defer p.mu.Unlock()
	scan := !p.synced || mod != p.mod
	p.mod, p.synced = mod, true
	return p.publish(chunks, scan)
}

func (p *Publisher) publish(chunks []*world.Chunk, scan bool) int {
	sent := 0
	present := make(map[world.ChunkCoord]bool, len(chunks))
	for _, c := range chunks {
		present[c.Coord] = true
		if c.TakeDirty(world.DirtyRedraw) == 0 {
			continue
		}
		if p.send(c.Coord, FrameFor(c)) {
			sent++
		} else {
			c.MarkDirty(world.DirtyRedraw)
		}
	}

	var gone []world.ChunkCoord
	if scan {
		for coord := range p.latest {
			if !present[coord] {
				gone = append(gone, coord)
			}
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].Less(gone[j]) })
	for _, coord := range gone {
		delete(p.latest, coord)
		p.seq++
		frame := &MeshFrame{Seq: p.seq, ChunkX: int32(coord.X), ChunkZ: int32(coord.Z), Kind: FrameRemoved}
		if p.hub.Broadcast(frame.Marshal()) {
			sent++
		}
	}
	if sent > 0 {
		log.Printf("[Publish] queued %d frames (%d chunks tracked)", sent, len(p.latest))
	}
	return sent
}

func (p *Publisher) send(coord world.ChunkCoord, frame *MeshFrame) bool {
	p.seq++
	frame.Seq = p.seq
	data := frame.Marshal()
	p.latest[coord] = data
	return p.hub.Broadcast(data)
}

// Frames returns the latest frame of every published chunk, ordered by coordinate.
func (p *Publisher) Frames() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	coords := make([]world.ChunkCoord, 0, len(p.latest))
	for coord := range p.latest {
		coords = append(coords, coord)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	out := make([][]byte, len(coords))
	for i, coord := range coords {
		out[i] = p.latest[coord]
	}
	return out
}
