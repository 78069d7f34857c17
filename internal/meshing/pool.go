package meshing

import (
	"errors"
	"fmt"
	"sort"

	"voxelmesh/internal/voxel"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrStaleQuad is the panic payload when a voxel references a recycled or unknown quad slot.
// It always indicates a bookkeeping bug, never a recoverable condition.
var ErrStaleQuad = errors.New("meshing: stale quad reference")

// Quad is one merged rectangle of a single face plane.
type Quad struct {
	Face   voxel.Face
	Origin SlicePos
	W, H   int

	gen  uint32
	free bool
}

// Rect returns the quad's footprint in its slice plane.
func (q *Quad) Rect() Rect {
	return Rect{X: q.Origin.X, Y: q.Origin.Y, W: q.W, H: q.H}
}

// PlacedRect identifies a rectangle independently of the slot it lives in.
type PlacedRect struct {
	Face   voxel.Face
	Offset int
	Rect   Rect
}

// MeshData is a copy of a pool's buffers as handed to the mesh sink.
// Indices use quad topology: four consecutive indices per face.
type MeshData struct {
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	UVs      []mgl32.Vec2
	Indices  []uint32
}

// Clone makes a deep copy of the buffers.
func (m MeshData) Clone() MeshData {
	clone := MeshData{}
	if len(m.Vertices) > 0 {
		clone.Vertices = make([]mgl32.Vec3, len(m.Vertices))
		copy(clone.Vertices, m.Vertices)
	}
	if len(m.Normals) > 0 {
		clone.Normals = make([]mgl32.Vec3, len(m.Normals))
		copy(clone.Normals, m.Normals)
	}
	if len(m.UVs) > 0 {
		clone.UVs = make([]mgl32.Vec2, len(m.UVs))
		copy(clone.UVs, m.UVs)
	}
	if len(m.Indices) > 0 {
		clone.Indices = make([]uint32, len(m.Indices))
		copy(clone.Indices, m.Indices)
	}
	return clone
}

// Triangles converts the quad index list into a triangle list (two triangles per quad).
func (m MeshData) Triangles() []uint32 {
	out := make([]uint32, 0, len(m.Indices)/4*6)
	for i := 0; i+3 < len(m.Indices); i += 4 {
		a, b, c, d := m.Indices[i], m.Indices[i+1], m.Indices[i+2], m.Indices[i+3]
		out = append(out, a, b, c, a, c, d)
	}
	return out
}

// QuadPool owns a chunk's flat vertex, normal, UV and index buffers plus the quad records laid over
// them. Slot indices never move: recycled quads are hidden by zeroing their vertices and parked on a
// free list until a later allocation reuses them.
type QuadPool struct {
	quads []Quad
	free  []int32

	// Last split or merge per face cell, so the opposite operation can undo it exactly.
	edits map[faceCell]faceEdit

	vertices []mgl32.Vec3
	normals  []mgl32.Vec3
	uvs      []mgl32.Vec2
	indices  []uint32
}

// NewQuadPool creates an empty pool.
func NewQuadPool() *QuadPool {
	return &QuadPool{
		vertices: make([]mgl32.Vec3, 0, 256),
		normals:  make([]mgl32.Vec3, 0, 256),
		uvs:      make([]mgl32.Vec2, 0, 256),
		indices:  make([]uint32, 0, 256),
	}
}

// Allocate returns a quad for face with the given origin and extent.
// A free slot is reused in place when available, otherwise the buffers grow by one quad.
// The vertices hold the unscaled face template until Position is called.
func (p *QuadPool) Allocate(face voxel.Face, origin SlicePos, w, h int) voxel.QuadRef {
	var idx int32
	if len(p.free) > 0 {
		idx = p.free[0]
		p.free = p.free[1:]
		q := &p.quads[idx]
		q.free = false
		base := int(idx) * 4
		for i := 0; i < 4; i++ {
			p.vertices[base+i] = faceCorners[face][i]
			p.normals[base+i] = faceNormals[face]
			p.uvs[base+i] = faceUVs[face][i]
		}
	} else {
		idx = int32(len(p.quads))
		p.quads = append(p.quads, Quad{gen: 1})
		base := uint32(idx) * 4
		for i := 0; i < 4; i++ {
			p.vertices = append(p.vertices, faceCorners[face][i])
			p.normals = append(p.normals, faceNormals[face])
			p.uvs = append(p.uvs, faceUVs[face][i])
			p.indices = append(p.indices, base+uint32(i))
		}
	}
	q := &p.quads[idx]
	q.Face = face
	q.Origin = origin
	q.W, q.H = w, h
	return voxel.QuadRef{Index: idx, Gen: q.gen}
}

// Recycle hides the quad and returns its slot to the free list. Any outstanding reference to it
// becomes stale.
func (p *QuadPool) Recycle(ref voxel.QuadRef) {
	q := p.MustGet(ref)
	base := int(ref.Index) * 4
	for i := base; i < base+4; i++ {
		p.vertices[i] = mgl32.Vec3{}
	}
	q.gen++
	q.free = true
	p.free = append(p.free, ref.Index)
}

// Get returns the quad behind ref, or false if ref is unset, out of range or stale.
func (p *QuadPool) Get(ref voxel.QuadRef) (*Quad, bool) {
	if !ref.Valid() || int(ref.Index) >= len(p.quads) {
		return nil, false
	}
	q := &p.quads[ref.Index]
	if q.free || q.gen != ref.Gen {
		return nil, false
	}
	return q, true
}

// MustGet is Get for references the caller's invariants guarantee to be live.
func (p *QuadPool) MustGet(ref voxel.QuadRef) *Quad {
	q, ok := p.Get(ref)
	if !ok {
		panic(fmt.Errorf("%w: slot %d gen %d", ErrStaleQuad, ref.Index, ref.Gen))
	}
	return q
}

// Reshape moves a live quad to cover r in its plane and repositions its vertices.
func (p *QuadPool) Reshape(ref voxel.QuadRef, r Rect) {
	q := p.MustGet(ref)
	q.Origin.X, q.Origin.Y = r.X, r.Y
	q.W, q.H = r.W, r.H
	p.Position(ref)
}

// Position writes the chunk-local vertex positions and tiled UVs for the quad's rectangle.
func (p *QuadPool) Position(ref voxel.QuadRef) {
	q := p.MustGet(ref)
	p.position(int(ref.Index), q)
}

func (p *QuadPool) position(idx int, q *Quad) {
	axis := q.Face.Axis()
	scale := posVec(SlicePos{X: q.W, Y: q.H, Offset: 1}.Local(axis))
	origin := posVec(q.Origin.Local(axis))
	base := idx * 4
	for i := 0; i < 4; i++ {
		p.vertices[base+i] = placeCorner(faceCorners[q.Face][i], scale, origin)
		uv := faceUVs[q.Face][i]
		p.uvs[base+i] = mgl32.Vec2{uv.X() * float32(q.W), uv.Y() * float32(q.H)}
	}
}

// PositionAll positions every live quad. The full mesher calls it once after merging.
func (p *QuadPool) PositionAll() {
	for i := range p.quads {
		if !p.quads[i].free {
			p.position(i, &p.quads[i])
		}
	}
}

// Len returns the number of slots, live or free.
func (p *QuadPool) Len() int { return len(p.quads) }

// LiveCount returns the number of visible quads.
func (p *QuadPool) LiveCount() int { return len(p.quads) - len(p.free) }

// FreeCount returns the number of parked slots.
func (p *QuadPool) FreeCount() int { return len(p.free) }

// Rects lists every live rectangle, sorted, so two pools can be compared regardless of slot layout.
func (p *QuadPool) Rects() []PlacedRect {
	out := make([]PlacedRect, 0, p.LiveCount())
	for i := range p.quads {
		q := &p.quads[i]
		if q.free {
			continue
		}
		out = append(out, PlacedRect{Face: q.Face, Offset: q.Origin.Offset, Rect: q.Rect()})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Face != b.Face {
			return a.Face < b.Face
		}
		if a.Offset != b.Offset {
			return a.Offset < b.Offset
		}
		if a.Rect.Y != b.Rect.Y {
			return a.Rect.Y < b.Rect.Y
		}
		if a.Rect.X != b.Rect.X {
			return a.Rect.X < b.Rect.X
		}
		if a.Rect.W != b.Rect.W {
			return a.Rect.W < b.Rect.W
		}
		return a.Rect.H < b.Rect.H
	})
	return out
}

// Snapshot copies the buffers for the mesh sink.
func (p *QuadPool) Snapshot() MeshData {
	return MeshData{
		Vertices: p.vertices,
		Normals:  p.normals,
		UVs:      p.uvs,
		Indices:  p.indices,
	}.Clone()
}

// CollisionTriangles returns positions and a triangle index list covering only live quads.
func (p *QuadPool) CollisionTriangles() ([]mgl32.Vec3, []uint32) {
	verts := make([]mgl32.Vec3, 0, p.LiveCount()*4)
	tris := make([]uint32, 0, p.LiveCount()*6)
	for i := range p.quads {
		if p.quads[i].free {
			continue
		}
		base := uint32(len(verts))
		verts = append(verts, p.vertices[i*4:i*4+4]...)
		tris = append(tris, base, base+1, base+2, base, base+2, base+3)
	}
	return verts, tris
}
