package graphics

import (
	"math"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"voxelmesh/internal/meshsink"
)

const (
	WinWidth  = 1280
	WinHeight = 800
)

type chunkKey struct{ x, z int32 }

// chunkMesh holds the GPU buffers of one chunk. Vertices are interleaved pos.xyz, normal.xyz, uv.xy.
type chunkMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
	seq           uint64
	model         mgl32.Mat4
	min, max      mgl32.Vec3
}

// Renderer draws streamed chunk meshes.
type Renderer struct {
	shader *Shader
	camera *Camera

	chunkMeshes map[chunkKey]*chunkMesh

	// Height of the color ramp.
	MaxHeight float32
	Wireframe bool

	drawn, culled int
}

// NewRenderer initializes GL state and compiles the chunk shader. A GL context must be current.
func NewRenderer(camera *Camera) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, err
	}

	gl.Enable(gl.DEPTH_TEST)
	// Meshing emits CCW front faces.
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)

	shader, err := NewShader("chunk")
	if err != nil {
		return nil, err
	}
	return &Renderer{
		shader:      shader,
		camera:      camera,
		chunkMeshes: make(map[chunkKey]*chunkMesh),
		MaxHeight:   96,
	}, nil
}

// Apply uploads or removes the chunk named by frame. Frames older than the one already applied
// for the same chunk are ignored.
func (r *Renderer) Apply(frame *meshsink.MeshFrame) {
	key := chunkKey{frame.ChunkX, frame.ChunkZ}
	existing := r.chunkMeshes[key]
	if existing != nil && frame.Seq < existing.seq {
		return
	}
	if frame.Kind == meshsink.FrameRemoved {
		if existing != nil {
			existing.delete()
			delete(r.chunkMeshes, key)
		}
		return
	}
	if existing == nil {
		existing = newChunkMesh()
		r.chunkMeshes[key] = existing
	}
	existing.upload(frame)
}

func newChunkMesh() *chunkMesh {
	m := &chunkMesh{}
	gl.GenVertexArrays(1, &m.vao)
	gl.GenBuffers(1, &m.vbo)
	gl.GenBuffers(1, &m.ebo)

	gl.BindVertexArray(m.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	stride := int32(8 * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 6*4)
	gl.BindVertexArray(0)
	return m
}

func (m *chunkMesh) upload(frame *meshsink.MeshFrame) {
	verts := Interleave(frame)
	m.seq = frame.Seq
	m.indexCount = int32(len(frame.Indices))
	m.model = mgl32.Translate3D(float32(frame.OriginX), 0, float32(frame.OriginZ))
	m.min, m.max = Bounds(frame)

	gl.BindVertexArray(m.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	if len(verts) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.DYNAMIC_DRAW)
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	if len(frame.Indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(frame.Indices)*4, gl.Ptr(frame.Indices), gl.DYNAMIC_DRAW)
	}
	gl.BindVertexArray(0)
}

func (m *chunkMesh) delete() {
	gl.DeleteVertexArrays(1, &m.vao)
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteBuffers(1, &m.ebo)
}

// Interleave packs a frame's vertex attributes into one float slice. Missing normals or UVs are
// left at zero.
func Interleave(frame *meshsink.MeshFrame) []float32 {
	out := make([]float32, 0, len(frame.Vertices)*8)
	for i, v := range frame.Vertices {
		var n mgl32.Vec3
		if i < len(frame.Normals) {
			n = frame.Normals[i]
		}
		var uv mgl32.Vec2
		if i < len(frame.UVs) {
			uv = frame.UVs[i]
		}
		out = append(out, v.X(), v.Y(), v.Z(), n.X(), n.Y(), n.Z(), uv.X(), uv.Y())
	}
	return out
}

// Bounds returns the world-space box of the vertices referenced by the frame's indices.
func Bounds(frame *meshsink.MeshFrame) (mgl32.Vec3, mgl32.Vec3) {
	origin := mgl32.Vec3{float32(frame.OriginX), 0, float32(frame.OriginZ)}
	if len(frame.Indices) == 0 {
		return origin, origin
	}
	lo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, idx := range frame.Indices {
		if int(idx) >= len(frame.Vertices) {
			continue
		}
		v := frame.Vertices[idx]
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], v[a])
			hi[a] = max(hi[a], v[a])
		}
	}
	return lo.Add(origin), hi.Add(origin)
}

// Render draws every chunk that intersects the camera frustum.
func (r *Renderer) Render() {
	gl.ClearColor(0.53, 0.81, 0.92, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	if r.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}

	view := r.camera.GetViewMatrix()
	projection := r.camera.GetProjectionMatrix()
	frustum := NewFrustum(projection.Mul4(view))

	r.shader.Use()
	r.shader.SetMat4("proj", projection)
	r.shader.SetMat4("view", view)
	r.shader.SetVec3("lightDir", mgl32.Vec3{0.3, 1.0, 0.3}.Normalize())
	r.shader.SetVec3("lowColor", mgl32.Vec3{0.45, 0.36, 0.25})
	r.shader.SetVec3("highColor", mgl32.Vec3{0.38, 0.68, 0.30})
	r.shader.SetFloat("maxHeight", r.MaxHeight)

	r.drawn, r.culled = 0, 0
	for _, m := range r.chunkMeshes {
		if m.indexCount == 0 {
			continue
		}
		if !frustum.IntersectsAABB(m.min, m.max) {
			r.culled++
			continue
		}
		r.shader.SetMat4("model", m.model)
		gl.BindVertexArray(m.vao)
		gl.DrawElements(gl.TRIANGLES, m.indexCount, gl.UNSIGNED_INT, gl.PtrOffset(0))
		r.drawn++
	}
	gl.BindVertexArray(0)
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
}

// Stats returns the number of chunks drawn and culled in the last frame, and the number held.
func (r *Renderer) Stats() (drawn, culled, total int) {
	return r.drawn, r.culled, len(r.chunkMeshes)
}

// Delete releases every GPU resource.
func (r *Renderer) Delete() {
	for key, m := range r.chunkMeshes {
		m.delete()
		delete(r.chunkMeshes, key)
	}
	r.shader.Delete()
}
