// Package meshsink streams chunk meshes to viewers over websockets.
package meshsink

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"google.golang.org/protobuf/encoding/protowire"
)

// FrameKind tells a viewer what to do with a frame.
type FrameKind int32

const (
	FrameMesh    FrameKind = iota // replace the chunk's mesh
	FrameRemoved                  // drop the chunk
)

// ErrMalformed is returned when a frame cannot be decoded.
var ErrMalformed = errors.New("meshsink: malformed frame")

// MeshFrame is one chunk mesh on the wire. Indices form a triangle list.
type MeshFrame struct {
	Seq      uint64
	ChunkX   int32
	ChunkZ   int32
	Kind     FrameKind
	OriginX  int32 // world position of the chunk's local origin
	OriginZ  int32
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	UVs      []mgl32.Vec2
	Indices  []uint32
}

const (
	fieldSeq      protowire.Number = 1
	fieldChunkX   protowire.Number = 2
	fieldChunkZ   protowire.Number = 3
	fieldKind     protowire.Number = 4
	fieldVertices protowire.Number = 5
	fieldNormals  protowire.Number = 6
	fieldUVs      protowire.Number = 7
	fieldIndices  protowire.Number = 8
	fieldOriginX  protowire.Number = 9
	fieldOriginZ  protowire.Number = 10
)

// Marshal encodes the frame in protobuf wire format. Float and index arrays are packed.
func (m *MeshFrame) Marshal() []byte {
	b := make([]byte, 0, 32+len(m.Vertices)*24+len(m.UVs)*8+len(m.Indices)*2)
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, m.Seq)
	b = protowire.AppendTag(b, fieldChunkX, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(m.ChunkX)))
	b = protowire.AppendTag(b, fieldChunkZ, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(m.ChunkZ)))
	if m.Kind != FrameMesh {
		b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Kind))
	}
	b = protowire.AppendTag(b, fieldOriginX, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(m.OriginX)))
	b = protowire.AppendTag(b, fieldOriginZ, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(m.OriginZ)))
	if len(m.Vertices) > 0 {
		b = appendVec3s(b, fieldVertices, m.Vertices)
	}
	if len(m.Normals) > 0 {
		b = appendVec3s(b, fieldNormals, m.Normals)
	}
	if len(m.UVs) > 0 {
		packed := make([]byte, 0, len(m.UVs)*8)
		for _, uv := range m.UVs {
			packed = protowire.AppendFixed32(packed, math.Float32bits(uv.X()))
			packed = protowire.AppendFixed32(packed, math.Float32bits(uv.Y()))
		}
		b = protowire.AppendTag(b, fieldUVs, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	if len(m.Indices) > 0 {
		var packed []byte
		for _, idx := range m.Indices {
			packed = protowire.AppendVarint(packed, uint64(idx))
		}
		b = protowire.AppendTag(b, fieldIndices, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

func appendVec3s(b []byte, num protowire.Number, vs []mgl32.Vec3) []byte {
	packed := make([]byte, 0, len(vs)*12)
	for _, v := range vs {
		for i := 0; i < 3; i++ {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v[i]))
		}
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// Unmarshal decodes a frame produced by Marshal. Unknown fields are skipped.
func (m *MeshFrame) Unmarshal(data []byte) error {
	*m = MeshFrame{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: tag: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case typ == protowire.VarintType && (num <= fieldKind || num == fieldOriginX || num == fieldOriginZ):
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldSeq:
				m.Seq = v
			case fieldChunkX:
				m.ChunkX = int32(protowire.DecodeZigZag(v))
			case fieldChunkZ:
				m.ChunkZ = int32(protowire.DecodeZigZag(v))
			case fieldKind:
				m.Kind = FrameKind(v)
			case fieldOriginX:
				m.OriginX = int32(protowire.DecodeZigZag(v))
			case fieldOriginZ:
				m.OriginZ = int32(protowire.DecodeZigZag(v))
			}
		case typ == protowire.BytesType && num >= fieldVertices && num <= fieldIndices:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			data = data[n:]
			if err := m.unpack(num, v); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("%w: skip field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrMalformed, len(m.Normals), len(m.Vertices))
	}
	return nil
}

func (m *MeshFrame) unpack(num protowire.Number, v []byte) error {
	if num == fieldIndices {
		for len(v) > 0 {
			idx, n := protowire.ConsumeVarint(v)
			if n < 0 || idx > math.MaxUint32 {
				return fmt.Errorf("%w: index list", ErrMalformed)
			}
			m.Indices = append(m.Indices, uint32(idx))
			v = v[n:]
		}
		return nil
	}

	floats, err := unpackFloats(v)
	if err != nil {
		return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, err)
	}
	switch num {
	case fieldVertices, fieldNormals:
		if len(floats)%3 != 0 {
			return fmt.Errorf("%w: field %d has %d floats", ErrMalformed, num, len(floats))
		}
		out := make([]mgl32.Vec3, len(floats)/3)
		for i := range out {
			out[i] = mgl32.Vec3{floats[3*i], floats[3*i+1], floats[3*i+2]}
		}
		if num == fieldVertices {
			m.Vertices = out
		} else {
			m.Normals = out
		}
	case fieldUVs:
		if len(floats)%2 != 0 {
			return fmt.Errorf("%w: odd uv count %d", ErrMalformed, len(floats))
		}
		m.UVs = make([]mgl32.Vec2, len(floats)/2)
		for i := range m.UVs {
			m.UVs[i] = mgl32.Vec2{floats[2*i], floats[2*i+1]}
		}
	}
	return nil
}

func unpackFloats(v []byte) ([]float32, error) {
	if len(v)%4 != 0 {
		return nil, fmt.Errorf("packed length %d", len(v))
	}
	out := make([]float32, 0, len(v)/4)
	for len(v) > 0 {
		bits, n := protowire.ConsumeFixed32(v)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, math.Float32frombits(bits))
		v = v[n:]
	}
	return out, nil
}
