package meshsink

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestMeshFrameRoundTrip(t *testing.T) {
	in := &MeshFrame{
		Seq:      17,
		ChunkX:   -3,
		ChunkZ:   4,
		OriginX:  -48,
		OriginZ:  64,
		Vertices: []mgl32.Vec3{{0, 1, 0}, {0, 1, 2.5}, {1, 1, 2.5}, {1, 1, 0}},
		Normals:  []mgl32.Vec3{{0, 1, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0}},
		UVs:      []mgl32.Vec2{{0, 0}, {0, 2.5}, {1, 2.5}, {1, 0}},
		Indices:  []uint32{0, 1, 2, 0, 2, 3, 300},
	}
	var out MeshFrame
	if err := out.Unmarshal(in.Marshal()); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Seq != in.Seq || out.ChunkX != in.ChunkX || out.ChunkZ != in.ChunkZ || out.Kind != FrameMesh {
		t.Errorf("header: got %+v", out)
	}
	if out.OriginX != -48 || out.OriginZ != 64 {
		t.Errorf("origin: got (%d,%d)", out.OriginX, out.OriginZ)
	}
	if len(out.Vertices) != 4 || out.Vertices[2] != in.Vertices[2] || out.UVs[1] != in.UVs[1] {
		t.Errorf("geometry: got %v / %v", out.Vertices, out.UVs)
	}
	if len(out.Indices) != len(in.Indices) || out.Indices[6] != 300 {
		t.Errorf("indices: got %v", out.Indices)
	}
}

func TestRemovedFrameHasNoGeometry(t *testing.T) {
	in := &MeshFrame{Seq: 2, ChunkX: 1, Kind: FrameRemoved}
	var out MeshFrame
	if err := out.Unmarshal(in.Marshal()); err != nil {
		t.Fatal(err)
	}
	if out.Kind != FrameRemoved || out.Vertices != nil || out.Indices != nil {
		t.Errorf("removed frame: got %+v", out)
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	b := (&MeshFrame{Seq: 9, ChunkZ: -1}).Marshal()
	b = protowire.AppendTag(b, 42, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))
	var out MeshFrame
	if err := out.Unmarshal(b); err != nil {
		t.Fatalf("unknown field: %v", err)
	}
	if out.Seq != 9 || out.ChunkZ != -1 {
		t.Errorf("got %+v", out)
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	good := (&MeshFrame{Vertices: []mgl32.Vec3{{1, 2, 3}}}).Marshal()

	bad := protowire.AppendTag(nil, fieldVertices, protowire.BytesType)
	bad = protowire.AppendBytes(bad, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	mismatched := (&MeshFrame{
		Vertices: []mgl32.Vec3{{1, 2, 3}, {4, 5, 6}},
		Normals:  []mgl32.Vec3{{0, 1, 0}},
	}).Marshal()

	cases := map[string][]byte{
		"truncated":          good[:len(good)-2],
		"two floats":         bad,
		"normals mismatched": mismatched,
	}
	for name, data := range cases {
		var out MeshFrame
		if err := out.Unmarshal(data); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: got %v, want ErrMalformed", name, err)
		}
	}
}
