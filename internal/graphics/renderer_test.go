package graphics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"voxelmesh/internal/meshsink"
)

func TestInterleave(t *testing.T) {
	frame := &meshsink.MeshFrame{
		Vertices: []mgl32.Vec3{{1, 2, 3}, {4, 5, 6}},
		Normals:  []mgl32.Vec3{{0, 1, 0}, {0, 1, 0}},
		UVs:      []mgl32.Vec2{{0.5, 1}},
	}
	got := Interleave(frame)
	want := []float32{1, 2, 3, 0, 1, 0, 0.5, 1, 4, 5, 6, 0, 1, 0, 0, 0}
	if len(got) != len(want) {
		t.Fatalf("Interleave: got %d floats, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("float %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBoundsIgnoresUnreferencedVertices(t *testing.T) {
	frame := &meshsink.MeshFrame{
		OriginX:  16,
		OriginZ:  -16,
		Vertices: []mgl32.Vec3{{0, 0, 0}, {0, 0, 0}, {1, 4, 2}, {3, 5, 1}, {9, 9, 9}},
		Indices:  []uint32{2, 3, 2},
	}
	lo, hi := Bounds(frame)
	if lo != (mgl32.Vec3{17, 4, -15}) || hi != (mgl32.Vec3{19, 5, -14}) {
		t.Errorf("bounds: got %v..%v", lo, hi)
	}

	empty := &meshsink.MeshFrame{OriginX: 4}
	if lo, hi := Bounds(empty); lo != hi || lo.X() != 4 {
		t.Errorf("empty bounds: got %v..%v", lo, hi)
	}
}
