package physics_test

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"voxelmesh/internal/physics"
	"voxelmesh/internal/voxel"
)

type cells map[voxel.Pos]bool

func (c cells) solid(p voxel.Pos) (bool, error) { return c[p], nil }

func TestRaycast(t *testing.T) {
	w := cells{{X: 5, Y: 0, Z: 0}: true}
	start := mgl32.Vec3{0.5, 0.5, 0.5}
	dir := mgl32.Vec3{1, 0, 0}

	result, err := physics.Raycast(start, dir, 0.1, 10, w.solid)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Hit {
		t.Fatalf("Expected hit, got miss")
	}
	if result.HitPosition != (voxel.Pos{X: 5}) {
		t.Errorf("Expected hit at {5,0,0}, got %v", result.HitPosition)
	}
	if result.AdjacentPosition != (voxel.Pos{X: 4}) {
		t.Errorf("Expected adjacent at {4,0,0}, got %v", result.AdjacentPosition)
	}
	// The ray enters the cell at x=5.0.
	if result.Distance < 4.49 || result.Distance > 4.53 {
		t.Errorf("Expected distance 4.5, got %f", result.Distance)
	}

	if short, _ := physics.Raycast(start, dir, 0.1, 4, w.solid); short.Hit {
		t.Errorf("Expected miss due to maxDist, got hit at %v", short.HitPosition)
	}
	if up, _ := physics.Raycast(start, mgl32.Vec3{0, 1, 0}, 0.1, 10, w.solid); up.Hit {
		t.Errorf("Expected miss, got hit")
	}

	w[voxel.Pos{X: 2, Y: 2, Z: 2}] = true
	diag, _ := physics.Raycast(start, mgl32.Vec3{1, 1, 1}, 0.1, 10, w.solid)
	if !diag.Hit || diag.HitPosition != (voxel.Pos{X: 2, Y: 2, Z: 2}) {
		t.Errorf("Expected hit at {2,2,2}, got %+v", diag)
	}
}

func TestRaycastNegativeCoordinates(t *testing.T) {
	w := cells{{X: -3, Y: 4, Z: -1}: true}
	start := mgl32.Vec3{-2.5, 10.5, -0.5}
	dir := mgl32.Vec3{-1, -12, 0}
	result, err := physics.Raycast(start, dir, 0, 20, w.solid)
	if err != nil || !result.Hit || result.HitPosition != (voxel.Pos{X: -3, Y: 4, Z: -1}) {
		t.Fatalf("got %+v (%v)", result, err)
	}
	if result.AdjacentPosition.Y != 5 {
		t.Errorf("Expected the adjacent cell above the hit, got %v", result.AdjacentPosition)
	}
}

func TestRaycastStopsOnError(t *testing.T) {
	boom := errors.New("unloaded")
	_, err := physics.Raycast(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, 0, 5, func(voxel.Pos) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want the probe error", err)
	}
}

func BenchmarkRaycast(b *testing.B) {
	w := cells{}
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			w[voxel.Pos{X: x, Y: y, Z: 5}] = true
		}
	}
	start := mgl32.Vec3{0, 8, 0}
	dir := mgl32.Vec3{0, 0, 1}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = physics.Raycast(start, dir, 0.1, 10.0, w.solid)
	}
}
