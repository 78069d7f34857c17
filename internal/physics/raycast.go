package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelmesh/internal/profiling"
	"voxelmesh/internal/voxel"
)

// SolidFunc reports whether the cell at p is solid.
type SolidFunc func(p voxel.Pos) (bool, error)

// RaycastResult stores the result of a raycast operation
type RaycastResult struct {
	HitPosition voxel.Pos
	// AdjacentPosition is the last empty cell before the hit; placing there puts a voxel on the hit face.
	AdjacentPosition voxel.Pos
	Distance         float32
	Hit              bool
}

const stepSize = float32(0.02)

// Raycast marches from start along direction and returns the first solid cell between minDist and
// maxDist. Cell (x,y,z) spans [x,x+1) on every axis. An error from solid stops the march.
func Raycast(start, direction mgl32.Vec3, minDist, maxDist float32, solid SolidFunc) (RaycastResult, error) {
	defer profiling.Track("physics.Raycast")()
	direction = direction.Normalize()
	steps := int(maxDist / stepSize)

	lastEmpty := cellAt(start)
	result := RaycastResult{}
	checked := lastEmpty
	first := true

	for i := 0; i <= steps; i++ {
		dist := float32(i) * stepSize
		if dist < minDist {
			continue
		}
		cell := cellAt(start.Add(direction.Mul(dist)))
		if !first && cell == checked {
			continue
		}
		first = false
		checked = cell

		hit, err := solid(cell)
		if err != nil {
			return result, err
		}
		if hit {
			result.HitPosition = cell
			result.AdjacentPosition = lastEmpty
			result.Distance = dist
			result.Hit = true
			return result, nil
		}
		lastEmpty = cell
	}
	return result, nil
}

func cellAt(p mgl32.Vec3) voxel.Pos {
	return voxel.Pos{
		X: int(math.Floor(float64(p.X()))),
		Y: int(math.Floor(float64(p.Y()))),
		Z: int(math.Floor(float64(p.Z()))),
	}
}
