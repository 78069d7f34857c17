package world

import (
	"math"

	"voxelmesh/internal/voxel"
)

// Generator is a noise heightmap terrain oracle.
type Generator struct {
	seed        int64
	scale       float64
	baseHeight  int
	amp         float64
	octaves     int
	persistence float64
	lacunarity  float64
	worldHeight int
}

// NewGenerator creates a generator with default settings.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		seed:        seed,
		scale:       1.0 / 64.0,
		baseHeight:  32,
		amp:         32,
		octaves:     4,
		persistence: 0.5,
		lacunarity:  2.0,
		worldHeight: 256,
	}
}

// WithShape overrides the base height, amplitude and vertical limit.
func (g *Generator) WithShape(baseHeight int, amp float64, worldHeight int) *Generator {
	g.baseHeight = baseHeight
	g.amp = amp
	g.worldHeight = worldHeight
	return g
}

// HeightAt computes the Y of the topmost solid cell at world X,Z.
func (g *Generator) HeightAt(worldX, worldZ int) int {
	x := float64(worldX) * g.scale
	z := float64(worldZ) * g.scale
	n := octaveNoise2D(x, z, g.seed, g.octaves, g.persistence, g.lacunarity)
	height := float64(g.baseHeight) + n*g.amp
	if height < 0 {
		height = 0
	}
	return min(int(math.Floor(height)), g.worldHeight-1)
}

// ColumnHeight returns the number of solid cells in the column, so y < ColumnHeight is solid.
func (g *Generator) ColumnHeight(x, z int) int {
	return g.HeightAt(x, z) + 1
}

// HasSolid implements TerrainOracle.
func (g *Generator) HasSolid(p voxel.Pos) bool {
	if p.Y < 0 {
		return true
	}
	return p.Y < g.ColumnHeight(p.X, p.Z)
}

// MaterialAt implements MaterialOracle using the column's biome.
func (g *Generator) MaterialAt(p voxel.Pos) (voxel.DataID, voxel.BiomeID) {
	b := BiomeForCoords(p.X, p.Z, g.seed)
	depth := g.HeightAt(p.X, p.Z) - p.Y
	if depth < 0 {
		return voxel.Air, b.ID
	}
	return b.Material(depth), b.ID
}
