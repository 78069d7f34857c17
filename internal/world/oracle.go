package world

import "voxelmesh/internal/voxel"

// TerrainOracle answers solidity questions about the unedited world in world coordinates.
// ColumnHeight must bound the column: HasSolid is false for every y >= ColumnHeight(x, z).
type TerrainOracle interface {
	HasSolid(p voxel.Pos) bool
	ColumnHeight(x, z int) int
}

// MaterialOracle is optionally implemented by oracles that know what a solid cell is made of.
type MaterialOracle interface {
	MaterialAt(p voxel.Pos) (voxel.DataID, voxel.BiomeID)
}

// materialAt falls back to stone for oracles without material information.
func materialAt(o TerrainOracle, p voxel.Pos) (voxel.DataID, voxel.BiomeID) {
	if m, ok := o.(MaterialOracle); ok {
		return m.MaterialAt(p)
	}
	return voxel.Stone, voxel.NoBiome
}
