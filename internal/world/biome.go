package world

import (
	"math"

	"voxelmesh/internal/voxel"
)

// Biome decides what the surface of a column is made of.
type Biome struct {
	ID         voxel.BiomeID
	Name       string
	TopData    voxel.DataID
	FillerData voxel.DataID
	// FillerDepth is how many cells below the top use FillerData before stone.
	FillerDepth int
}

var (
	BiomeOcean = &Biome{
		ID:          0,
		Name:        "Ocean",
		TopData:     voxel.Dirt,
		FillerData:  voxel.Dirt,
		FillerDepth: 2,
	}
	BiomePlains = &Biome{
		ID:          1,
		Name:        "Plains",
		TopData:     voxel.Grass,
		FillerData:  voxel.Dirt,
		FillerDepth: 3,
	}
	BiomeHills = &Biome{
		ID:          3,
		Name:        "Extreme Hills",
		TopData:     voxel.Grass,
		FillerData:  voxel.Dirt,
		FillerDepth: 1,
	}
	BiomeForest = &Biome{
		ID:          4,
		Name:        "Forest",
		TopData:     voxel.Grass,
		FillerData:  voxel.Dirt,
		FillerDepth: 4,
	}
	BiomeMountains = &Biome{
		ID:          5,
		Name:        "Mountains",
		TopData:     voxel.Stone,
		FillerData:  voxel.Stone,
		FillerDepth: 0,
	}
)

var Biomes = []*Biome{BiomeOcean, BiomePlains, BiomeHills, BiomeForest, BiomeMountains}

// BiomeForCoords returns a deterministic biome for world column (x, z).
func BiomeForCoords(x, z int, seed int64) *Biome {
	const scale = 1.0 / 400.0
	fx, fz := float64(x), float64(z)
	val := octaveNoise2D(fx*scale, fz*scale, seed, 2, 0.5, 2.0)

	switch {
	case val < 0.35:
		return BiomeOcean
	case val < 0.6:
		if math.Sin(fx*0.01) > 0 {
			return BiomePlains
		}
		return BiomeForest
	case val < 0.8:
		return BiomeHills
	default:
		return BiomeMountains
	}
}

// Material returns the data of the cell depth cells below the column surface (0 is the top cell).
func (b *Biome) Material(depth int) voxel.DataID {
	switch {
	case depth == 0:
		return b.TopData
	case depth <= b.FillerDepth:
		return b.FillerData
	default:
		return voxel.Stone
	}
}
