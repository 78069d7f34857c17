package world

import (
	"context"

	"voxelmesh/internal/meshing"
	"voxelmesh/internal/voxel"
)

// populate fills grid with the surface records of the chunk whose local origin sits at origin.
//
// Column tops come from the oracle. Every cell up to the highest column around the footprint is
// classified: solid cells with an air neighbor and air cells with a solid neighbor are stored, the
// latter with their solid-neighbor count. Cells the column policy would misread are stored as well,
// so an enclosed cave below the top keeps its air and a sealed solid above it stays solid. Cells
// outside the footprint are resolved through outside.
func populate(ctx context.Context, grid *voxel.Grid, origin voxel.Pos, oracle TerrainOracle, outside meshing.Probe, worldHeight int) error {
	sizeX, sizeZ := grid.Size()

	top := 0
	for x := -1; x <= sizeX; x++ {
		for z := -1; z <= sizeZ; z++ {
			h := oracle.ColumnHeight(origin.X+x, origin.Z+z)
			if grid.InFootprint(voxel.Pos{X: x, Z: z}) {
				grid.SetColumnTop(x, z, h)
			}
			top = max(top, h)
		}
	}
	top = min(top, worldHeight-1)

	solidAt := func(p voxel.Pos) bool {
		switch {
		case p.Y < 0:
			return true
		case p.Y >= worldHeight:
			return false
		case grid.InFootprint(p):
			return oracle.HasSolid(p.Add(origin))
		}
		return outside(p)
	}

	for x := 0; x < sizeX; x++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for z := 0; z < sizeZ; z++ {
			for y := 0; y <= top; y++ {
				p := voxel.Pos{X: x, Y: y, Z: z}
				solid := solidAt(p)
				n := 0
				for _, f := range voxel.Faces {
					if solidAt(p.Neighbor(f)) {
						n++
					}
				}

				policy := grid.DefaultSolid(p)
				var v *voxel.Voxel
				switch {
				case solid && (n < voxel.NumFaces || !policy):
					v = voxel.New(materialAt(oracle, p.Add(origin)))
				case !solid && (n > 0 || policy):
					v = voxel.New(voxel.Air, voxel.NoBiome)
					v.Exposed = n
				default:
					continue
				}
				if err := grid.Put(p, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
