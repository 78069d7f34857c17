package meshing

import (
	"voxelmesh/internal/voxel"

	"github.com/go-gl/mathgl/mgl32"
)

// Unit-cube corners of each face, wound counter-clockwise seen from outside the cube.
// Positioning scales them by the quad extent and moves them to the quad origin.
var faceCorners = [voxel.NumFaces][4]mgl32.Vec3{
	voxel.FacePosX: {{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	voxel.FacePosY: {{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}},
	voxel.FacePosZ: {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
	voxel.FaceNegX: {{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	voxel.FaceNegY: {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	voxel.FaceNegZ: {{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
}

var faceNormals = [voxel.NumFaces]mgl32.Vec3{
	voxel.FacePosX: {1, 0, 0},
	voxel.FacePosY: {0, 1, 0},
	voxel.FacePosZ: {0, 0, 1},
	voxel.FaceNegX: {-1, 0, 0},
	voxel.FaceNegY: {0, -1, 0},
	voxel.FaceNegZ: {0, 0, -1},
}

// faceUVs holds the unit texture coordinates of each corner: the corner's slice-space X and Y.
// Positioning multiplies them by the quad extent so textures tile once per voxel.
var faceUVs [voxel.NumFaces][4]mgl32.Vec2

func init() {
	for _, f := range voxel.Faces {
		for i, c := range faceCorners[f] {
			p := voxel.Pos{X: int(c.X()), Y: int(c.Y()), Z: int(c.Z())}
			s := ToSlice(f.Axis(), p)
			faceUVs[f][i] = mgl32.Vec2{float32(s.X), float32(s.Y)}
		}
	}
}

func posVec(p voxel.Pos) mgl32.Vec3 {
	return mgl32.Vec3{float32(p.X), float32(p.Y), float32(p.Z)}
}

// placeCorner scales a template corner by the quad extent and moves it to the quad origin.
func placeCorner(corner, scale, origin mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		corner.X()*scale.X() + origin.X(),
		corner.Y()*scale.Y() + origin.Y(),
		corner.Z()*scale.Z() + origin.Z(),
	}
}
