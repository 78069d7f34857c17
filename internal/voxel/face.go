package voxel

// Pos is an integer cell position, either chunk-local or world-space depending on context.
type Pos struct {
	X, Y, Z int
}

// Add returns p offset by o.
func (p Pos) Add(o Pos) Pos {
	return Pos{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// Sub returns p - o.
func (p Pos) Sub(o Pos) Pos {
	return Pos{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// Neighbor returns the cell adjacent to p across face f.
func (p Pos) Neighbor(f Face) Pos {
	return p.Add(faceOffsets[f])
}

// Component returns the coordinate along axis (0=X, 1=Y, 2=Z).
func (p Pos) Component(axis int) int {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// Face identifies one of the six faces of a voxel.
// The first three point along +X, +Y, +Z and the last three along -X, -Y, -Z,
// so the opposite face is always three steps away.
type Face uint8

const (
	FacePosX Face = iota // east
	FacePosY             // top
	FacePosZ             // north
	FaceNegX             // west
	FaceNegY             // bottom
	FaceNegZ             // south

	NumFaces = 6
)

// Faces lists every face in id order. Loops that touch all six neighbors iterate this table.
var Faces = [NumFaces]Face{FacePosX, FacePosY, FacePosZ, FaceNegX, FaceNegY, FaceNegZ}

var faceOffsets = [NumFaces]Pos{
	{X: +1}, {Y: +1}, {Z: +1},
	{X: -1}, {Y: -1}, {Z: -1},
}

var faceNames = [NumFaces]string{"+X", "+Y", "+Z", "-X", "-Y", "-Z"}

// Axis returns the dominant axis of the face normal.
func (f Face) Axis() int { return int(f) % 3 }

// Positive reports whether the face normal points along the positive axis.
func (f Face) Positive() bool { return f < 3 }

// Opposite returns the face pointing the other way along the same axis.
func (f Face) Opposite() Face { return (f + 3) % NumFaces }

// Offset returns the unit step from a cell to its neighbor across f.
func (f Face) Offset() Pos { return faceOffsets[f] }

// Sign returns +1 or -1.
func (f Face) Sign() int {
	if f.Positive() {
		return 1
	}
	return -1
}

// FaceFor returns the face with the given axis and sign.
func FaceFor(axis int, positive bool) Face {
	if positive {
		return Face(axis)
	}
	return Face(axis + 3)
}

func (f Face) String() string {
	if int(f) < NumFaces {
		return faceNames[f]
	}
	return "?"
}
