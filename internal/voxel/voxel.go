// Package voxel holds the persistent per-cell records of a chunk and the sparse grid that stores them.
package voxel

// DataID is the material type of a voxel.
type DataID uint16

const (
	Air DataID = iota
	Stone
	Dirt
	Grass
)

// BiomeID tags a voxel with the biome it was generated in.
type BiomeID int16

// NoBiome marks voxels created by edits or stubs.
const NoBiome BiomeID = -1

// QuadRef is a generation-checked handle to a slot in a chunk's quad pool.
// A reference stays valid only while the slot has not been recycled since the reference was taken.
type QuadRef struct {
	Index int32
	Gen   uint32
}

// NoQuad means the face has no visible quad.
var NoQuad = QuadRef{Index: -1}

// Valid reports whether r points at a slot at all. It says nothing about staleness.
func (r QuadRef) Valid() bool { return r.Index >= 0 }

// Voxel is the record kept for a cell near the exposed surface.
//
// For a solid voxel Exposed counts the faces holding a quad. For a tracked air voxel it counts the
// solid neighbors. A record whose count drops to zero carries no information and can be evicted.
type Voxel struct {
	Data     DataID
	Biome    BiomeID
	FaceQuad [NumFaces]QuadRef
	Exposed  int
}

// New returns a voxel with no faces.
func New(data DataID, biome BiomeID) *Voxel {
	v := &Voxel{Data: data, Biome: biome}
	for i := range v.FaceQuad {
		v.FaceQuad[i] = NoQuad
	}
	return v
}

// Solid reports whether the voxel is not air.
func (v *Voxel) Solid() bool { return v.Data != Air }

// HasFace reports whether face f currently holds a quad.
func (v *Voxel) HasFace(f Face) bool { return v.FaceQuad[f].Valid() }

// SetFace records a quad for face f. Setting a face that had none counts it as newly exposed.
func (v *Voxel) SetFace(f Face, ref QuadRef) {
	if !v.FaceQuad[f].Valid() {
		v.Exposed++
	}
	v.FaceQuad[f] = ref
}

// ReplaceFace points an already visible face at another quad without touching the exposed count.
// It is used when rectangles are merged or split and cells change owner.
func (v *Voxel) ReplaceFace(f Face, ref QuadRef) {
	v.FaceQuad[f] = ref
}

// ClearFace drops the quad of face f, if any, and decrements the exposed count.
func (v *Voxel) ClearFace(f Face) {
	if v.FaceQuad[f].Valid() {
		v.FaceQuad[f] = NoQuad
		v.Exposed--
	}
}

// FaceCount returns the number of faces holding a quad.
func (v *Voxel) FaceCount() int {
	n := 0
	for _, r := range v.FaceQuad {
		if r.Valid() {
			n++
		}
	}
	return n
}

// Unexpose decrements the exposed count of an air record, never below zero.
func (v *Voxel) Unexpose() {
	if v.Exposed > 0 {
		v.Exposed--
	}
}
