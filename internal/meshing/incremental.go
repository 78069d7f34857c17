package meshing

import (
	"fmt"

	"voxelmesh/internal/voxel"
)

// Incremental face operations used by the editor. Both keep every voxel's FaceQuad entry pointing at
// the rectangle that covers it and keep rectangles of one plane disjoint.

// RemoveFace takes face f of the voxel at p out of its rectangle. If the rectangle is the result of
// AddFace at this cell and nothing has touched it since, the rectangles it was merged from come back.
// Otherwise it is split into up to four pieces around the cell and the original slot is reused for the
// first piece. It reports whether the voxel had a quad on that face.
func RemoveFace(grid *voxel.Grid, pool *QuadPool, p voxel.Pos, f voxel.Face) bool {
	v, ok := grid.Get(p)
	if !ok || !v.HasFace(f) {
		return false
	}
	ref := v.FaceQuad[f]
	q := pool.MustGet(ref)
	axis := f.Axis()
	s := ToSlice(axis, p)
	key := faceCell{face: f, cell: s}

	if e, ok := pool.takeEdit(key); ok && e.merged && e.refs[0] == ref && q.Rect() == e.whole {
		v.ClearFace(f)
		pool.Reshape(ref, e.parts[0])
		for _, r := range e.parts[1:] {
			nref := pool.Allocate(f, SlicePos{X: r.X, Y: r.Y, Offset: s.Offset}, r.W, r.H)
			pool.Position(nref)
			reassign(grid, f, s.Offset, r, nref)
		}
		return true
	}

	whole := q.Rect()
	pieces := SplitRect(whole, s.X-q.Origin.X, s.Y-q.Origin.Y)

	v.ClearFace(f)
	if len(pieces) == 0 {
		pool.Recycle(ref)
		return true
	}

	// Cells of the first piece keep their reference.
	pool.Reshape(ref, pieces[0])
	refs := []voxel.QuadRef{ref}
	for _, r := range pieces[1:] {
		nref := pool.Allocate(f, SlicePos{X: r.X, Y: r.Y, Offset: s.Offset}, r.W, r.H)
		pool.Position(nref)
		reassign(grid, f, s.Offset, r, nref)
		refs = append(refs, nref)
	}
	pool.putEdit(key, faceEdit{whole: whole, parts: pieces, refs: refs})
	return true
}

// AddFace gives face f of the voxel at p a quad. If RemoveFace split a rectangle at this cell and the
// pieces are untouched, they are joined back into that rectangle. Otherwise, of the rectangles sharing
// an edge with the cell on the same plane, the combination that forms the largest rectangle together
// with the cell is merged into one quad; with no such combination a new 1x1 quad is allocated.
func AddFace(grid *voxel.Grid, pool *QuadPool, p voxel.Pos, f voxel.Face) voxel.QuadRef {
	v, ok := grid.Get(p)
	if !ok {
		panic(fmt.Sprintf("meshing: add face %v at %v without a voxel record", f, p))
	}
	if v.HasFace(f) {
		return v.FaceQuad[f]
	}

	axis := f.Axis()
	s := ToSlice(axis, p)
	cell := Rect{X: s.X, Y: s.Y, W: 1, H: 1}
	key := faceCell{face: f, cell: s}

	if e, ok := pool.takeEdit(key); ok && !e.merged && pool.holds(e) {
		keep := e.refs[0]
		for i, ref := range e.refs[1:] {
			pool.Recycle(ref)
			reassign(grid, f, s.Offset, e.parts[i+1], keep)
		}
		pool.Reshape(keep, e.whole)
		v.SetFace(f, keep)
		return keep
	}

	refs, rects := adjacentQuads(grid, pool, f, s)
	best, bestRect := 0, cell
	for mask := 1; mask < 1<<len(refs); mask++ {
		union, area := cell, 1
		for i := range refs {
			if mask&(1<<i) != 0 {
				union = union.Union(rects[i])
				area += rects[i].Area()
			}
		}
		if area == union.Area() && area > bestRect.Area() {
			best, bestRect = mask, union
		}
	}

	if best == 0 {
		ref := pool.Allocate(f, s, 1, 1)
		pool.Position(ref)
		v.SetFace(f, ref)
		return ref
	}

	keep := voxel.NoQuad
	var parts []Rect
	for i, ref := range refs {
		if best&(1<<i) == 0 {
			continue
		}
		parts = append(parts, rects[i])
		if !keep.Valid() {
			keep = ref
			continue
		}
		pool.Recycle(ref)
		reassign(grid, f, s.Offset, rects[i], keep)
	}
	pool.Reshape(keep, bestRect)
	v.SetFace(f, keep)
	pool.putEdit(key, faceEdit{merged: true, whole: bestRect, parts: parts, refs: []voxel.QuadRef{keep}})
	return keep
}

// maxFaceEdits bounds a pool's edit log; the log is dropped when it fills up.
const maxFaceEdits = 4096

type faceCell struct {
	face voxel.Face
	cell SlicePos
}

// faceEdit records one RemoveFace split or AddFace merge at a cell. For a split, parts are the pieces
// left around the cell and refs their quads. For a merge, parts are the rectangles that were joined,
// the first of which was held by refs[0], the surviving quad.
type faceEdit struct {
	merged bool
	whole  Rect
	parts  []Rect
	refs   []voxel.QuadRef
}

func (p *QuadPool) putEdit(k faceCell, e faceEdit) {
	if p.edits == nil || len(p.edits) >= maxFaceEdits {
		p.edits = make(map[faceCell]faceEdit)
	}
	p.edits[k] = e
}

// takeEdit removes and returns the entry for k.
func (p *QuadPool) takeEdit(k faceCell) (faceEdit, bool) {
	e, ok := p.edits[k]
	if ok {
		delete(p.edits, k)
	}
	return e, ok
}

// holds reports whether every piece of a split is still live and unchanged.
func (p *QuadPool) holds(e faceEdit) bool {
	for i, ref := range e.refs {
		q, ok := p.Get(ref)
		if !ok || q.Rect() != e.parts[i] {
			return false
		}
	}
	return true
}

// adjacentQuads collects the distinct quads of face f touching cell s from below, left, right and
// above, in that order.
func adjacentQuads(grid *voxel.Grid, pool *QuadPool, f voxel.Face, s SlicePos) ([]voxel.QuadRef, []Rect) {
	steps := [4][2]int{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
	refs := make([]voxel.QuadRef, 0, 4)
	rects := make([]Rect, 0, 4)
	for _, d := range steps {
		n := SlicePos{X: s.X + d[0], Y: s.Y + d[1], Offset: s.Offset}.Local(f.Axis())
		if !grid.InFootprint(n) {
			continue
		}
		v, ok := grid.Get(n)
		if !ok || !v.HasFace(f) {
			continue
		}
		ref := v.FaceQuad[f]
		dup := false
		for _, r := range refs {
			if r == ref {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		refs = append(refs, ref)
		rects = append(rects, pool.MustGet(ref).Rect())
	}
	return refs, rects
}

func reassign(grid *voxel.Grid, f voxel.Face, offset int, r Rect, ref voxel.QuadRef) {
	r.Cells(func(x, y int) {
		p := SlicePos{X: x, Y: y, Offset: offset}.Local(f.Axis())
		v, ok := grid.Get(p)
		if !ok || !v.HasFace(f) {
			panic(fmt.Sprintf("meshing: rectangle cell %v has no %v face", p, f))
		}
		v.ReplaceFace(f, ref)
	})
}
