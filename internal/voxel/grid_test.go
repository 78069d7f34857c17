package voxel

import (
	"errors"
	"testing"
)

func TestFaceTables(t *testing.T) {
	for _, f := range Faces {
		o := f.Opposite()
		if o.Opposite() != f {
			t.Errorf("%v: opposite is not an involution", f)
		}
		if o.Axis() != f.Axis() || o.Positive() == f.Positive() {
			t.Errorf("%v: opposite %v has axis %d sign %d", f, o, o.Axis(), o.Sign())
		}
		if FaceFor(f.Axis(), f.Positive()) != f {
			t.Errorf("%v: FaceFor round trip failed", f)
		}
		p := Pos{X: 3, Y: 4, Z: 5}
		if p.Neighbor(f).Neighbor(o) != p {
			t.Errorf("%v: neighbor steps do not cancel", f)
		}
		if got := p.Neighbor(f).Component(f.Axis()) - p.Component(f.Axis()); got != f.Sign() {
			t.Errorf("%v: step along axis %d, want %d", f, got, f.Sign())
		}
	}
	if FacePosY.String() != "+Y" || FaceNegZ.String() != "-Z" {
		t.Errorf("face names: %v %v", FacePosY, FaceNegZ)
	}
}

func TestVoxelFaceCounting(t *testing.T) {
	v := New(Stone, NoBiome)
	if v.FaceCount() != 0 || v.Exposed != 0 {
		t.Fatalf("new voxel: %d faces, exposed %d", v.FaceCount(), v.Exposed)
	}
	v.SetFace(FacePosY, QuadRef{Index: 0, Gen: 1})
	v.SetFace(FacePosY, QuadRef{Index: 4, Gen: 1})
	v.SetFace(FaceNegX, QuadRef{Index: 1, Gen: 1})
	if v.Exposed != 2 || v.FaceCount() != 2 {
		t.Errorf("after SetFace: exposed %d, faces %d, want 2", v.Exposed, v.FaceCount())
	}
	v.ReplaceFace(FaceNegX, QuadRef{Index: 7, Gen: 3})
	if v.Exposed != 2 || v.FaceQuad[FaceNegX].Index != 7 {
		t.Errorf("ReplaceFace changed the count or missed the ref")
	}
	v.ClearFace(FacePosY)
	v.ClearFace(FacePosY)
	if v.Exposed != 1 || v.HasFace(FacePosY) {
		t.Errorf("after ClearFace: exposed %d", v.Exposed)
	}

	air := New(Air, NoBiome)
	air.Unexpose()
	if air.Exposed != 0 {
		t.Errorf("Unexpose went below zero: %d", air.Exposed)
	}
}

func TestGridPut(t *testing.T) {
	g := NewGrid(4, 4)
	p := Pos{X: 1, Y: 7, Z: 2}
	if err := g.Put(p, New(Stone, NoBiome)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := g.Put(p, New(Dirt, NoBiome)); !errors.Is(err, ErrOccupied) {
		t.Errorf("second put: got %v, want ErrOccupied", err)
	}
	if v, _ := g.Get(p); v.Data != Stone {
		t.Errorf("occupied put replaced the record")
	}
	if err := g.Put(Pos{X: 4, Y: 0, Z: 0}, New(Stone, NoBiome)); err == nil {
		t.Errorf("Expected put outside the footprint to fail")
	}
	if err := g.Put(Pos{X: 0, Y: -2, Z: 0}, New(Air, NoBiome)); err != nil {
		t.Fatalf("put below floor: %v", err)
	}
	if lo, hi := g.HeightBounds(); lo != -2 || hi != 8 {
		t.Errorf("height bounds: got [%d,%d), want [-2,8)", lo, hi)
	}
	g.Remove(p)
	if _, ok := g.Get(p); ok || g.Len() != 1 {
		t.Errorf("remove left %d records", g.Len())
	}
}

func TestGridPolicy(t *testing.T) {
	g := NewGrid(2, 3)
	g.SetColumnTop(1, 2, 5)
	if g.ColumnTop(1, 2) != 5 || g.ColumnTop(0, 2) != 0 {
		t.Fatalf("column tops: %v", g.ColumnTops())
	}
	cases := []struct {
		p    Pos
		want bool
	}{
		{Pos{X: 0, Y: -1, Z: 0}, true},
		{Pos{X: 0, Y: 0, Z: 0}, false},
		{Pos{X: 1, Y: 4, Z: 2}, true},
		{Pos{X: 1, Y: 5, Z: 2}, false},
	}
	for _, c := range cases {
		if got := g.DefaultSolid(c.p); got != c.want {
			t.Errorf("DefaultSolid(%v): got %v, want %v", c.p, got, c.want)
		}
		if got := g.Resolve(c.p); got != c.want {
			t.Errorf("Resolve(%v) without record: got %v, want %v", c.p, got, c.want)
		}
	}
	hole := Pos{X: 1, Y: 2, Z: 2}
	if err := g.Put(hole, New(Air, NoBiome)); err != nil {
		t.Fatal(err)
	}
	if g.Resolve(hole) {
		t.Errorf("Expected the record to override the policy")
	}
}

func TestGridStubAndEvict(t *testing.T) {
	g := NewGrid(2, 2)
	g.SetColumnTop(0, 0, 3)

	buried := Pos{X: 0, Y: 1, Z: 0}
	v, created := g.Stub(buried, Dirt)
	if !created || v.Data != Dirt || v.Biome != NoBiome {
		t.Fatalf("stub below top: created %v, %+v", created, v)
	}
	if again, created := g.Stub(buried, Stone); created || again != v {
		t.Errorf("Expected Stub to return the existing record")
	}
	if !g.Evictable(buried, v) {
		t.Errorf("Expected a faceless solid below the top to be evictable")
	}

	v.SetFace(FacePosY, QuadRef{Index: 0, Gen: 1})
	if g.EvictIfRedundant(buried, v) {
		t.Errorf("evicted a voxel with a visible face")
	}
	v.ClearFace(FacePosY)
	if !g.EvictIfRedundant(buried, v) {
		t.Errorf("Expected eviction once the face is gone")
	}

	above := Pos{X: 0, Y: 3, Z: 0}
	a, _ := g.Stub(above, Stone)
	if a.Solid() {
		t.Fatalf("stub at the column top should be air")
	}
	if !g.EvictIfRedundant(above, a) {
		t.Errorf("Expected an unexposed air stub to be evicted")
	}

	// A record that disagrees with the policy is information and stays.
	cave := Pos{X: 0, Y: 0, Z: 0}
	if err := g.Put(cave, New(Air, NoBiome)); err != nil {
		t.Fatal(err)
	}
	c, _ := g.Get(cave)
	if g.EvictIfRedundant(cave, c) {
		t.Errorf("evicted an air record below the column top")
	}
	pillar := Pos{X: 1, Y: 4, Z: 1}
	if err := g.Put(pillar, New(Stone, NoBiome)); err != nil {
		t.Fatal(err)
	}
	s, _ := g.Get(pillar)
	if g.EvictIfRedundant(pillar, s) {
		t.Errorf("evicted a solid record above the column top")
	}
	if g.Len() != 2 {
		t.Errorf("Expected 2 records left, got %d", g.Len())
	}
}
