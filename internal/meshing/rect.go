package meshing

// Rect is an axis-aligned rectangle in slice space. W and H are at least 1 for a live quad.
type Rect struct {
	X, Y, W, H int
}

// Area returns W*H.
func (r Rect) Area() int { return r.W * r.H }

// Contains reports whether cell (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Overlaps reports whether r and o share at least one cell.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Union returns the bounding rectangle of r and o.
func (r Rect) Union(o Rect) Rect {
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.X+r.W, o.X+o.W), max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Cells calls fn for every cell of r, row by row.
func (r Rect) Cells(fn func(x, y int)) {
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			fn(x, y)
		}
	}
}

// SplitRect removes cell (rx, ry), given relative to r's origin, and returns up to four disjoint
// rectangles covering the remaining W*H-1 cells, in the order top, bottom, left, right:
//
//	+-----------------+
//	|       top       |
//	+------+-+--------+
//	| left |x| right  |
//	+------+-+--------+
//	|     bottom      |
//	+-----------------+
//
// The cell must lie inside r.
func SplitRect(r Rect, rx, ry int) []Rect {
	if rx < 0 || rx >= r.W || ry < 0 || ry >= r.H {
		panic("meshing: split cell outside rectangle")
	}
	out := make([]Rect, 0, 4)
	if ry < r.H-1 {
		out = append(out, Rect{X: r.X, Y: r.Y + ry + 1, W: r.W, H: r.H - ry - 1})
	}
	if ry > 0 {
		out = append(out, Rect{X: r.X, Y: r.Y, W: r.W, H: ry})
	}
	if rx > 0 {
		out = append(out, Rect{X: r.X, Y: r.Y + ry, W: rx, H: 1})
	}
	if rx < r.W-1 {
		out = append(out, Rect{X: r.X + rx + 1, Y: r.Y + ry, W: r.W - rx - 1, H: 1})
	}
	return out
}
