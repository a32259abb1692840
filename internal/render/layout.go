package render

import "image"

const minModulePx = 2

// Layout is the pixel geometry of a rendered matrix.
type Layout struct {
	Modules   int
	ModulePx  int
	QuietZone int
	Canvas    int
}

// NewLayout sizes modules to floor(size/n) pixels (never below 2) and
// surrounds the matrix with quietZone modules on every side.
func NewLayout(n, size, quietZone int) Layout {
	px := 0
	if n > 0 {
		px = size / n
	}
	if px < minModulePx {
		px = minModulePx
	}
	return Layout{
		Modules:   n,
		ModulePx:  px,
		QuietZone: quietZone,
		Canvas:    (n + 2*quietZone) * px,
	}
}

// Cell is the pixel rectangle of the module at row, col.
func (l Layout) Cell(row, col int) image.Rectangle {
	x := (l.QuietZone + col) * l.ModulePx
	y := (l.QuietZone + row) * l.ModulePx
	return image.Rect(x, y, x+l.ModulePx, y+l.ModulePx)
}

// LogoArea is the centered square reserved for a logo covering percent of
// the canvas edge. Empty when percent is not positive.
func (l Layout) LogoArea(percent int) image.Rectangle {
	if percent <= 0 {
		return image.Rectangle{}
	}
	edge := l.Canvas * percent / 100
	off := (l.Canvas - edge) / 2
	return image.Rect(off, off, off+edge, off+edge)
}

// Zone classifies a module position.
type Zone int

const (
	DataZone Zone = iota
	FinderZone
)

const finderEdge = 7

// ZoneOf reports FinderZone for positions inside the top-left, top-right
// or bottom-left 7x7 block of an n-module matrix.
func ZoneOf(row, col, n int) Zone {
	top := row < finderEdge
	left := col < finderEdge
	right := col >= n-finderEdge
	bottom := row >= n-finderEdge
	if (top && left) || (top && right) || (bottom && left) {
		return FinderZone
	}
	return DataZone
}

// shape is the primitive drawn for one dark module.
type shape int

const (
	shapeSquare shape = iota
	shapeCircle
	shapeRounded
)

// shapeFor picks the module primitive. Finder modules are shaped one at a
// time, so circle corners come out as rounded squares and dot corners as
// discs rather than merged rings.
func shapeFor(z Zone, s Style) shape {
	if z == FinderZone {
		switch s.CornerStyle {
		case CornerCircle:
			return shapeRounded
		case CornerDot:
			return shapeCircle
		}
		return shapeSquare
	}
	switch s.DotStyle {
	case DotCircle:
		return shapeCircle
	case DotRounded:
		return shapeRounded
	}
	return shapeSquare
}
