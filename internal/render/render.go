// Package render turns a module matrix and a style into PNG, JPEG or SVG
// bytes. Rendering is a pure transform: the same matrix and style always
// produce the same bytes.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Grid is the read side of a QR matrix.
type Grid interface {
	Size() int
	Dark(row, col int) bool
}

// Output is an encoded image.
type Output struct {
	Bytes       []byte
	ContentType string
	Extension   string
	Width       int
}

// Render draws g with style s.
func Render(g Grid, s Style) (*Output, error) {
	if g == nil || g.Size() == 0 {
		return nil, errors.New("render: empty matrix")
	}
	s, err := s.normalize()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	l := NewLayout(g.Size(), s.Size, s.QuietZone)

	var buf bytes.Buffer
	switch s.Format {
	case FormatSVG:
		err = drawVector(&buf, g, l, s)
	default:
		err = drawRaster(&buf, g, l, s)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", s.Format, err)
	}
	return &Output{
		Bytes:       buf.Bytes(),
		ContentType: s.Format.ContentType(),
		Extension:   s.Format.Extension(),
		Width:       l.Canvas,
	}, nil
}

// logoPlacement is the scaled logo and where it lands on the canvas.
type logoPlacement struct {
	patch image.Rectangle
	dst   image.Rectangle
	img   *image.RGBA
	alpha uint8
}

// placeLogo fits the logo inside the reserved area keeping its aspect
// ratio. The patch behind it extends one module past the area.
func placeLogo(l Layout, s Style) *logoPlacement {
	if s.Logo == nil {
		return nil
	}
	pct := s.LogoSizePercent
	if pct == 0 {
		pct = DefaultLogoSizePercent
	}
	area := l.LogoArea(pct)
	src := s.Logo.Bounds()
	if area.Empty() || src.Empty() {
		return nil
	}

	w, h := area.Dx(), area.Dy()
	if src.Dx() > src.Dy() {
		h = max(1, w*src.Dy()/src.Dx())
	} else if src.Dy() > src.Dx() {
		w = max(1, h*src.Dx()/src.Dy())
	}
	x := area.Min.X + (area.Dx()-w)/2
	y := area.Min.Y + (area.Dy()-h)/2

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), s.Logo, src, xdraw.Over, nil)

	op := s.LogoOpacity
	if op == 0 {
		op = 1
	}
	return &logoPlacement{
		patch: area.Inset(-l.ModulePx),
		dst:   image.Rect(x, y, x+w, y+h),
		img:   scaled,
		alpha: uint8(math.Round(op * 255)),
	}
}

func (p *logoPlacement) composite(dst xdraw.Image) {
	mask := image.NewUniform(color.Alpha{A: p.alpha})
	xdraw.DrawMask(dst, p.dst, p.img, image.Point{}, mask, image.Point{}, xdraw.Over)
}
