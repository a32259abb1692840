package render

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/fogleman/gg"
)

const jpegQuality = 92

func drawRaster(w io.Writer, g Grid, l Layout, s Style) error {
	canvas := image.NewRGBA(image.Rect(0, 0, l.Canvas, l.Canvas))
	dc := gg.NewContextForRGBA(canvas)

	dc.SetColor(s.Background)
	dc.Clear()

	dc.SetColor(s.Foreground)
	n := g.Size()
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if !g.Dark(row, col) {
				continue
			}
			addShape(dc, l.Cell(row, col), shapeFor(ZoneOf(row, col, n), s))
		}
	}
	dc.Fill()

	if logo := placeLogo(l, s); logo != nil {
		dc.SetColor(s.Background)
		p := logo.patch
		dc.DrawRectangle(float64(p.Min.X), float64(p.Min.Y), float64(p.Dx()), float64(p.Dy()))
		dc.Fill()
		logo.composite(canvas)
	}

	if s.Format == FormatJPEG {
		return jpeg.Encode(w, canvas, &jpeg.Options{Quality: jpegQuality})
	}
	return png.Encode(w, canvas)
}

// addShape appends one module to the current path; the caller fills once.
func addShape(dc *gg.Context, cell image.Rectangle, sh shape) {
	x, y := float64(cell.Min.X), float64(cell.Min.Y)
	size := float64(cell.Dx())
	switch sh {
	case shapeCircle:
		dc.DrawCircle(x+size/2, y+size/2, size/2)
	case shapeRounded:
		dc.DrawRoundedRectangle(x, y, size, size, size*0.25)
	default:
		dc.DrawRectangle(x, y, size, size)
	}
}
