package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"io"

	svg "github.com/ajstarks/svgo"
)

func drawVector(w io.Writer, g Grid, l Layout, s Style) error {
	doc := svg.New(w)
	doc.Start(l.Canvas, l.Canvas)
	doc.Rect(0, 0, l.Canvas, l.Canvas, "fill:"+Hex(s.Background))

	doc.Gstyle("fill:" + Hex(s.Foreground))
	n := g.Size()
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if !g.Dark(row, col) {
				continue
			}
			cell := l.Cell(row, col)
			size := cell.Dx()
			switch shapeFor(ZoneOf(row, col, n), s) {
			case shapeCircle:
				doc.Circle(cell.Min.X+size/2, cell.Min.Y+size/2, size/2)
			case shapeRounded:
				r := size / 4
				doc.Roundrect(cell.Min.X, cell.Min.Y, size, size, r, r)
			default:
				doc.Rect(cell.Min.X, cell.Min.Y, size, size)
			}
		}
	}
	doc.Gend()

	if logo := placeLogo(l, s); logo != nil {
		p := logo.patch
		doc.Rect(p.Min.X, p.Min.Y, p.Dx(), p.Dy(), "fill:"+Hex(s.Background))

		var raw bytes.Buffer
		if err := png.Encode(&raw, logo.img); err != nil {
			return fmt.Errorf("encode logo: %w", err)
		}
		href := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw.Bytes())
		d := logo.dst
		if logo.alpha < 0xff {
			doc.Image(d.Min.X, d.Min.Y, d.Dx(), d.Dy(), href, fmt.Sprintf("opacity:%.3f", float64(logo.alpha)/255))
		} else {
			doc.Image(d.Min.X, d.Min.Y, d.Dx(), d.Dy(), href)
		}
	}

	doc.End()
	return nil
}
