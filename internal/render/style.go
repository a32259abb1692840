package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

var ErrInvalidStyle = errors.New("invalid style")

// Format is the output encoding of a rendered code.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
)

// ParseFormat accepts png, jpeg (or jpg) and svg; empty selects png.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", fmt.Errorf("%w: unsupported format %q", ErrInvalidStyle, s)
}

// Extension is the file extension used for stored artifacts.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// DotStyle shapes dark modules in the data zone.
type DotStyle string

const (
	DotSquare  DotStyle = "square"
	DotCircle  DotStyle = "circle"
	DotRounded DotStyle = "rounded"
)

func ParseDotStyle(s string) (DotStyle, error) {
	switch DotStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", DotSquare:
		return DotSquare, nil
	case DotCircle:
		return DotCircle, nil
	case DotRounded:
		return DotRounded, nil
	}
	return "", fmt.Errorf("%w: unsupported dot style %q", ErrInvalidStyle, s)
}

// CornerStyle shapes dark modules inside the finder blocks.
type CornerStyle string

const (
	CornerSquare CornerStyle = "square"
	CornerCircle CornerStyle = "circle"
	CornerDot    CornerStyle = "dot"
)

func ParseCornerStyle(s string) (CornerStyle, error) {
	switch CornerStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", CornerSquare:
		return CornerSquare, nil
	case CornerCircle:
		return CornerCircle, nil
	case CornerDot:
		return CornerDot, nil
	}
	return "", fmt.Errorf("%w: unsupported corner style %q", ErrInvalidStyle, s)
}

// ParseColor reads "#rgb" or "#rrggbb"; the leading '#' is optional.
func ParseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: bad color %q", ErrInvalidStyle, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: bad color %q", ErrInvalidStyle, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Hex formats c as lowercase #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

const (
	DefaultQuietZone       = 4
	DefaultLogoSizePercent = 20
)

// Style describes how a matrix is turned into an image.
type Style struct {
	Size        int
	Foreground  color.RGBA
	Background  color.RGBA
	Format      Format
	DotStyle    DotStyle
	CornerStyle CornerStyle
	QuietZone   int

	// Logo is optional. LogoSizePercent is the logo edge as a share of the
	// canvas edge; LogoOpacity of zero means fully opaque.
	Logo            image.Image
	LogoSizePercent int
	LogoOpacity     float64
}

// DefaultStyle is black on white, square modules, png.
func DefaultStyle(size int) Style {
	return Style{
		Size:            size,
		Foreground:      color.RGBA{A: 0xff},
		Background:      color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Format:          FormatPNG,
		DotStyle:        DotSquare,
		CornerStyle:     CornerSquare,
		QuietZone:       DefaultQuietZone,
		LogoSizePercent: DefaultLogoSizePercent,
	}
}

// normalize checks s and returns it with format and shape names in their
// canonical form.
func (s Style) normalize() (Style, error) {
	if s.Size <= 0 {
		return s, fmt.Errorf("%w: size must be positive", ErrInvalidStyle)
	}
	if s.QuietZone < 0 {
		return s, fmt.Errorf("%w: quiet zone must not be negative", ErrInvalidStyle)
	}
	var err error
	if s.Format, err = ParseFormat(string(s.Format)); err != nil {
		return s, err
	}
	if s.DotStyle, err = ParseDotStyle(string(s.DotStyle)); err != nil {
		return s, err
	}
	if s.CornerStyle, err = ParseCornerStyle(string(s.CornerStyle)); err != nil {
		return s, err
	}
	if s.LogoOpacity < 0 || s.LogoOpacity > 1 {
		return s, fmt.Errorf("%w: logo opacity outside [0,1]", ErrInvalidStyle)
	}
	if s.LogoSizePercent < 0 || s.LogoSizePercent > 40 {
		return s, fmt.Errorf("%w: logo size outside 0..40%%", ErrInvalidStyle)
	}
	return s, nil
}
