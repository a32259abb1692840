package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// MaxLogoBytes bounds an uploaded logo before decoding.
const MaxLogoBytes = 2 << 20

// DecodeLogo decodes a PNG or JPEG overlay image.
func DecodeLogo(b []byte) (image.Image, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: logo is empty", ErrInvalidStyle)
	}
	if len(b) > MaxLogoBytes {
		return nil, fmt.Errorf("%w: logo exceeds %d bytes", ErrInvalidStyle, MaxLogoBytes)
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: decode logo: %v", ErrInvalidStyle, err)
	}
	return img, nil
}
