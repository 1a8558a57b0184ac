package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/png"
)

// BobberDefaultPNG contains the raw PNG bytes of the built-in bobber
// template. It is used when the calibration file lists no reference images.
//
//go:embed bobber_default.png
var BobberDefaultPNG []byte

// BobberDefaultImage decodes the embedded PNG into an image.Image.
func BobberDefaultImage() (image.Image, error) {
	if len(BobberDefaultPNG) == 0 {
		return nil, fmt.Errorf("embedded bobber_default.png is empty")
	}
	img, err := png.Decode(bytes.NewReader(BobberDefaultPNG))
	if err != nil {
		return nil, err
	}
	return img, nil
}
