//go:build !windows

package capture

import (
	"image"

	"github.com/vova616/screenshot"
)

// grabRegion captures the given screen rectangle.
func grabRegion(r image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, &Error{Op: "capture rect", Err: err}
	}
	return img, nil
}

// DisplayBounds returns the visible bounds of the primary display.
func DisplayBounds() (image.Rectangle, error) {
	r, err := screenshot.ScreenRect()
	if err != nil {
		return image.Rectangle{}, &Error{Op: "screen rect", Err: err}
	}
	return r, nil
}
