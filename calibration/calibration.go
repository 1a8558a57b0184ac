// Package calibration loads the persisted capture region and bobber
// reference images. Calibration is produced by an external tool and consumed
// once at startup; anything malformed here is a fatal startup error, never a
// runtime retry case.
package calibration

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/soocke/wetfish-go/assets"
)

// Error marks an invalid region or an unloadable reference set. Sessions must
// not start when calibration fails.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("calibration: %s: %v", e.Reason, e.Err)
	}
	return "calibration: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Region is the axis-aligned screen rectangle the bobber is searched in.
// Immutable for the lifetime of a session.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the region to an image.Rectangle in screen coordinates.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Validate checks the region against the visible display bounds.
func (r Region) Validate(display image.Rectangle) error {
	if r.Width <= 0 || r.Height <= 0 {
		return &Error{Reason: fmt.Sprintf("region has no area: %dx%d", r.Width, r.Height)}
	}
	if !r.Rect().In(display) {
		return &Error{Reason: fmt.Sprintf("region %v outside display bounds %v", r.Rect(), display)}
	}
	return nil
}

// Reference is a named bobber template loaded from disk or the embedded
// fallback.
type Reference struct {
	Name  string
	Image image.Image
}

// Data is the persisted calibration payload.
type Data struct {
	Region         Region   `json:"region"`
	ReferencePaths []string `json:"reference_paths"`

	References []Reference `json:"-"`
}

// Load reads the calibration file, decodes every referenced template and
// validates the region against display. When no reference paths are listed
// the embedded default bobber template is used, so template-based detection
// stays available alongside the motion fallback.
func Load(path string, display image.Rectangle) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Reason: "cannot open calibration file", Err: err}
	}
	defer f.Close()

	var d Data
	if err := json.NewDecoder(f).Decode(&d); err != nil {
		return nil, &Error{Reason: "cannot parse calibration file", Err: err}
	}
	if err := d.Region.Validate(display); err != nil {
		return nil, err
	}

	for _, p := range d.ReferencePaths {
		img, err := decodeTemplate(p)
		if err != nil {
			return nil, &Error{Reason: "cannot load reference " + p, Err: err}
		}
		b := img.Bounds()
		if b.Dx() > d.Region.Width || b.Dy() > d.Region.Height {
			return nil, &Error{Reason: fmt.Sprintf("reference %s (%dx%d) larger than region (%dx%d)",
				p, b.Dx(), b.Dy(), d.Region.Width, d.Region.Height)}
		}
		d.References = append(d.References, Reference{Name: filepath.Base(p), Image: img})
	}

	if len(d.References) == 0 {
		img, err := assets.BobberDefaultImage()
		if err != nil {
			// No templates at all; the motion fallback still carries the
			// session, so this is not fatal on its own.
			return &d, nil
		}
		d.References = append(d.References, Reference{Name: "builtin", Image: img})
	}
	return &d, nil
}

func decodeTemplate(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
