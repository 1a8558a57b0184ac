package calibration

import (
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

var display = image.Rect(0, 0, 1920, 1080)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte((x*13 + y*7) % 256)
			i := (y*w + x) * 4
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeCalibration(t *testing.T, dir string, d Data) string {
	t.Helper()
	path := filepath.Join(dir, "calibration.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(&d); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDecodesRegionAndReferences(t *testing.T) {
	dir := t.TempDir()
	ref := writePNG(t, dir, "bobber.png", 24, 24)
	path := writeCalibration(t, dir, Data{
		Region:         Region{X: 400, Y: 200, Width: 320, Height: 240},
		ReferencePaths: []string{ref},
	})

	d, err := Load(path, display)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := d.Region.Rect(); got != image.Rect(400, 200, 720, 440) {
		t.Fatalf("region %v", got)
	}
	if len(d.References) != 1 {
		t.Fatalf("expected 1 reference, got %d", len(d.References))
	}
	if d.References[0].Name != "bobber.png" {
		t.Fatalf("reference name %q", d.References[0].Name)
	}
	if b := d.References[0].Image.Bounds(); b.Dx() != 24 || b.Dy() != 24 {
		t.Fatalf("reference bounds %v", b)
	}
}

func TestLoadRejectsRegionOutsideDisplay(t *testing.T) {
	dir := t.TempDir()
	path := writeCalibration(t, dir, Data{
		Region: Region{X: 1800, Y: 900, Width: 320, Height: 240},
	})

	_, err := Load(path, display)
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error for out-of-display region, got %v", err)
	}
}

func TestLoadRejectsEmptyRegion(t *testing.T) {
	dir := t.TempDir()
	path := writeCalibration(t, dir, Data{Region: Region{X: 10, Y: 10}})
	if _, err := Load(path, display); err == nil {
		t.Fatal("expected an error for a zero-area region")
	}
}

func TestLoadRejectsReferenceLargerThanRegion(t *testing.T) {
	dir := t.TempDir()
	ref := writePNG(t, dir, "huge.png", 640, 480)
	path := writeCalibration(t, dir, Data{
		Region:         Region{X: 0, Y: 0, Width: 320, Height: 240},
		ReferencePaths: []string{ref},
	})

	if _, err := Load(path, display); err == nil {
		t.Fatal("expected an error for an oversized reference")
	}
}

func TestLoadFallsBackToBuiltinReference(t *testing.T) {
	dir := t.TempDir()
	path := writeCalibration(t, dir, Data{
		Region: Region{X: 0, Y: 0, Width: 320, Height: 240},
	})

	d, err := Load(path, display)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(d.References) != 1 || d.References[0].Name != "builtin" {
		t.Fatalf("expected the builtin fallback reference, got %+v", d.References)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json"), display); err == nil {
		t.Fatal("expected an error for a missing calibration file")
	}
}
