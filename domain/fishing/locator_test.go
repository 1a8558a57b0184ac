package fishing

import (
	"image"
	"testing"
	"time"

	"github.com/soocke/wetfish-go/config"
	"github.com/soocke/wetfish-go/domain/capture"
)

// synthFrame creates a uniform RGBA image and applies an optional mutate func.
func synthFrame(w, h int, base byte, mutate func(px []byte, w, h int)) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = base, base, base, 255
		}
	}
	if mutate != nil {
		mutate(img.Pix, w, h)
	}
	return img
}

// applyRegion sets RGB values to 'lum' inside the given rectangle (clamped).
func applyRegion(px []byte, w, h int, x0, y0, x1, y1 int, lum byte) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > w {
		x1 = w
	}
	if y1 > h {
		y1 = h
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := (y*w + x) * 4
			px[i], px[i+1], px[i+2] = lum, lum, lum
		}
	}
}

// gradientPatch builds a small high-variance grayscale pattern usable as a
// reference template.
func gradientPatch(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte(30 + (x*23+y*11)%180)
			i := (y*w + x) * 4
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
		}
	}
	return img
}

// stamp copies src into dst at (x0, y0).
func stamp(dst, src *image.RGBA, x0, y0 int) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			di := (y0+y)*dst.Stride + (x0+x)*4
			si := y*src.Stride + x*4
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
}

func frameWithPatch(w, h int, patch *image.RGBA, x0, y0 int) *image.RGBA {
	f := synthFrame(w, h, 80, nil)
	stamp(f, patch, x0, y0)
	return f
}

func newTemplateLocator(t *testing.T, origin image.Point) (*Locator, *image.RGBA) {
	t.Helper()
	patch := gradientPatch(8, 8)
	tpl := capture.NewTemplate("patch", patch)
	if tpl == nil {
		t.Fatal("template construction failed")
	}
	loc, err := NewLocator(config.DefaultConfig(), discardLogger, origin, []*capture.Template{tpl})
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}
	return loc, patch
}

func TestLocator_FloatingAtMatchCentre(t *testing.T) {
	origin := image.Pt(100, 50)
	loc, patch := newTemplateLocator(t, origin)

	vs := loc.Locate(frameWithPatch(64, 48, patch, 20, 12), time.Now())
	if vs.Kind != KindFloating {
		t.Fatalf("expected floating, got %v", vs.Kind)
	}
	if vs.X != origin.X+20+4 || vs.Y != origin.Y+12+4 {
		t.Fatalf("match centre (%d, %d), want (%d, %d)", vs.X, vs.Y, origin.X+24, origin.Y+16)
	}
	if vs.Confidence < 0.99 {
		t.Fatalf("exact stamp should score ~1.0, got %f", vs.Confidence)
	}
}

func TestLocator_DownwardShiftWithinWindowIsADip(t *testing.T) {
	origin := image.Pt(0, 0)
	loc, patch := newTemplateLocator(t, origin)

	t0 := time.Now()
	loc.Locate(frameWithPatch(64, 48, patch, 20, 12), t0)
	vs := loc.Locate(frameWithPatch(64, 48, patch, 20, 22), t0.Add(200*time.Millisecond))
	if vs.Kind != KindDipping {
		t.Fatalf("expected dipping on 10px downward shift, got %v", vs.Kind)
	}
	if vs.Y != 22+4 {
		t.Fatalf("dip position y=%d, want %d", vs.Y, 26)
	}
}

func TestLocator_SlowDownwardDriftStaysFloating(t *testing.T) {
	loc, patch := newTemplateLocator(t, image.Pt(0, 0))

	t0 := time.Now()
	loc.Locate(frameWithPatch(64, 48, patch, 20, 12), t0)
	// Same displacement, but slower than the dip window allows.
	vs := loc.Locate(frameWithPatch(64, 48, patch, 20, 22), t0.Add(800*time.Millisecond))
	if vs.Kind != KindFloating {
		t.Fatalf("expected floating on slow drift, got %v", vs.Kind)
	}
}

func TestLocator_AbsentAfterConsecutiveMisses(t *testing.T) {
	cfg := config.DefaultConfig()
	loc, patch := newTemplateLocator(t, image.Pt(0, 0))

	t0 := time.Now()
	loc.Locate(frameWithPatch(64, 48, patch, 20, 12), t0)

	empty := synthFrame(64, 48, 80, nil)
	for i := 1; i < cfg.AbsentAfterMisses; i++ {
		vs := loc.Locate(empty, t0.Add(time.Duration(i)*200*time.Millisecond))
		if vs.Kind != KindFloating {
			t.Fatalf("miss %d should hold the last state, got %v", i, vs.Kind)
		}
	}
	vs := loc.Locate(empty, t0.Add(time.Second))
	if vs.Kind != KindAbsent {
		t.Fatalf("expected absent after %d misses, got %v", cfg.AbsentAfterMisses, vs.Kind)
	}
}

func TestLocator_ResetCastClearsDipTracking(t *testing.T) {
	loc, patch := newTemplateLocator(t, image.Pt(0, 0))

	t0 := time.Now()
	loc.Locate(frameWithPatch(64, 48, patch, 20, 12), t0)
	loc.ResetCast()
	// Without the previous lock this displacement is a fresh sighting.
	vs := loc.Locate(frameWithPatch(64, 48, patch, 20, 22), t0.Add(200*time.Millisecond))
	if vs.Kind != KindFloating {
		t.Fatalf("expected floating after reset, got %v", vs.Kind)
	}
}

func TestLocator_MotionFallbackReportsCentreAndDips(t *testing.T) {
	origin := image.Pt(200, 100)
	loc, err := NewLocator(config.DefaultConfig(), discardLogger, origin, nil)
	if err != nil {
		t.Fatalf("NewLocator without references: %v", err)
	}

	t0 := time.Now()
	w, h := 40, 40
	for i := 0; i < 5; i++ {
		vs := loc.Locate(synthFrame(w, h, 80, nil), t0.Add(time.Duration(i)*50*time.Millisecond))
		if vs.Kind != KindFloating {
			t.Fatalf("steady frame %d: expected floating, got %v", i, vs.Kind)
		}
		if vs.X != origin.X+w/2 || vs.Y != origin.Y+h/2 {
			t.Fatalf("fallback position (%d, %d), want region centre (%d, %d)", vs.X, vs.Y, origin.X+w/2, origin.Y+h/2)
		}
	}

	dipped := false
	for i := 5; i < 8; i++ {
		spike := synthFrame(w, h, 80, func(px []byte, w, h int) { applyRegion(px, w, h, 10, 10, 30, 30, 140) })
		if vs := loc.Locate(spike, t0.Add(time.Duration(i)*50*time.Millisecond)); vs.Kind == KindDipping {
			dipped = true
			break
		}
	}
	if !dipped {
		t.Fatal("expected a dip from the motion spike")
	}
}
