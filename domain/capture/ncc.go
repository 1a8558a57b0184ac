package capture

import (
	"image"
	"math"
)

// Template is a bobber reference prepared for repeated normalized
// cross-correlation matching: grayscale pixels plus summary statistics.
// Templates are immutable after construction.
type Template struct {
	Name   string
	gray   []float32
	sumT   float64
	sumT2  float64
	W, H   int
	meanT  float64
	stdT   float64
}

// NewTemplate converts a reference image into a matching-ready Template.
// Pixels with alpha==0 are ignored when computing statistics, so templates
// with transparent surroundings match on the bobber silhouette only.
func NewTemplate(name string, img image.Image) *Template {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	gray := make([]float32, w*h)
	var sumT, sumT2 float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a == 0 {
				continue
			}
			gval := 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(bb)
			gray[y*w+x] = float32(gval)
			sumT += gval
			sumT2 += gval * gval
		}
	}
	n := float64(w * h)
	meanT := sumT / n
	varT := (sumT2 - sumT*sumT/n) / n
	stdT := 0.0
	if varT > 0 {
		stdT = math.Sqrt(varT)
	}
	return &Template{Name: name, gray: gray, sumT: sumT, sumT2: sumT2, W: w, H: h, meanT: meanT, stdT: stdT}
}

// MatchOptions configures a single NCC scan.
type MatchOptions struct {
	Threshold float64 // minimum NCC score for a positive match
	Stride    int     // coarse scan stride in pixels
	Refine    bool    // refinement pass around the coarse best window
}

// MatchResult holds the outcome of matching one template against one frame.
// X, Y are the top-left of the best window in frame coordinates.
type MatchResult struct {
	X, Y  int
	Score float64
	Found bool
}

// GrayPlane stores a frame's grayscale values and their summed-area tables
// (integral images), enabling O(1) window mean/variance queries. Build it
// once per frame and reuse it across all templates.
type GrayPlane struct {
	gray       []float64
	integral   []float64
	integralSq []float64
	W, H       int
}

// BuildGrayPlane computes per-pixel grayscale values and integral images for
// a captured frame.
func BuildGrayPlane(frame *image.RGBA) *GrayPlane {
	if frame == nil {
		return nil
	}
	b := frame.Bounds()
	W, H := b.Dx(), b.Dy()
	if W == 0 || H == 0 {
		return nil
	}
	p := &GrayPlane{
		gray:       make([]float64, W*H),
		integral:   make([]float64, W*H),
		integralSq: make([]float64, W*H),
		W:          W,
		H:          H,
	}
	pix := frame.Pix
	stride := frame.Stride
	for y := 0; y < H; y++ {
		row := pix[y*stride : y*stride+W*4]
		var rowSum, rowSum2 float64
		for x := 0; x < W; x++ {
			i := x * 4
			// 257 mirrors color.RGBA.RGBA()'s 8->16 bit expansion so plane
			// values line up exactly with template values.
			gray := 0.2126*float64(uint32(row[i])*257) + 0.7152*float64(uint32(row[i+1])*257) + 0.0722*float64(uint32(row[i+2])*257)
			off := y*W + x
			p.gray[off] = gray
			rowSum += gray
			rowSum2 += gray * gray
			if y == 0 {
				p.integral[off] = rowSum
				p.integralSq[off] = rowSum2
			} else {
				p.integral[off] = p.integral[(y-1)*W+x] + rowSum
				p.integralSq[off] = p.integralSq[(y-1)*W+x] + rowSum2
			}
		}
	}
	return p
}

// Match scans the plane for the template and returns the best-scoring
// window. Deterministic: identical plane and options always yield the same
// result.
func (t *Template) Match(pre *GrayPlane, opts MatchOptions) MatchResult {
	res := MatchResult{Score: -1}
	if t == nil || pre == nil {
		return res
	}
	W, H := pre.W, pre.H
	w, h := t.W, t.H
	if w == 0 || h == 0 || W < w || H < h {
		return res
	}
	stride := opts.Stride
	if stride <= 0 {
		stride = 1
	}
	if t.stdT <= 1e-9 {
		// Flat template: fall back to exact-window comparison.
		return t.matchFlat(pre, stride)
	}

	bestX, bestY, bestScore := 0, 0, -1.0
	for y := 0; y <= H-h; y += stride {
		for x := 0; x <= W-w; x += stride {
			if score, ok := t.scoreAt(pre, x, y); ok && score > bestScore {
				bestScore, bestX, bestY = score, x, y
			}
		}
	}
	if opts.Refine && stride > 1 {
		minY := maxInt(0, bestY-stride)
		maxY := minInt(H-h, bestY+stride)
		minX := maxInt(0, bestX-stride)
		maxX := minInt(W-w, bestX+stride)
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				if score, ok := t.scoreAt(pre, x, y); ok && score > bestScore {
					bestScore, bestX, bestY = score, x, y
				}
			}
		}
	}
	res.X, res.Y, res.Score = bestX, bestY, bestScore
	res.Found = bestScore >= opts.Threshold
	return res
}

// scoreAt computes the NCC score of the template placed at (x, y).
func (t *Template) scoreAt(pre *GrayPlane, x, y int) (float64, bool) {
	w, h := t.W, t.H
	n := float64(w * h)
	sumF := integralSum(pre.integral, pre.W, x, y, x+w-1, y+h-1)
	sumF2 := integralSum(pre.integralSq, pre.W, x, y, x+w-1, y+h-1)
	meanF := sumF / n
	varF := (sumF2 - sumF*sumF/n) / n
	if varF <= 1e-9 {
		return 0, false
	}
	stdF := math.Sqrt(varF)
	var sumFT float64
	for i := 0; i < len(t.gray); i++ {
		py := i / w
		px := i % w
		sumFT += pre.gray[(y+py)*pre.W+(x+px)] * float64(t.gray[i])
	}
	numer := sumFT - n*meanF*t.meanT
	denom := n * stdF * t.stdT
	if denom <= 0 {
		return 0, false
	}
	return numer / denom, true
}

func (t *Template) matchFlat(pre *GrayPlane, stride int) MatchResult {
	res := MatchResult{Score: -1}
	W, H := pre.W, pre.H
	w, h := t.W, t.H
	ref := float64(t.gray[0])
	for y := 0; y <= H-h; y += stride {
		for x := 0; x <= W-w; x += stride {
			ok := true
			for i := 0; i < len(t.gray); i++ {
				py := i / w
				px := i % w
				if math.Abs(pre.gray[(y+py)*W+(x+px)]-ref) > 1e-9 {
					ok = false
					break
				}
			}
			if ok {
				return MatchResult{X: x, Y: y, Score: 1, Found: true}
			}
		}
	}
	return res
}

// integralSum returns the inclusive sum over rectangle [x0..x1] x [y0..y1]
// from an integral image stored in row-major order with width W.
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	A := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return A(x1, y1) - A(x0-1, y1) - A(x1, y0-1) + A(x0-1, y0-1)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
