package fishing

import (
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/soocke/wetfish-go/config"
)

// MotionDetector is the template-free fallback: it flags a dip when the
// region's frame-to-frame change spikes against both a rolling statistic and
// a slow EMA baseline. Not safe for concurrent use; call FeedFrame from a
// single goroutine.
type MotionDetector struct {
	cfg    *config.Config
	logger *slog.Logger

	prev   []byte
	base   []byte // EMA of the luminance plane
	cur    []byte
	w, h   int
	frames int

	window [motionWindowSize]float64
	wIdx   int
	wCount int

	lastSpike time.Time
}

const (
	motionWindowSize   = 20
	motionMinStats     = 5
	pixelDiffThreshold = 10
	spikeRatio         = 0.18 // fraction of pixels that must change for a spike
	baseJumpDiff       = 14.0 // mean deviation from baseline that forces a trigger
	baseJumpRatio      = 0.12
	stdDevMultiplier   = 2.0
	baseAlpha          = 0.03
	spikeHoldoff       = 700 * time.Millisecond
)

// NewMotionDetector returns a detector over the configured region size.
func NewMotionDetector(cfg *config.Config, logger *slog.Logger) *MotionDetector {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &MotionDetector{cfg: cfg, logger: logger}
}

// Reset clears history and statistics.
func (m *MotionDetector) Reset() {
	m.prev, m.base, m.cur = nil, nil, nil
	m.w, m.h = 0, 0
	m.frames = 0
	m.wIdx, m.wCount = 0, 0
	m.lastSpike = time.Time{}
	for i := range m.window {
		m.window[i] = 0
	}
}

// FeedFrame processes one region frame sampled at t and returns true when a
// motion spike consistent with a dip is seen. Consecutive spikes within a
// short holdoff report once.
func (m *MotionDetector) FeedFrame(frame *image.RGBA, t time.Time) bool {
	if frame == nil {
		return false
	}
	fb := frame.Bounds()
	w, h := fb.Dx(), fb.Dy()
	n := w * h
	if n == 0 {
		return false
	}
	if m.prev == nil || w != m.w || h != m.h {
		m.prev = make([]byte, n)
		m.base = make([]byte, n)
		m.cur = make([]byte, n)
		m.w, m.h = w, h
		m.frames = 0
	}

	m.luminance(frame)

	if m.frames == 0 {
		copy(m.prev, m.cur)
		copy(m.base, m.cur)
		m.frames++
		return false
	}

	var sumPrev, sumBase int
	changed := 0
	for i := 0; i < n; i++ {
		dp := absInt(int(m.cur[i]) - int(m.prev[i]))
		sumPrev += dp
		if dp > pixelDiffThreshold {
			changed++
		}
		sumBase += absInt(int(m.cur[i]) - int(m.base[i]))
	}
	dt := float64(sumPrev) / float64(n)
	ratioChanged := float64(changed) / float64(n)
	diffBaseMean := float64(sumBase) / float64(n)

	mean, std := m.windowStats()
	spike := m.wCount >= motionMinStats && dt > mean+stdDevMultiplier*std && ratioChanged > spikeRatio
	baseJump := diffBaseMean > baseJumpDiff && ratioChanged > baseJumpRatio
	hit := spike || baseJump

	if !hit {
		m.window[m.wIdx] = dt
		m.wIdx = (m.wIdx + 1) % motionWindowSize
		if m.wCount < motionWindowSize {
			m.wCount++
		}
		for i := 0; i < n; i++ {
			v := int(m.base[i]) + int(float64(int(m.cur[i])-int(m.base[i]))*baseAlpha)
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			m.base[i] = byte(v)
		}
	}

	copy(m.prev, m.cur)
	m.frames++

	if hit {
		if !m.lastSpike.IsZero() && t.Sub(m.lastSpike) < spikeHoldoff {
			return false
		}
		m.lastSpike = t
		if m.logger != nil {
			m.logger.Info("motion spike", "dt", dt, "mean", mean, "std", std, "changed", ratioChanged, "baseDiff", diffBaseMean)
		}
		return true
	}
	return false
}

func (m *MotionDetector) luminance(frame *image.RGBA) {
	pix := frame.Pix
	stride := frame.Stride
	idx := 0
	for y := 0; y < m.h; y++ {
		row := pix[y*stride : y*stride+m.w*4]
		for x := 0; x < m.w; x++ {
			i := x * 4
			r, g, b := row[i], row[i+1], row[i+2]
			m.cur[idx] = byte((77*uint32(r) + 150*uint32(g) + 29*uint32(b)) >> 8)
			idx++
		}
	}
}

func (m *MotionDetector) windowStats() (mean, std float64) {
	var m2 float64
	for i := 0; i < m.wCount; i++ {
		x := m.window[i]
		if i == 0 {
			mean = x
			continue
		}
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
	}
	if m.wCount > 1 {
		v := m2 / float64(m.wCount-1)
		if v > 0 {
			std = math.Sqrt(v)
		}
	}
	return mean, std
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
