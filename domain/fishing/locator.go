package fishing

import (
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/soocke/wetfish-go/config"
	"github.com/soocke/wetfish-go/domain/capture"
)

// Locator classifies the bobber in each captured region frame. With reference
// templates it runs NCC matching plus short-horizon dip tracking; with an
// empty reference set it degrades to the motion fallback. Not safe for
// concurrent use; call Locate from a single goroutine.
type Locator struct {
	cfg    *config.Config
	logger *slog.Logger
	refs   []*capture.Template
	motion *MotionDetector
	origin image.Point // region top-left, for screen-coordinate results

	lastRefIdx int // most recently successful reference, scanned first
	hasLock    bool
	lastPos    image.Point
	lastSeen   time.Time
	lastState  VisualState
	misses     int
}

// NewLocator builds a locator over the calibrated region origin and
// reference set. An empty reference set is only accepted because the motion
// fallback is always constructed; with neither, startup must fail.
func NewLocator(cfg *config.Config, logger *slog.Logger, origin image.Point, refs []*capture.Template) (*Locator, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	motion := NewMotionDetector(cfg, logger)
	if len(refs) == 0 && motion == nil {
		return nil, errors.New("locator: no reference templates and no fallback detector")
	}
	return &Locator{cfg: cfg, logger: logger, refs: refs, motion: motion, origin: origin}, nil
}

// Locate classifies one frame captured at t. The frame is region-cropped;
// returned coordinates are absolute screen coordinates of the match centre.
func (l *Locator) Locate(frame *image.RGBA, t time.Time) VisualState {
	if frame == nil {
		return l.holdOrAbsent()
	}
	if len(l.refs) == 0 {
		return l.locateByMotion(frame, t)
	}
	return l.locateByTemplate(frame, t)
}

func (l *Locator) locateByTemplate(frame *image.RGBA, t time.Time) VisualState {
	plane := capture.BuildGrayPlane(frame)
	opts := capture.MatchOptions{
		Threshold: l.cfg.SubmergedThreshold, // accept low-score hits; classified below
		Stride:    l.cfg.Stride,
		Refine:    l.cfg.Refine,
	}

	best := capture.MatchResult{Score: -1}
	var bestRef *capture.Template
	bestIdx := -1
	// Locality bias: start with the reference that matched last. Ties and
	// redundant scans resolve in its favor via strict improvement plus
	// early stop.
	for i := 0; i < len(l.refs); i++ {
		idx := (l.lastRefIdx + i) % len(l.refs)
		ref := l.refs[idx]
		res := ref.Match(plane, opts)
		if res.Score > best.Score {
			best = res
			bestRef = ref
			bestIdx = idx
		}
		if best.Score >= l.cfg.StopOnScore {
			break
		}
	}

	if bestRef == nil || best.Score < l.cfg.SubmergedThreshold {
		return l.miss()
	}

	cx := l.origin.X + best.X + bestRef.W/2
	cy := l.origin.Y + best.Y + bestRef.H/2
	pos := image.Pt(cx, cy)

	// A dip is a sharp downward displacement of a locked bobber while the
	// match still holds above the submerged threshold.
	if l.hasLock &&
		pos.Y-l.lastPos.Y > l.cfg.DipPixels &&
		t.Sub(l.lastSeen) <= time.Duration(l.cfg.DipWindowMs)*time.Millisecond {
		l.lastRefIdx = bestIdx
		l.misses = 0
		l.lastPos = pos
		l.lastSeen = t
		l.lastState = VisualState{Kind: KindDipping, Confidence: clamp01(best.Score), X: cx, Y: cy}
		if l.logger != nil {
			l.logger.Info("bobber dip", "x", cx, "y", cy, "score", best.Score, "ref", bestRef.Name)
		}
		return l.lastState
	}

	if best.Score < l.cfg.MatchThreshold {
		// Submerged-grade score without a dip is not a fresh sighting.
		return l.miss()
	}

	l.lastRefIdx = bestIdx
	l.misses = 0
	l.hasLock = true
	l.lastPos = pos
	l.lastSeen = t
	l.lastState = VisualState{Kind: KindFloating, Confidence: clamp01(best.Score), X: cx, Y: cy}
	return l.lastState
}

// miss tolerates transient occlusion: the previous state is held until the
// miss streak exceeds the configured bound, then Absent is emitted.
func (l *Locator) miss() VisualState {
	l.misses++
	if l.misses >= l.cfg.AbsentAfterMisses {
		l.hasLock = false
		l.lastState = VisualState{Kind: KindAbsent}
	}
	return l.lastState
}

func (l *Locator) holdOrAbsent() VisualState {
	return l.lastState
}

// locateByMotion drives the frame-diff fallback: the bobber position is
// unknown, so presence is reported at the region centre and a motion spike
// classifies as a dip.
func (l *Locator) locateByMotion(frame *image.RGBA, t time.Time) VisualState {
	b := frame.Bounds()
	cx := l.origin.X + b.Dx()/2
	cy := l.origin.Y + b.Dy()/2
	if l.motion.FeedFrame(frame, t) {
		l.lastState = VisualState{Kind: KindDipping, Confidence: 0.5, X: cx, Y: cy}
		return l.lastState
	}
	l.lastState = VisualState{Kind: KindFloating, Confidence: 0.5, X: cx, Y: cy}
	return l.lastState
}

// ResetCast clears per-cast tracking (lock and miss streak). Called by the
// session when a new cast begins so a previous cast's position cannot seed a
// dip.
func (l *Locator) ResetCast() {
	l.hasLock = false
	l.misses = 0
	l.lastState = VisualState{Kind: KindAbsent}
	if l.motion != nil {
		l.motion.Reset()
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
