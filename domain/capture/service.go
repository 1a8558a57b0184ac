package capture

import (
	"image"
	"log/slog"
	"sync/atomic"
	"time"
)

const statsLogInterval = 5 * time.Second

// Service polls the calibrated screen region at a fixed interval and exposes
// the latest frame through a single atomic slot. Exactly one goroutine
// produces; any number of readers may call LatestFrame without blocking the
// producer. Use NewService to construct an instance.
type Service interface {
	Start()
	Stop()
	LatestFrame() FrameSnapshot
	Running() bool
	Stats() Stats
}

type service struct {
	running    atomic.Bool
	latest     atomic.Pointer[FrameSnapshot]
	region     image.Rectangle
	interval   time.Duration
	maxRetries int
	logger     *slog.Logger
	fatal      chan<- error

	captures     atomic.Uint64
	failures     atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64
}

// NewService constructs a capture service over the given screen region.
// Consecutive grab failures beyond maxRetries are reported on fatal and the
// loop exits; isolated failures are retried with linear backoff.
func NewService(logger *slog.Logger, region image.Rectangle, interval time.Duration, maxRetries int, fatal chan<- error) Service {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &service{region: region, interval: interval, maxRetries: maxRetries, logger: logger, fatal: fatal}
}

func (s *service) LatestFrame() FrameSnapshot {
	snap := s.latest.Load()
	if snap == nil {
		return FrameSnapshot{}
	}
	return *snap
}

func (s *service) Running() bool { return s.running.Load() }

func (s *service) Stats() Stats {
	captures := s.captures.Load()
	total := s.captureNanos.Load()
	var avg time.Duration
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
	}
	snapshot := s.LatestFrame()
	age := time.Duration(0)
	if !snapshot.CapturedAt.IsZero() {
		age = time.Since(snapshot.CapturedAt)
	}
	return Stats{
		Captures:       captures,
		Failures:       s.failures.Load(),
		AvgCapture:     avg,
		LastCapture:    snapshot.CapturedAt,
		LatestFrameAge: age,
		Sequence:       snapshot.Sequence,
	}
}

func (s *service) Start() {
	if s.running.Load() {
		return
	}
	s.running.Store(true)
	go s.loop()
}

func (s *service) Stop() {
	s.running.Store(false)
}

func (s *service) loop() {
	logTicker := time.NewTicker(statsLogInterval)
	defer logTicker.Stop()
	consecutive := 0
	for s.running.Load() {
		start := time.Now()
		img, err := grabRegion(s.region)
		if err != nil {
			s.failures.Add(1)
			consecutive++
			if s.logger != nil {
				s.logger.Error("region capture failed", "error", err, "attempt", consecutive)
			}
			if consecutive > s.maxRetries {
				s.running.Store(false)
				select {
				case s.fatal <- &Error{Op: "region grab retries exhausted", Err: err}:
				default:
				}
				return
			}
			// Linear backoff keeps a transient driver hiccup from spinning.
			time.Sleep(time.Duration(consecutive) * s.interval)
			continue
		}
		consecutive = 0

		// Copy into a pooled frame so the screenshot library's allocation
		// stays short-lived; consumers recycle the pooled copy.
		frame := acquireFrame(image.Rect(0, 0, s.region.Dx(), s.region.Dy()))
		copyPixels(frame, img)

		elapsed := time.Since(start)
		s.captureNanos.Add(uint64(elapsed.Nanoseconds()))
		s.captures.Add(1)
		seq := s.sequence.Add(1)
		s.latest.Store(&FrameSnapshot{Image: frame, CapturedAt: time.Now(), Sequence: seq})

		select {
		case <-logTicker.C:
			s.logStats()
		default:
		}

		time.Sleep(s.interval)
	}
}

func copyPixels(dst, src *image.RGBA) {
	h := dst.Rect.Dy()
	w4 := dst.Rect.Dx() * 4
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w4], src.Pix[y*src.Stride:y*src.Stride+w4])
	}
}

func (s *service) logStats() {
	if s.logger == nil {
		return
	}
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"failures", stats.Failures,
		"avg_capture", stats.AvgCapture,
		"age", stats.LatestFrameAge,
	)
}
