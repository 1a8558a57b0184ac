package audio

import (
	"log/slog"
	"math"
	"time"
)

// StrikeDetector finds splash-like onsets in an audio stream: a sudden energy
// rise against a slowly adapting noise floor. Not safe for concurrent use;
// call Process from a single goroutine.
type StrikeDetector struct {
	logger *slog.Logger

	ratio      float64       // instantaneous energy must exceed floor*ratio
	alpha      float64       // EMA coefficient of the noise floor
	refractory time.Duration // minimum gap between events
	windowMax  time.Duration // rolling window bound

	floor     float64
	primed    int
	lastEvent time.Time
	window    []sample // bounded history, oldest first
}

type sample struct {
	at     time.Time
	energy float64
}

// warmupFrames frames seed the floor before events may fire.
const warmupFrames = 8

// DetectorOptions configures a StrikeDetector. Zero values fall back to the
// defaults documented on each field.
type DetectorOptions struct {
	EnergyRatio  float64       // default 3.0
	FloorAlpha   float64       // default 0.05
	Refractory   time.Duration // default 500ms
	WindowExtent time.Duration // default 2s
}

// NewStrikeDetector returns a detector with the given policy values.
func NewStrikeDetector(logger *slog.Logger, opts DetectorOptions) *StrikeDetector {
	if opts.EnergyRatio <= 1 {
		opts.EnergyRatio = 3.0
	}
	if opts.FloorAlpha <= 0 || opts.FloorAlpha >= 1 {
		opts.FloorAlpha = 0.05
	}
	if opts.Refractory <= 0 {
		opts.Refractory = 500 * time.Millisecond
	}
	if opts.WindowExtent <= 0 {
		opts.WindowExtent = 2 * time.Second
	}
	return &StrikeDetector{
		logger:     logger,
		ratio:      opts.EnergyRatio,
		alpha:      opts.FloorAlpha,
		refractory: opts.Refractory,
		windowMax:  opts.WindowExtent,
	}
}

// Reset clears the noise floor and history.
func (d *StrikeDetector) Reset() {
	d.floor = 0
	d.primed = 0
	d.lastEvent = time.Time{}
	d.window = d.window[:0]
}

// Process feeds one frame and returns a non-nil Event when an onset fires.
// The noise floor keeps adapting between events, so a persistently loud
// environment raises the trigger bar instead of spamming events.
func (d *StrikeDetector) Process(f Frame) *Event {
	if len(f.Samples) == 0 {
		return nil
	}
	energy := rms(f.Samples)

	d.window = append(d.window, sample{at: f.At, energy: energy})
	d.evictOld(f.At)

	if d.primed < warmupFrames {
		d.primed++
		d.updateFloor(energy)
		return nil
	}

	fired := false
	if d.floor > 0 && energy > d.floor*d.ratio {
		if d.lastEvent.IsZero() || f.At.Sub(d.lastEvent) >= d.refractory {
			fired = true
			d.lastEvent = f.At
		}
	}

	if fired {
		if d.logger != nil {
			d.logger.Info("splash onset", "energy", energy, "floor", d.floor)
		}
		// The spike itself is kept out of the floor estimate so the tail of
		// one splash does not mask the next.
		return &Event{At: f.At, Energy: energy}
	}

	d.updateFloor(energy)
	return nil
}

func (d *StrikeDetector) updateFloor(energy float64) {
	if d.floor == 0 {
		d.floor = energy
		return
	}
	d.floor += d.alpha * (energy - d.floor)
}

func (d *StrikeDetector) evictOld(now time.Time) {
	cutoff := now.Add(-d.windowMax)
	i := 0
	for i < len(d.window) && d.window[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		d.window = append(d.window[:0], d.window[i:]...)
	}
}

func rms(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
