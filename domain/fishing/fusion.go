package fishing

import (
	"log/slog"
	"time"

	"github.com/soocke/wetfish-go/domain/audio"
)

// Fusion combines the visual stream and audio onsets into a single strike
// confirmation. Either a Floating→Dipping transition confirms, or an audio
// onset while a bobber is known on-screen; after a confirmation a fixed
// cooldown swallows all further signals so one splash cannot double-trigger.
// Not safe for concurrent use; the orchestrator is the only caller.
type Fusion struct {
	logger   *slog.Logger
	cooldown time.Duration

	cooldownUntil time.Time
	lastKind      VisualKind
	seeded        bool
}

// NewFusion returns a fusion unit with the given debounce cooldown.
func NewFusion(logger *slog.Logger, cooldown time.Duration) *Fusion {
	if cooldown <= 0 {
		cooldown = 1500 * time.Millisecond
	}
	return &Fusion{logger: logger, cooldown: cooldown, lastKind: KindAbsent}
}

// Evaluate folds the latest visual state and an optional pending audio onset
// into a verdict at time now. Audio must only be passed while the cycle is
// watching; the visual gate here (not Absent) removes splashes from
// unrelated sources when no bobber is on screen.
func (f *Fusion) Evaluate(visual VisualState, onset *audio.Event, now time.Time) bool {
	prev := f.lastKind
	f.lastKind = visual.Kind
	seeded := f.seeded
	f.seeded = true

	if now.Before(f.cooldownUntil) {
		return false
	}

	confirmed := false
	reason := ""
	if seeded && prev == KindFloating && visual.Kind == KindDipping {
		confirmed = true
		reason = "visual dip"
	} else if onset != nil && visual.Kind != KindAbsent {
		confirmed = true
		reason = "audio onset"
	}

	if confirmed {
		f.cooldownUntil = now.Add(f.cooldown)
		if f.logger != nil {
			f.logger.Info("strike confirmed", "reason", reason, "x", visual.X, "y", visual.Y, "confidence", visual.Confidence)
		}
	}
	return confirmed
}

// ResetCast clears transition tracking at the start of a new cast so the
// previous cast's last state cannot fabricate a transition.
func (f *Fusion) ResetCast() {
	f.lastKind = KindAbsent
	f.seeded = false
}
