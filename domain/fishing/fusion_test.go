package fishing

import (
	"testing"
	"time"

	"github.com/soocke/wetfish-go/domain/audio"
)

func floating() VisualState { return VisualState{Kind: KindFloating, Confidence: 0.9, X: 10, Y: 20} }
func dipping() VisualState  { return VisualState{Kind: KindDipping, Confidence: 0.7, X: 10, Y: 26} }
func absent() VisualState   { return VisualState{Kind: KindAbsent} }

func TestFusion_DipTransitionConfirmsOnce(t *testing.T) {
	f := NewFusion(discardLogger, 1500*time.Millisecond)
	t0 := time.Now()

	if f.Evaluate(floating(), nil, t0) {
		t.Fatal("floating alone must not confirm")
	}
	if !f.Evaluate(dipping(), nil, t0.Add(50*time.Millisecond)) {
		t.Fatal("floating to dipping transition must confirm")
	}
	if f.Evaluate(dipping(), nil, t0.Add(100*time.Millisecond)) {
		t.Fatal("sustained dip must not confirm twice")
	}
}

func TestFusion_FirstObservationNeverConfirms(t *testing.T) {
	f := NewFusion(discardLogger, 1500*time.Millisecond)
	// A dip as the very first sample has no known prior state.
	if f.Evaluate(dipping(), nil, time.Now()) {
		t.Fatal("unseeded dip must not confirm")
	}
}

func TestFusion_AudioOnsetRequiresVisibleBobber(t *testing.T) {
	f := NewFusion(discardLogger, 1500*time.Millisecond)
	t0 := time.Now()
	onset := &audio.Event{At: t0, Energy: 0.4}

	if f.Evaluate(absent(), onset, t0) {
		t.Fatal("onset with no bobber on screen must not confirm")
	}
	if !f.Evaluate(floating(), onset, t0.Add(50*time.Millisecond)) {
		t.Fatal("onset with a floating bobber must confirm")
	}
}

func TestFusion_CooldownSwallowsSecondSignal(t *testing.T) {
	f := NewFusion(discardLogger, 1500*time.Millisecond)
	t0 := time.Now()

	f.Evaluate(floating(), nil, t0)
	if !f.Evaluate(dipping(), nil, t0.Add(50*time.Millisecond)) {
		t.Fatal("first dip must confirm")
	}
	f.Evaluate(floating(), nil, t0.Add(500*time.Millisecond))
	if f.Evaluate(dipping(), nil, t0.Add(600*time.Millisecond)) {
		t.Fatal("dip inside the cooldown must be swallowed")
	}
	f.Evaluate(floating(), nil, t0.Add(2*time.Second))
	if !f.Evaluate(dipping(), nil, t0.Add(2100*time.Millisecond)) {
		t.Fatal("dip after the cooldown must confirm")
	}
}

func TestFusion_ResetCastDropsTransitionHistory(t *testing.T) {
	f := NewFusion(discardLogger, 1500*time.Millisecond)
	t0 := time.Now()

	f.Evaluate(floating(), nil, t0)
	f.ResetCast()
	if f.Evaluate(dipping(), nil, t0.Add(50*time.Millisecond)) {
		t.Fatal("dip right after reset must not confirm from stale history")
	}
}
