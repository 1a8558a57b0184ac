package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsStable(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Fatal("validation mutated the defaults")
	}
}

func TestValidateClampsOutOfRangeValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchThreshold = 5
	cfg.SubmergedThreshold = 2
	cfg.EnergyRatio = 0.5
	cfg.RecoverMinMs = 4000
	cfg.RecoverMaxMs = 1000
	cfg.Stride = -1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.MatchThreshold != 0.80 {
		t.Fatalf("match threshold %f, want 0.80", cfg.MatchThreshold)
	}
	if cfg.SubmergedThreshold > cfg.MatchThreshold {
		t.Fatalf("submerged threshold %f above match threshold", cfg.SubmergedThreshold)
	}
	if cfg.EnergyRatio != 3.0 {
		t.Fatalf("energy ratio %f, want 3.0", cfg.EnergyRatio)
	}
	if cfg.RecoverMaxMs <= cfg.RecoverMinMs {
		t.Fatalf("recover bounds %d..%d not ordered", cfg.RecoverMinMs, cfg.RecoverMaxMs)
	}
	if cfg.Stride != 2 {
		t.Fatalf("stride %d, want 2", cfg.Stride)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Fatal("missing file did not yield defaults")
	}
}

func TestLoadBrokenFileReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for a broken file")
	}
	if cfg == nil {
		t.Fatal("broken file must still yield usable defaults")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.CastKey = "F7"
	cfg.LureCooldownMinutes = 15
	cfg.MatchThreshold = 0.9
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.CastKey != "F7" || loaded.LureCooldownMinutes != 15 || loaded.MatchThreshold != 0.9 {
		t.Fatalf("round trip lost values: %+v", loaded)
	}
}
