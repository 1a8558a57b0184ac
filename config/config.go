package config

import (
	"encoding/json"
	"os"
)

// Config holds every tunable policy value of the fishing session. Fields may
// be loaded from a JSON file and overridden by command-line flags. Threshold
// and window values are heuristics, not derived constants; adjust them per
// game client and capture setup.
type Config struct {
	Debug bool `json:"debug"`

	// Bobber detection.
	MatchThreshold     float64 `json:"match_threshold"`      // min NCC score to accept a bobber match
	SubmergedThreshold float64 `json:"submerged_threshold"`  // min NCC score while the bobber is dipping
	StopOnScore        float64 `json:"stop_on_score"`        // early-stop score when scanning references
	Stride             int     `json:"stride"`               // coarse scan stride in pixels
	Refine             bool    `json:"refine"`               // refinement pass around the coarse best
	DipPixels          int     `json:"dip_pixels"`           // downward displacement that counts as a dip
	DipWindowMs        int     `json:"dip_window_ms"`        // displacement must happen within this window
	AbsentAfterMisses  int     `json:"absent_after_misses"`  // consecutive missed frames before Absent
	CaptureIntervalMs  int     `json:"capture_interval_ms"`  // visual polling cadence
	MaxCaptureRetries  int     `json:"max_capture_retries"`  // consecutive capture failures before abort

	// Audio strike detection.
	SampleRate      int     `json:"sample_rate"`       // capture sample rate in Hz
	AudioFrameMs    int     `json:"audio_frame_ms"`    // per-frame duration read from the device
	EnergyRatio     float64 `json:"energy_ratio"`      // instantaneous energy vs noise floor
	NoiseFloorAlpha float64 `json:"noise_floor_alpha"` // EMA coefficient of the noise floor
	RefractoryMs    int     `json:"refractory_ms"`     // min gap between onset events
	WindowSeconds   int     `json:"window_seconds"`    // rolling buffer bound
	MaxAudioRetries int     `json:"max_audio_retries"` // consecutive read failures before abort
	LoopbackDevice  bool    `json:"loopback_device"`   // capture system output instead of the mic

	// Fusion.
	FusionCooldownMs int `json:"fusion_cooldown_ms"` // debounce after a confirmed strike

	// Cycle timing.
	OrchestratorTickMs int `json:"orchestrator_tick_ms"`
	SettleDelayMs      int `json:"settle_delay_ms"`      // bobber landing time after the cast
	CastTimeoutSeconds int `json:"cast_timeout_seconds"` // give up watching and re-cast
	StrikeHoldMs       int `json:"strike_hold_ms"`       // pause after the loot click
	LootWaitMs         int `json:"loot_wait_ms"`         // loot UI resolve time
	RecoverMinMs       int `json:"recover_min_ms"`       // randomized re-cast jitter, lower bound
	RecoverMaxMs       int `json:"recover_max_ms"`       // randomized re-cast jitter, upper bound

	// Lure.
	LureCooldownMinutes int `json:"lure_cooldown_minutes"`
	LurePostWaitMs      int `json:"lure_post_wait_ms"` // wait after applying the lure

	// Key bindings.
	CastKey string `json:"cast_key"`
	LureKey string `json:"lure_key"`
}

// DefaultConfig returns a Config populated with standard defaults. Timing
// defaults follow WoW-era fishing (27 s bobber lifetime, 10 min lure).
func DefaultConfig() *Config {
	return &Config{
		Debug:              false,
		MatchThreshold:     0.80,
		SubmergedThreshold: 0.60,
		StopOnScore:        0.95,
		Stride:             2,
		Refine:             true,
		DipPixels:          6,
		DipWindowMs:        300,
		AbsentAfterMisses:  3,
		CaptureIntervalMs:  200,
		MaxCaptureRetries:  5,

		SampleRate:      48000,
		AudioFrameMs:    30,
		EnergyRatio:     3.0,
		NoiseFloorAlpha: 0.05,
		RefractoryMs:    500,
		WindowSeconds:   2,
		MaxAudioRetries: 5,
		LoopbackDevice:  true,

		FusionCooldownMs: 1500,

		OrchestratorTickMs: 50,
		SettleDelayMs:      2000,
		CastTimeoutSeconds: 27,
		StrikeHoldMs:       200,
		LootWaitMs:         2000,
		RecoverMinMs:       2300,
		RecoverMaxMs:       3700,

		LureCooldownMinutes: 10,
		LurePostWaitMs:      5100,

		CastKey: "F3",
		LureKey: "F4",
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		c.MatchThreshold = 0.80
	}
	if c.SubmergedThreshold <= 0 || c.SubmergedThreshold > c.MatchThreshold {
		c.SubmergedThreshold = c.MatchThreshold * 0.75
	}
	if c.StopOnScore < 0 || c.StopOnScore > 1 {
		c.StopOnScore = 0.95
	}
	if c.Stride <= 0 {
		c.Stride = 2
	}
	if c.DipPixels <= 0 {
		c.DipPixels = 6
	}
	if c.DipWindowMs <= 0 {
		c.DipWindowMs = 300
	}
	if c.AbsentAfterMisses <= 0 {
		c.AbsentAfterMisses = 3
	}
	if c.CaptureIntervalMs < 50 {
		c.CaptureIntervalMs = 200
	}
	if c.MaxCaptureRetries <= 0 {
		c.MaxCaptureRetries = 5
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 48000
	}
	if c.AudioFrameMs <= 0 || c.AudioFrameMs > 500 {
		c.AudioFrameMs = 30
	}
	if c.EnergyRatio <= 1 {
		c.EnergyRatio = 3.0
	}
	if c.NoiseFloorAlpha <= 0 || c.NoiseFloorAlpha >= 1 {
		c.NoiseFloorAlpha = 0.05
	}
	if c.RefractoryMs <= 0 {
		c.RefractoryMs = 500
	}
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = 2
	}
	if c.MaxAudioRetries <= 0 {
		c.MaxAudioRetries = 5
	}
	if c.FusionCooldownMs <= 0 {
		c.FusionCooldownMs = 1500
	}
	if c.OrchestratorTickMs <= 0 {
		c.OrchestratorTickMs = 50
	}
	if c.SettleDelayMs < 0 {
		c.SettleDelayMs = 2000
	}
	if c.CastTimeoutSeconds <= 0 {
		c.CastTimeoutSeconds = 27
	}
	if c.StrikeHoldMs < 0 {
		c.StrikeHoldMs = 200
	}
	if c.LootWaitMs < 0 {
		c.LootWaitMs = 2000
	}
	if c.RecoverMinMs < 0 {
		c.RecoverMinMs = 2300
	}
	if c.RecoverMaxMs < c.RecoverMinMs {
		c.RecoverMaxMs = c.RecoverMinMs + 1000
	}
	if c.LureCooldownMinutes <= 0 {
		c.LureCooldownMinutes = 10
	}
	if c.LurePostWaitMs < 0 {
		c.LurePostWaitMs = 5100
	}
	if c.CastKey == "" {
		c.CastKey = "F3"
	}
	if c.LureKey == "" {
		c.LureKey = "F4"
	}
	return nil
}

// Load attempts to read configuration from the given JSON file path. If the
// file does not exist it returns DefaultConfig(). On JSON error it returns
// defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return cfg, err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
