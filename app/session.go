// Package app assembles the capture, audio and cycle loops into one fishing
// session and owns their shared-state plumbing: the capture service publishes
// into an atomic latest-frame slot, the audio service into a bounded event
// queue, and the orchestrator tick reads both without ever blocking a
// producer.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/soocke/wetfish-go/calibration"
	"github.com/soocke/wetfish-go/config"
	"github.com/soocke/wetfish-go/domain/action"
	"github.com/soocke/wetfish-go/domain/audio"
	"github.com/soocke/wetfish-go/domain/capture"
	"github.com/soocke/wetfish-go/domain/fishing"
)

// Session wires the detection engines to the cycle state machine and runs
// the orchestrator loop.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger

	capSvc  capture.Service
	device  *audio.Device
	audSvc  *audio.Service
	locator *fishing.Locator
	fusion  *fishing.Fusion
	fsm     *fishing.CycleFSM

	fatal chan error
}

// NewSession builds every component from validated config and calibration.
// An unopenable audio device is fatal here: the engine's decision quality
// depends on both signal sources being present at startup.
func NewSession(cfg *config.Config, logger *slog.Logger, calib *calibration.Data) (*Session, error) {
	fatal := make(chan error, 4)

	var refs []*capture.Template
	for _, r := range calib.References {
		if t := capture.NewTemplate(r.Name, r.Image); t != nil {
			refs = append(refs, t)
		}
	}
	logger.Info("calibration loaded", "region", calib.Region.Rect(), "references", len(refs))

	region := calib.Region.Rect()
	capSvc := capture.NewService(logger, region,
		time.Duration(cfg.CaptureIntervalMs)*time.Millisecond, cfg.MaxCaptureRetries, fatal)

	device, err := audio.OpenDevice(cfg.SampleRate, cfg.AudioFrameMs, cfg.LoopbackDevice)
	if err != nil {
		return nil, err
	}
	detector := audio.NewStrikeDetector(logger, audio.DetectorOptions{
		EnergyRatio:  cfg.EnergyRatio,
		FloorAlpha:   cfg.NoiseFloorAlpha,
		Refractory:   time.Duration(cfg.RefractoryMs) * time.Millisecond,
		WindowExtent: time.Duration(cfg.WindowSeconds) * time.Second,
	})
	audSvc := audio.NewService(logger, device, detector, cfg.MaxAudioRetries, fatal)

	locator, err := fishing.NewLocator(cfg, logger, region.Min, refs)
	if err != nil {
		device.Close()
		return nil, err
	}
	fusion := fishing.NewFusion(logger, time.Duration(cfg.FusionCooldownMs)*time.Millisecond)
	lure := fishing.NewLureTimer(time.Duration(cfg.LureCooldownMinutes) * time.Minute)
	fsm := fishing.NewCycleFSM(logger, cfg, fishing.ActionCallbacks{
		PressKey:     action.PressKey,
		MoveAndClick: action.MoveAndClick,
	}, lure, fatal)

	return &Session{
		cfg:     cfg,
		logger:  logger,
		capSvc:  capSvc,
		device:  device,
		audSvc:  audSvc,
		locator: locator,
		fusion:  fusion,
		fsm:     fsm,
		fatal:   fatal,
	}, nil
}

// Run starts all loops and blocks until the context is cancelled or a fatal
// condition surfaces. On return every loop has stopped and no further input
// will be issued.
func (s *Session) Run(ctx context.Context) error {
	s.capSvc.Start()
	s.audSvc.Start()
	s.fsm.Start(time.Now())

	ticker := time.NewTicker(time.Duration(s.cfg.OrchestratorTickMs) * time.Millisecond)
	defer ticker.Stop()

	var (
		lastSeq   uint64
		visual    fishing.VisualState
		prevCycle = s.fsm.Current()
	)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			s.logger.Info("session stopped")
			return nil
		case err := <-s.fatal:
			s.shutdown()
			s.logger.Error("session aborted", "error", err)
			return err
		case now := <-ticker.C:
			cycle := s.fsm.Current()
			if cycle == fishing.StateCasting && prevCycle != fishing.StateCasting {
				// New cast: stale tracking from the previous cast must not
				// seed a dip or confirm from an old splash.
				s.locator.ResetCast()
				s.fusion.ResetCast()
				s.audSvc.Drain()
			}
			prevCycle = cycle

			if snap := s.capSvc.LatestFrame(); snap.Image != nil && snap.Sequence != lastSeq {
				visual = s.locator.Locate(snap.Image, snap.CapturedAt)
				capture.RecycleFrame(snap.Image)
				lastSeq = snap.Sequence
			}

			if cycle == fishing.StateWatching {
				onset := s.audSvc.PendingEvent()
				if s.fusion.Evaluate(visual, onset, now) {
					s.fsm.StrikeAt(visual.X, visual.Y, now)
				}
			} else {
				s.audSvc.Drain()
			}

			s.fsm.Tick(now)
		}
	}
}

func (s *Session) shutdown() {
	s.fsm.Stop()
	s.fsm.Close()
	s.capSvc.Stop()
	s.audSvc.Stop()
	s.device.Close()
}
