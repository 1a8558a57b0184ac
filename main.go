package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	hook "github.com/robotn/gohook"

	"github.com/soocke/wetfish-go/app"
	"github.com/soocke/wetfish-go/calibration"
	"github.com/soocke/wetfish-go/config"
	"github.com/soocke/wetfish-go/debug"
	"github.com/soocke/wetfish-go/domain/capture"
)

func main() {
	var (
		configPath = flag.String("config", "config.json", "path to the JSON config file")
		calibPath  = flag.String("calibration", "calibration.json", "path to the calibration file")
		debugMode  = flag.Bool("debug", false, "enable debug logging and runtime stats")
		castKey    = flag.String("cast-key", "", "override the cast key binding")
		lureKey    = flag.String("lure-key", "", "override the lure key binding")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Defaults still apply; a broken file is worth knowing about.
		NewLogger(slog.LevelWarn).Warn("config load failed, using defaults", "path", *configPath, "error", err)
	}
	if *debugMode {
		cfg.Debug = true
	}
	if *castKey != "" {
		cfg.CastKey = *castKey
	}
	if *lureKey != "" {
		cfg.LureKey = *lureKey
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)

	display, err := capture.DisplayBounds()
	if err != nil {
		logger.Error("display bounds unavailable", "error", err)
		os.Exit(1)
	}

	calib, err := calibration.Load(*calibPath, display)
	if err != nil {
		logger.Error("calibration load failed", "path", *calibPath, "error", err)
		os.Exit(1)
	}

	session, err := app.NewSession(cfg, logger, calib)
	if err != nil {
		logger.Error("session setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ESC is the panic button: stop the cycle even when the game window holds
	// keyboard focus.
	hook.Register(hook.KeyDown, []string{"esc"}, func(e hook.Event) {
		logger.Info("escape pressed, stopping")
		cancel()
	})
	events := hook.Start()
	defer hook.End()
	go hook.Process(events)

	if cfg.Debug {
		debug.StartRuntimeLogger(2*time.Second, logger)
	}

	logger.Info("session starting",
		"region", calib.Region.Rect(),
		"cast_key", cfg.CastKey,
		"lure_key", cfg.LureKey,
		"lure_cooldown_min", cfg.LureCooldownMinutes,
	)

	if err := session.Run(ctx); err != nil {
		logger.Error("session terminated", "error", err)
		os.Exit(1)
	}
}
