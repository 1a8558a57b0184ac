package fishing

import (
	"log/slog"
	"math/rand"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/soocke/wetfish-go/config"
)

// CycleFSM runs the fishing cycle: idle → casting → watching → striking →
// looting → recovering → casting. All mutation happens on a single event
// loop goroutine; callers communicate through events that carry their own
// timestamps, so tests can drive the machine with a synthetic clock. Input
// injection happens inline on the loop (no shared lock is ever held) and is
// always preceded by a stop check, so no input is issued after Stop.
type CycleFSM struct {
	cur     atomic.Int32
	logger  *slog.Logger
	cfg     *config.Config
	actions ActionCallbacks
	lure    *LureTimer
	fatal   chan<- error
	rng     *rand.Rand

	events    chan interface{}
	listeners []CycleListener

	// Loop-goroutine state.
	state    CycleState
	started  bool
	stopped  bool
	deadline time.Time
	closed   atomic.Bool
}

type (
	evtStart struct{ now time.Time }
	evtTick  struct{ now time.Time }

	evtStrikeAt struct {
		x, y int
		now  time.Time
	}

	evtStop        struct{}
	evtAddListener struct{ l CycleListener }
)

// NewCycleFSM constructs the machine and starts its event loop in Idle.
func NewCycleFSM(logger *slog.Logger, cfg *config.Config, actions ActionCallbacks, lure *LureTimer, fatal chan<- error) *CycleFSM {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if lure == nil {
		lure = NewLureTimer(time.Duration(cfg.LureCooldownMinutes) * time.Minute)
	}
	f := &CycleFSM{
		logger:  logger,
		cfg:     cfg,
		actions: actions,
		lure:    lure,
		fatal:   fatal,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		events:  make(chan interface{}, 64),
		state:   StateIdle,
	}
	f.cur.Store(int32(StateIdle))
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger != nil {
					logger.Error("cycle fsm panic", "error", r, "stack", string(debug.Stack()))
				}
			}
		}()
		f.loop()
	}()
	return f
}

func (f *CycleFSM) loop() {
	for ev := range f.events {
		switch e := ev.(type) {
		case evtAddListener:
			f.listeners = append(f.listeners, e.l)
		case evtStart:
			if f.state == StateIdle && !f.stopped {
				f.started = true
				f.enterCasting(e.now)
			}
		case evtTick:
			f.handleTick(e.now)
		case evtStrikeAt:
			if f.state == StateWatching && !f.stopped {
				f.strike(e.x, e.y, e.now)
			}
		case evtStop:
			f.stopped = true
			f.transition(StateIdle)
		}
	}
}

func (f *CycleFSM) handleTick(now time.Time) {
	if f.stopped {
		return
	}
	switch f.state {
	case StateIdle:
		if f.started {
			f.maybeApplyLure(now)
		}
	case StateCasting:
		f.maybeApplyLure(now)
		if !now.Before(f.deadline) {
			f.deadline = now.Add(time.Duration(f.cfg.CastTimeoutSeconds) * time.Second)
			f.transition(StateWatching)
		}
	case StateWatching:
		f.maybeApplyLure(now)
		if !now.Before(f.deadline) {
			// Fishless or missed cast: re-cast, no loot is ever issued here.
			if f.logger != nil {
				f.logger.Info("watch timed out, re-casting")
			}
			f.enterCasting(now)
		}
	case StateStriking:
		if !now.Before(f.deadline) {
			f.deadline = now.Add(time.Duration(f.cfg.LootWaitMs) * time.Millisecond)
			f.transition(StateLooting)
		}
	case StateLooting:
		if !now.Before(f.deadline) {
			jitter := f.cfg.RecoverMinMs
			if span := f.cfg.RecoverMaxMs - f.cfg.RecoverMinMs; span > 0 {
				jitter += f.rng.Intn(span)
			}
			f.deadline = now.Add(time.Duration(jitter) * time.Millisecond)
			f.transition(StateRecovering)
		}
	case StateRecovering:
		if !now.Before(f.deadline) {
			f.enterCasting(now)
		}
	}
}

// enterCasting issues the cast key and arms the settle delay.
func (f *CycleFSM) enterCasting(now time.Time) {
	if f.stopped {
		return
	}
	if f.actions.PressKey != nil {
		if err := f.actions.PressKey(f.cfg.CastKey); err != nil {
			f.abort(err)
			return
		}
		if f.logger != nil {
			f.logger.Info("cast", "key", f.cfg.CastKey)
		}
	}
	f.deadline = now.Add(time.Duration(f.cfg.SettleDelayMs) * time.Millisecond)
	f.transition(StateCasting)
}

// strike issues the loot click at the bobber position. At most one strike is
// acted on per cast: the transition out of Watching makes later confirmations
// no-ops until the next cast.
func (f *CycleFSM) strike(x, y int, now time.Time) {
	if f.actions.MoveAndClick != nil {
		if err := f.actions.MoveAndClick(x, y); err != nil {
			f.abort(err)
			return
		}
		if f.logger != nil {
			f.logger.Info("loot", "x", x, "y", y)
		}
	}
	f.deadline = now.Add(time.Duration(f.cfg.StrikeHoldMs) * time.Millisecond)
	f.transition(StateStriking)
}

// maybeApplyLure fires the lure at safe points only (idle, casting-settle,
// watching) and pushes the current deadline by the post-application wait.
func (f *CycleFSM) maybeApplyLure(now time.Time) {
	if !f.lure.Expired(now) {
		return
	}
	if f.actions.PressKey != nil {
		if err := f.actions.PressKey(f.cfg.LureKey); err != nil {
			f.abort(err)
			return
		}
	}
	f.lure.Fire(now)
	if !f.deadline.IsZero() {
		f.deadline = f.deadline.Add(time.Duration(f.cfg.LurePostWaitMs) * time.Millisecond)
	}
	if f.logger != nil {
		f.logger.Info("lure applied", "key", f.cfg.LureKey, "next", f.lure.NextExpiry())
	}
}

func (f *CycleFSM) abort(err error) {
	if f.logger != nil {
		f.logger.Error("input action failed", "error", err)
	}
	f.stopped = true
	f.transition(StateIdle)
	if f.fatal != nil {
		select {
		case f.fatal <- err:
		default:
		}
	}
}

func (f *CycleFSM) transition(next CycleState) {
	prev := f.state
	if prev == next {
		return
	}
	f.state = next
	f.cur.Store(int32(next))
	if f.logger != nil {
		f.logger.Debug("cycle transition", "from", prev.String(), "to", next.String())
	}
	for _, l := range f.listeners {
		l(prev, next)
	}
}

// Public API. Events are timestamped by the caller.

func (f *CycleFSM) Start(now time.Time) { f.send(evtStart{now: now}) }

func (f *CycleFSM) Tick(now time.Time) { f.send(evtTick{now: now}) }

func (f *CycleFSM) StrikeAt(x, y int, now time.Time) {
	f.send(evtStrikeAt{x: x, y: y, now: now})
}

func (f *CycleFSM) Stop() { f.send(evtStop{}) }

func (f *CycleFSM) AddListener(l CycleListener) { f.send(evtAddListener{l: l}) }

// Current returns the active cycle state.
func (f *CycleFSM) Current() CycleState { return CycleState(f.cur.Load()) }

// Close shuts the event loop down. The FSM must not be used afterwards.
func (f *CycleFSM) Close() {
	if f.closed.CompareAndSwap(false, true) {
		close(f.events)
	}
}

func (f *CycleFSM) send(ev interface{}) {
	if f.closed.Load() {
		return
	}
	f.events <- ev
}
