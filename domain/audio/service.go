package audio

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// Service runs the near-continuous audio polling loop: read a frame, feed the
// detector, queue any onset event. Events sit in a small bounded queue the
// orchestrator drains without blocking; when the queue is full the oldest
// event is dropped, never the producer stalled.
type Service struct {
	reader     FrameReader
	detector   *StrikeDetector
	logger     *slog.Logger
	maxRetries int
	fatal      chan<- error

	running atomic.Bool
	events  chan Event

	frames   atomic.Uint64
	onsets   atomic.Uint64
	failures atomic.Uint64
}

// NewService wires a reader and detector into a polling service.
func NewService(logger *slog.Logger, reader FrameReader, detector *StrikeDetector, maxRetries int, fatal chan<- error) *Service {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Service{
		reader:     reader,
		detector:   detector,
		logger:     logger,
		maxRetries: maxRetries,
		fatal:      fatal,
		events:     make(chan Event, 8),
	}
}

// Start launches the polling loop.
func (s *Service) Start() {
	if s.running.Load() {
		return
	}
	s.running.Store(true)
	go s.loop()
}

// Stop requests loop exit; observed within one frame read.
func (s *Service) Stop() { s.running.Store(false) }

// Running reports loop activity.
func (s *Service) Running() bool { return s.running.Load() }

// PendingEvent pops the next queued onset without blocking.
func (s *Service) PendingEvent() *Event {
	select {
	case ev := <-s.events:
		return &ev
	default:
		return nil
	}
}

// Drain discards all queued events. Used while the cycle is not watching so
// stale onsets cannot confirm a later cast.
func (s *Service) Drain() {
	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

func (s *Service) loop() {
	consecutive := 0
	for s.running.Load() {
		frame, err := s.reader.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrDeviceClosed) {
				s.running.Store(false)
				return
			}
			s.failures.Add(1)
			consecutive++
			if s.logger != nil {
				s.logger.Error("audio read failed", "error", err, "attempt", consecutive)
			}
			if consecutive > s.maxRetries {
				s.running.Store(false)
				select {
				case s.fatal <- &DeviceError{Op: "read retries exhausted", Err: err}:
				default:
				}
				return
			}
			time.Sleep(time.Duration(consecutive) * 100 * time.Millisecond)
			continue
		}
		consecutive = 0
		s.frames.Add(1)

		if ev := s.detector.Process(frame); ev != nil {
			s.onsets.Add(1)
			select {
			case s.events <- *ev:
			default:
				select {
				case <-s.events:
				default:
				}
				select {
				case s.events <- *ev:
				default:
				}
			}
		}
	}
}
