package audio

import (
	"errors"
	"testing"
	"time"
)

// scriptedReader replays a fixed sequence of frames and errors.
type scriptedReader struct {
	frames []Frame
	errs   []error
	idx    int
}

func (r *scriptedReader) ReadFrame() (Frame, error) {
	if r.idx < len(r.errs) && r.errs[r.idx] != nil {
		err := r.errs[r.idx]
		r.idx++
		return Frame{}, err
	}
	if r.idx < len(r.frames) {
		f := r.frames[r.idx]
		r.idx++
		return f, nil
	}
	// Script exhausted; behave like a closed device so the loop exits.
	return Frame{}, ErrDeviceClosed
}

func burstScript(n int) *scriptedReader {
	r := &scriptedReader{}
	at := time.Now()
	for i := 0; i < n; i++ {
		r.frames = append(r.frames, constFrame(at, 0.01))
		at = at.Add(30 * time.Millisecond)
	}
	r.frames = append(r.frames, constFrame(at, 0.3))
	r.errs = make([]error, len(r.frames))
	return r
}

func TestService_QueuesOnsetFromBurst(t *testing.T) {
	detector := NewStrikeDetector(discardLogger, DetectorOptions{})
	svc := NewService(discardLogger, burstScript(20), detector, 3, make(chan error, 1))

	svc.Start()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ev := svc.PendingEvent(); ev != nil {
			if ev.Energy < 0.29 || ev.Energy > 0.31 {
				t.Fatalf("onset energy %f, want ~0.3", ev.Energy)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no onset queued from the burst script")
}

func TestService_DrainDiscardsQueuedEvents(t *testing.T) {
	detector := NewStrikeDetector(discardLogger, DetectorOptions{})
	svc := NewService(discardLogger, burstScript(20), detector, 3, make(chan error, 1))

	svc.Start()
	deadline := time.Now().Add(time.Second)
	for svc.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	svc.Drain()
	if ev := svc.PendingEvent(); ev != nil {
		t.Fatalf("event survived a drain: %+v", ev)
	}
}

func TestService_RetriesExhaustedReportsFatal(t *testing.T) {
	readErr := errors.New("device gone")
	r := &scriptedReader{errs: []error{readErr, readErr, readErr, readErr}}
	fatal := make(chan error, 1)
	svc := NewService(discardLogger, r, NewStrikeDetector(discardLogger, DetectorOptions{}), 2, fatal)

	svc.Start()
	select {
	case err := <-fatal:
		var devErr *DeviceError
		if !errors.As(err, &devErr) {
			t.Fatalf("fatal error %v, want *DeviceError", err)
		}
		if !errors.Is(err, readErr) {
			t.Fatalf("fatal error does not wrap the read error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no fatal error after exhausting retries")
	}
	if svc.Running() {
		t.Fatal("service still running after a fatal report")
	}
}

func TestService_ClosedDeviceStopsQuietly(t *testing.T) {
	r := &scriptedReader{} // empty script returns ErrDeviceClosed immediately
	fatal := make(chan error, 1)
	svc := NewService(discardLogger, r, NewStrikeDetector(discardLogger, DetectorOptions{}), 3, fatal)

	svc.Start()
	deadline := time.Now().Add(time.Second)
	for svc.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if svc.Running() {
		t.Fatal("service did not stop on a closed device")
	}
	select {
	case err := <-fatal:
		t.Fatalf("closed device must not be fatal, got %v", err)
	default:
	}
}
