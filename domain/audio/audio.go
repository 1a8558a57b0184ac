// Package audio captures system sound and detects splash onsets. The
// detector only depends on the FrameReader capability; it does not care
// whether samples come from a loopback device, a microphone, or a test stub.
package audio

import (
	"fmt"
	"time"
)

// Frame is one short block of mono float32 samples with its capture time.
type Frame struct {
	Samples []float32
	At      time.Time
}

// FrameReader yields successive audio frames. ReadFrame blocks until a frame
// is available or the source fails.
type FrameReader interface {
	ReadFrame() (Frame, error)
}

// Event is a detected acoustic onset with its energy magnitude.
type Event struct {
	At     time.Time
	Energy float64
}

// DeviceError marks an audio device failure (disconnected, denied, or
// stopped). Transient instances are retried by the audio service.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string { return fmt.Sprintf("audio: %s: %v", e.Op, e.Err) }
func (e *DeviceError) Unwrap() error { return e.Err }
