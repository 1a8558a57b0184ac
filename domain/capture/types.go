package capture

import (
	"fmt"
	"image"
	"time"
)

// FrameSnapshot carries the latest captured region frame and metadata.
type FrameSnapshot struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Sequence   uint64
}

// Stats summarises capture loop behaviour for instrumentation.
type Stats struct {
	Captures       uint64
	Failures       uint64
	AvgCapture     time.Duration
	LastCapture    time.Time
	LatestFrameAge time.Duration
	Sequence       uint64
}

// Error marks a screen capture failure. Transient instances are retried by
// the capture service; exhaustion of the retry budget surfaces the last one
// as a session-fatal condition.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("capture: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }
