// Package action injects cast/lure key presses and the loot click into the
// game client. Windows uses the native keybd_event/mouse_event path; other
// platforms go through robotgo. Press timing and click position carry small
// random jitter so the input stream does not look machine-generated.
package action

import (
	"fmt"
	"math/rand"
)

// InjectionError marks a failed input injection. An inability to act makes
// the loop purposeless, so callers treat it as fatal.
type InjectionError struct {
	Op  string
	Err error
}

func (e *InjectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input: %s: %v", e.Op, e.Err)
	}
	return "input: " + e.Op
}

func (e *InjectionError) Unwrap() error { return e.Err }

// jitterPx returns a random offset in [-3, 3].
func jitterPx() int { return rand.Intn(7) - 3 }

// holdMs returns a human-like key hold duration in [100, 300) ms.
func holdMs() int { return 100 + rand.Intn(200) }
