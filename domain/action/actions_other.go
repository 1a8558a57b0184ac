//go:build !windows

package action

import (
	"strings"
	"time"

	"github.com/go-vgo/robotgo"
)

// PressKey sends a key down followed by a key up for the binding (e.g. "F3",
// "r"), holding it for a randomized human-like duration.
func PressKey(binding string) error {
	key := strings.ToLower(strings.TrimSpace(binding))
	if key == "" {
		return &InjectionError{Op: "empty key binding"}
	}
	if err := robotgo.KeyToggle(key, "down"); err != nil {
		return &InjectionError{Op: "key down " + key, Err: err}
	}
	time.Sleep(time.Duration(holdMs()) * time.Millisecond)
	if err := robotgo.KeyToggle(key, "up"); err != nil {
		return &InjectionError{Op: "key up " + key, Err: err}
	}
	return nil
}

// MoveAndClick positions the cursor near (x, y) with a small random offset
// and issues a right click.
func MoveAndClick(x, y int) error {
	robotgo.Move(x+jitterPx(), y+jitterPx())
	robotgo.MilliSleep(50)
	robotgo.Click("right", false)
	return nil
}
