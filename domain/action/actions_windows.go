//go:build windows

package action

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sys/windows"
)

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	procKeybdEvent   = user32.NewProc("keybd_event")
	procMouseEvent   = user32.NewProc("mouse_event")
	procSetCursorPos = user32.NewProc("SetCursorPos")
)

const (
	keyeventfKeyup       = 0x0002
	mouseeventfRightdown = 0x0008
	mouseeventfRightup   = 0x0010
)

// PressKey sends a key down followed by a key up for the binding (e.g. "F3",
// "R"), holding it for a randomized human-like duration.
func PressKey(binding string) error {
	vk, err := parseVK(binding)
	if err != nil {
		return err
	}
	procKeybdEvent.Call(uintptr(vk), 0, 0, 0)
	time.Sleep(time.Duration(holdMs()) * time.Millisecond)
	procKeybdEvent.Call(uintptr(vk), 0, keyeventfKeyup, 0)
	return nil
}

// MoveAndClick positions the cursor near (x, y) with a small random offset
// and issues a right click.
func MoveAndClick(x, y int) error {
	r, _, _ := procSetCursorPos.Call(uintptr(x+jitterPx()), uintptr(y+jitterPx()))
	if r == 0 {
		return &InjectionError{Op: "set cursor position", Err: windows.GetLastError()}
	}
	time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	procMouseEvent.Call(mouseeventfRightdown, 0, 0, 0, 0)
	time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	procMouseEvent.Call(mouseeventfRightup, 0, 0, 0, 0)
	return nil
}

// parseVK converts a key token (e.g. "F3", "R") into a Windows virtual-key
// code. Recognizes F1..F12, digits and single letters.
func parseVK(key string) (byte, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	if len(k) >= 2 && k[0] == 'F' {
		switch k {
		case "F10":
			return 0x79, nil
		case "F11":
			return 0x7A, nil
		case "F12":
			return 0x7B, nil
		}
		if len(k) == 2 {
			n := int(k[1] - '0')
			if n >= 1 && n <= 9 {
				return byte(0x70 + (n - 1)), nil // VK_F1=0x70
			}
		}
	}
	if len(k) == 1 && ((k[0] >= 'A' && k[0] <= 'Z') || (k[0] >= '0' && k[0] <= '9')) {
		return k[0], nil // letters and digits match VK codes
	}
	return 0, &InjectionError{Op: fmt.Sprintf("unknown key binding %q", key)}
}
