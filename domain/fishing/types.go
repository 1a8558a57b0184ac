package fishing

// VisualKind enumerates the bobber's visual classification.
type VisualKind int

const (
	KindAbsent VisualKind = iota
	KindFloating
	KindDipping
)

func (k VisualKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindFloating:
		return "floating"
	case KindDipping:
		return "dipping"
	default:
		return "unknown"
	}
}

// VisualState is the locator's per-frame verdict: classification, confidence
// in [0,1], and the matched position in screen coordinates (valid when Kind
// is not Absent).
type VisualState struct {
	Kind       VisualKind
	Confidence float64
	X, Y       int
}

// CycleState enumerates finite states of the fishing cycle.
type CycleState int

const (
	StateIdle CycleState = iota
	StateCasting
	StateWatching
	StateStriking
	StateLooting
	StateRecovering
)

func (s CycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCasting:
		return "casting"
	case StateWatching:
		return "watching"
	case StateStriking:
		return "striking"
	case StateLooting:
		return "looting"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// ActionCallbacks externalize OS input injection (cast key, lure key, loot
// click). An error from any callback aborts the session.
type ActionCallbacks struct {
	PressKey     func(binding string) error
	MoveAndClick func(x, y int) error
}

// CycleListener is called on each successful state transition.
type CycleListener func(prev, next CycleState)
