package fishing

import "time"

// LureTimer is the process-wide lure cooldown. It lives for the whole
// session, independent of the cycle state: transitions never pause or reset
// it, only Fire does. The zero next-expiry means "apply immediately", which
// matches applying the lure on the first cast.
type LureTimer struct {
	cooldown time.Duration
	nextAt   time.Time
}

// NewLureTimer returns a timer that is already expired, so the first safe
// point applies the lure.
func NewLureTimer(cooldown time.Duration) *LureTimer {
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	return &LureTimer{cooldown: cooldown}
}

// Expired reports whether the lure should be (re)applied at now.
func (t *LureTimer) Expired(now time.Time) bool {
	return t.nextAt.IsZero() || !now.Before(t.nextAt)
}

// Fire marks the lure as applied at now; the next expiry is exactly one
// cooldown later regardless of the cycle state at fire time.
func (t *LureTimer) Fire(now time.Time) {
	t.nextAt = now.Add(t.cooldown)
}

// NextExpiry returns the next scheduled expiry (zero until the first fire).
func (t *LureTimer) NextExpiry() time.Time { return t.nextAt }
