package status

import (
	"sync"
	"time"
)

// ResetTimer runs a single pending action after a fixed delay. Arming it again
// stops the previous timer; an action that already started is not affected,
// so callers guard it with a generation check.
type ResetTimer struct {
	delay time.Duration

	mu      sync.Mutex
	pending *time.Timer
}

// NewResetTimer creates a timer that fires delay after each Arm.
func NewResetTimer(delay time.Duration) *ResetTimer {
	return &ResetTimer{delay: delay}
}

// Arm schedules fn, replacing any action still waiting.
func (t *ResetTimer) Arm(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
	}
	t.pending = time.AfterFunc(t.delay, fn)
}

// Stop cancels the waiting action, if any.
func (t *ResetTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
