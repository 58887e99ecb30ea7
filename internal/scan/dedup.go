package scan

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is how long a repeat of the last accepted code is ignored.
const DefaultDebounceWindow = 3 * time.Second

// DedupGate suppresses repeated processing of the same code within a short
// window, e.g. a QR code that stays in view across many frames. It is not the
// once-per-day rule; the ledger owns that.
type DedupGate struct {
	window time.Duration

	mu       sync.Mutex
	lastCode string
	lastAt   time.Time
}

// NewDedupGate creates a gate. A negative window is treated as zero.
func NewDedupGate(window time.Duration) *DedupGate {
	if window < 0 {
		window = 0
	}
	return &DedupGate{window: window}
}

// ShouldProcess accepts code unless it equals the last accepted code and less
// than the window has passed since. Acceptance records code and now.
func (g *DedupGate) ShouldProcess(code string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if code == g.lastCode && !g.lastAt.IsZero() && now.Sub(g.lastAt) < g.window {
		return false
	}
	g.lastCode = code
	g.lastAt = now
	return true
}
