// Package status holds what the operator display shows and the sinks that
// carry scan outcomes out of the coordinator.
package status

import (
	"sync"
	"time"

	"scanattend/internal/scan"
)

// IdleMessage is shown while no recent outcome is on screen.
const IdleMessage = "Ready to scan"

// State is a snapshot of the display.
type State struct {
	Idle       bool          `json:"idle"`
	Message    string        `json:"message"`
	Outcome    *scan.Outcome `json:"outcome,omitempty"`
	Generation uint64        `json:"generation"`
	Since      time.Time     `json:"since"`
}

// Board is the current operator status. Each published outcome replaces the
// previous one and arms a reset to idle; a reset only applies if no newer
// outcome was published after it was armed.
type Board struct {
	timer *ResetTimer
	now   func() time.Time

	mu    sync.RWMutex
	state State
	subs  []chan State
}

// NewBoard creates an idle board that reverts to idle resetDelay after each outcome.
func NewBoard(resetDelay time.Duration) *Board {
	b := &Board{timer: NewResetTimer(resetDelay), now: time.Now}
	b.state = State{Idle: true, Message: IdleMessage, Since: b.now()}
	return b
}

// Publish shows o and arms the reset timer.
func (b *Board) Publish(o scan.Outcome) {
	b.mu.Lock()
	b.state = State{
		Message:    o.Message(),
		Outcome:    &o,
		Generation: b.state.Generation + 1,
		Since:      b.now(),
	}
	gen := b.state.Generation
	b.notify()
	// Armed under b.mu so the pending reset always belongs to the newest outcome.
	b.timer.Arm(func() { b.resetIf(gen) })
	b.mu.Unlock()
}

func (b *Board) resetIf(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Generation != gen {
		return
	}
	b.state = State{
		Idle:       true,
		Message:    IdleMessage,
		Generation: gen + 1,
		Since:      b.now(),
	}
	b.notify()
}

// Current returns the displayed state.
func (b *Board) Current() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Subscribe returns a channel of state changes. Slow readers miss updates
// rather than block publishers. cancel releases the channel.
func (b *Board) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 4)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.subs {
			if c == ch {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

// notify must be called with b.mu held.
func (b *Board) notify() {
	for _, ch := range b.subs {
		select {
		case ch <- b.state:
		default:
		}
	}
}

// Close stops a pending reset.
func (b *Board) Close() {
	b.timer.Stop()
}
