package engine

import (
	"sync"
	"sync/atomic"
)

// Signals carries stop and pause requests from outside the worker
// goroutine. All methods are safe to call at any time, including
// before a run starts and after it ends.
type Signals struct {
	stopOnce sync.Once
	stopCh   chan struct{}
	paused   atomic.Bool
}

func NewSignals() *Signals {
	return &Signals{stopCh: make(chan struct{})}
}

// Stop requests a graceful stop. Idempotent.
func (s *Signals) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Stopped returns a channel closed once a stop has been requested.
func (s *Signals) Stopped() <-chan struct{} {
	return s.stopCh
}

// IsStopped reports whether a stop has been requested.
func (s *Signals) IsStopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// Pause suspends dispatch at the next action boundary.
func (s *Signals) Pause() { s.paused.Store(true) }

// Resume lifts a pause.
func (s *Signals) Resume() { s.paused.Store(false) }

// TogglePause flips the pause flag; used by the pause hotkey.
func (s *Signals) TogglePause() {
	for {
		old := s.paused.Load()
		if s.paused.CompareAndSwap(old, !old) {
			return
		}
	}
}

// IsPaused reports whether a pause is in effect.
func (s *Signals) IsPaused() bool { return s.paused.Load() }
