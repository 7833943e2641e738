package service

import (
	"sync"
	"time"
)

// Session states. One session exists per scanning device; transitions are
// synchronous and never block on I/O.
type sessionState int

const (
	stateIdle sessionState = iota
	stateLocked
	stateDisplaying
)

// Default hold windows before the scanner re-arms. Denials hold slightly
// longer because operators need time to read the reason.
const (
	DefaultAllowedHold = 3500 * time.Millisecond
	DefaultDeniedHold  = 4 * time.Second
)

// Session is the per-device scan state machine:
//
//	Idle -> Locked (a payload is being processed)
//	Locked -> Displaying (result shown, hold timer armed)
//	Displaying -> Idle (timer elapsed, or operator dismissed)
//
// While Locked, every incoming frame is ignored. While Displaying, a frame
// carrying the same payload as the displayed result is ignored (duplicate
// suppression); a different payload interrupts the display and is
// processed. The generation counter guards against a stale timer clearing
// a newer result.
type Session struct {
	mu          sync.Mutex
	state       sessionState
	payload     string // payload of the displayed or in-flight scan
	gen         uint64
	timer       *time.Timer
	allowedHold time.Duration
	deniedHold  time.Duration
}

func newSession(allowedHold, deniedHold time.Duration) *Session {
	if allowedHold <= 0 {
		allowedHold = DefaultAllowedHold
	}
	if deniedHold <= 0 {
		deniedHold = DefaultDeniedHold
	}
	return &Session{allowedHold: allowedHold, deniedHold: deniedHold}
}

// TryLock attempts the Idle/Displaying -> Locked transition for a payload.
// It returns false when the scan must be ignored: the session is already
// processing, or the payload is the one currently displayed.
func (s *Session) TryLock(payload string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateLocked:
		return false
	case stateDisplaying:
		if payload == s.payload {
			return false
		}
		// A different payload interrupts the display.
		s.stopTimerLocked()
	}

	s.state = stateLocked
	s.payload = payload
	s.gen++
	return true
}

// FinishDisplay moves Locked -> Displaying and arms the hold timer. The
// same payload stays suppressed until the timer elapses or the operator
// dismisses.
func (s *Session) FinishDisplay(payload string, allowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateLocked {
		return
	}

	hold := s.deniedHold
	if allowed {
		hold = s.allowedHold
	}

	s.state = stateDisplaying
	s.payload = payload
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(hold, func() { s.expire(gen) })
}

// Abort releases the lock without displaying anything. Used on the error
// path so the lock is never left held.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateLocked {
		return
	}
	s.state = stateIdle
	s.payload = ""
	s.gen++
}

// Dismiss clears a displayed result immediately and lifts duplicate
// suppression for its payload, allowing an immediate re-scan of the same
// code. No-op unless a result is displayed.
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateDisplaying {
		return
	}
	s.stopTimerLocked()
	s.state = stateIdle
	s.payload = ""
	s.gen++
}

// Displaying reports whether a result is currently held, and for which
// payload.
func (s *Session) Displaying() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateDisplaying {
		return "", false
	}
	return s.payload, true
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.state != stateDisplaying {
		return
	}
	s.state = stateIdle
	s.payload = ""
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// SessionManager hands out one Session per device label.
type SessionManager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	allowedHold time.Duration
	deniedHold  time.Duration
}

func NewSessionManager(allowedHold, deniedHold time.Duration) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		allowedHold: allowedHold,
		deniedHold:  deniedHold,
	}
}

func (m *SessionManager) Get(deviceLabel string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[deviceLabel]
	if !ok {
		s = newSession(m.allowedHold, m.deniedHold)
		m.sessions[deviceLabel] = s
	}
	return s
}

// Dismiss clears the displayed result for a device, if any.
func (m *SessionManager) Dismiss(deviceLabel string) {
	m.Get(deviceLabel).Dismiss()
}
