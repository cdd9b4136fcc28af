// Package session owns chat sessions: their state machine, bounded history,
// the concurrent registry, and the manager orchestrating each turn.
//
// DESIGN: Session state is process-lifetime only. Each session carries its
// own mutex; two turns on the same session serialize, turns on different
// sessions run fully in parallel. The only cross-session shared state is the
// budget ledger, which synchronizes itself.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the explicit session state.
type Status string

const (
	// StatusActive accepts messages. Sessions are born Active; the transient
	// construction state never escapes CreateSession.
	StatusActive Status = "active"
	// StatusEnded is terminal.
	StatusEnded Status = "ended"
)

// validTransitions is the full transition table. Ended -> Ended is listed so
// ending an already ended session is an idempotent success, per the API
// contract; everything absent is an illegal transition.
var validTransitions = map[Status]map[Status]bool{
	StatusActive: {StatusActive: true, StatusEnded: true},
	StatusEnded:  {StatusEnded: true},
}

// ErrInvalidTransition reports an illegal state machine move. It indicates a
// programming error in the caller, not a recoverable condition.
var ErrInvalidTransition = errors.New("invalid session transition")

// Error taxonomy surfaced to the presentation layer.
var (
	// ErrSessionNotFound: unknown or expired session id. Recoverable by
	// creating a new session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionEnded: the session was explicitly ended. Recoverable by
	// creating a new session.
	ErrSessionEnded = errors.New("session ended")

	// ErrBudgetExceeded: pre-flight admission refused, no provider call was
	// made. Recoverable once the ledger is reset.
	ErrBudgetExceeded = errors.New("budget exceeded")
)

// Turn is one message in a session's ordered history.
type Turn struct {
	Role      Role
	Text      string
	Timestamp time.Time

	// Assistant turns only.
	ItemIDs          []int64 // referenced catalog items
	PromptTokens     int
	CompletionTokens int
}

// Session is one conversation. Owned by the registry; mutated only by the
// manager while holding mu.
type Session struct {
	ID      string
	OwnerID string // optional user id, empty for anonymous use

	mu        sync.Mutex
	status    Status
	history   *History
	createdAt time.Time

	// lastActivity holds unix nanos, atomic rather than mu-guarded: the
	// registry sweep reads it while a turn may be holding mu across a
	// provider call, and must not stall behind it.
	lastActivity atomic.Int64
}

// newSession allocates an Active session with a bounded history.
func newSession(id, ownerID string, historyWindow int) *Session {
	now := time.Now()
	s := &Session{
		ID:        id,
		OwnerID:   ownerID,
		status:    StatusActive,
		history:   NewHistory(historyWindow),
		createdAt: now,
	}
	s.touch(now)
	return s
}

// touch records activity. Safe without mu.
func (s *Session) touch(at time.Time) {
	s.lastActivity.Store(at.UnixNano())
}

// transition moves the session to a new status, validating against the
// transition table. Must be called with mu held.
func (s *Session) transition(to Status) error {
	allowed, ok := validTransitions[s.status]
	if !ok || !allowed[to] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, to)
	}
	s.status = to
	return nil
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastActivity returns the last activity timestamp. Safe without mu.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// CreatedAt returns the creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Turns returns a copy of the retained history, oldest first.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return nil
	}
	return s.history.Recent()
}
