// Session registry with automatic TTL eviction.
//
// DESIGN: Mutex-guarded map from session id to session. Insert, Get, and
// Remove are the only primitives; a background sweep evicts sessions idle
// past the TTL. An evicted id behaves exactly like an unknown one, so a
// SendMessage after expiry reports session-not-found.
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry is a thread-safe session store.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewRegistry creates a registry and starts the eviction sweep.
func NewRegistry(ttl, sweepInterval time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	r := &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
	if sweepInterval > 0 {
		go r.sweepLoop(sweepInterval)
	}
	return r
}

// Insert registers a session.
func (r *Registry) Insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Get returns the session for an id, or nil if unknown.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove deletes a session by id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// sweepLoop periodically evicts idle sessions.
func (r *Registry) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		r.sweep()
	}
}

// sweep removes sessions idle past the TTL. LastActivity is atomic, so the
// scan never waits on a session mutex held across a provider call.
func (r *Registry) sweep() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, s := range r.sessions {
		if s.LastActivity().Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Int("remaining", len(r.sessions)).Msg("Swept idle sessions")
	}
}
