package realtime

import "sync"

// Session is a live transport endpoint for one user. The registry owns the
// mapping; nothing else retains a Session beyond the call that looked it up.
type Session interface {
	Send(payload []byte) error
	Close(code int, reason string)
}

// Registry is the presence map: user id -> at most one live Session.
// It is the only cross-request shared mutable structure in the system, so
// all of its operations are O(1) map updates under one mutex and never
// block on I/O while holding it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Register installs the session for the user, superseding any previous one
// (last connect wins). The superseded session is closed after the lock is
// released.
func (r *Registry) Register(userID string, session Session) {
	r.mu.Lock()
	previous := r.sessions[userID]
	r.sessions[userID] = session
	r.mu.Unlock()

	if previous != nil && previous != session {
		previous.Close(closeSessionReplaced, "session replaced")
	}
}

// Unregister removes the mapping only when the stored session is the one
// given. A stale disconnect racing a reconnect therefore never evicts the
// newer connection.
func (r *Registry) Unregister(userID string, session Session) {
	r.mu.Lock()
	if current, ok := r.sessions[userID]; ok && current == session {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()
}

// Lookup is a pure read.
func (r *Registry) Lookup(userID string) (Session, bool) {
	r.mu.RLock()
	session, ok := r.sessions[userID]
	r.mu.RUnlock()
	return session, ok
}
