package upload

import (
	"sync"
	"time"

	"github.com/drivegate/drivegate"
)

// Session is an immutable record of one in-progress chunked upload. It is
// passed by value; the opaque Handle issued by the upstream gateway is the
// only coordination token between chunk submissions.
type Session struct {
	ID               string
	Handle           string
	DriveID          string
	Path             string
	ConflictBehavior drivegate.ConflictBehavior
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// Expired reports whether the session may no longer accept chunks as of now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore tracks sessions created by this process, keyed by handle.
// Implementations must be safe for concurrent use. A store is advisory: in
// multi-instance deployments a chunk may arrive at a process that never saw
// the session created, so absence from the store is not an error.
type SessionStore interface {
	// Put records a session under its handle.
	Put(s Session)

	// Get returns the session for a handle, if this store has it.
	Get(handle string) (Session, bool)

	// Delete removes a session once it has completed or failed.
	Delete(handle string)

	// Sweep removes every session expired as of now and returns how many were
	// removed. Sweeping is explicit; the store runs no background work.
	Sweep(now time.Time) int
}

// MemoryStore is an in-memory SessionStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore initializes an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Put records a session under its handle.
func (m *MemoryStore) Put(s Session) {
	m.mu.Lock()
	m.sessions[s.Handle] = s
	m.mu.Unlock()
}

// Get returns the session for a handle, if present.
func (m *MemoryStore) Get(handle string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[handle]
	return s, ok
}

// Delete removes a session.
func (m *MemoryStore) Delete(handle string) {
	m.mu.Lock()
	delete(m.sessions, handle)
	m.mu.Unlock()
}

// Sweep removes all sessions expired as of now.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for handle, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, handle)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
