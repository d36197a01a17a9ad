package session

import (
	"net"
	"sync"
)

// Manager is the reader/writer-locked session-id → session map of
// spec.md §5 ("User session map"). Ids are never reused within a server
// run, per spec.md §3's invariant — nextID only ever increases.
type Manager struct {
	mu      sync.RWMutex
	byID    map[uint32]*Session
	nextID  uint32
	maxUsers int
}

// NewManager builds a Manager bounded by maxUsers concurrent sessions
// (the `users` config key, SPEC_FULL.md §3).
func NewManager(maxUsers int) *Manager {
	return &Manager{byID: make(map[uint32]*Session), maxUsers: maxUsers}
}

// ErrServerFull is returned by Create when maxUsers sessions are already
// connected.
type ErrServerFull struct{}

func (ErrServerFull) Error() string { return "session: server full" }

// Create allocates a fresh, never-reused session id and registers a new
// Fresh-state Session for addr.
func (m *Manager) Create(addr net.Addr) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.byID) >= m.maxUsers {
		return nil, ErrServerFull{}
	}

	m.nextID++
	id := m.nextID

	s := newSession(id, addr)
	m.byID[id] = s
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(id uint32) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	return s, ok
}

// Remove closes and deregisters a session. It is a no-op if the session is
// already gone.
func (m *Manager) Remove(id uint32) {
	m.mu.Lock()
	s, ok := m.byID[id]
	if ok {
		delete(m.byID, id)
	}
	m.mu.Unlock()

	if ok {
		s.setState(Closed)
	}
}

// All returns a snapshot of every currently registered session.
func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	return out
}

// Count reports the number of currently registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
