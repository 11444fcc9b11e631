package session

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Manager keeps independent sessions, one per user or browser tab. Sessions
// share stateless collaborators but never an index.
type Manager struct {
	deps Deps
	cfg  Config

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	order    []uuid.UUID
}

// NewManager creates a manager that builds sessions from deps and cfg.
func NewManager(deps Deps, cfg Config) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{deps: deps, cfg: cfg, sessions: make(map[uuid.UUID]*Session)}
}

// Create starts a new empty session.
func (m *Manager) Create() *Session {
	s := New(m.deps, m.cfg)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.order = append(m.order, s.ID)
	m.mu.Unlock()
	m.deps.Logger.Debug("Created session", slog.String("session", s.ID.String()))
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close tears down and forgets a session. It reports whether the id was known.
func (m *Manager) Close(id uuid.UUID) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.order = slices.DeleteFunc(m.order, func(x uuid.UUID) bool { return x == id })
	}
	m.mu.Unlock()
	if ok {
		s.Close()
		m.deps.Logger.Debug("Closed session", slog.String("session", id.String()))
	}
	return ok
}

// CloseAll tears down every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.order = nil
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs lists open sessions, oldest first.
func (m *Manager) IDs() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}
