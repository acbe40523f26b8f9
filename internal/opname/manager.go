package opname

import (
	"log/slog"
	"sync"

	"github.com/erazemk/opname/internal/metrics"
)

// Manager keeps at most one session per principal.
type Manager struct {
	inv     Inventory
	metrics *metrics.Metrics
	log     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty manager.
func NewManager(inv Inventory, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{inv: inv, metrics: m, log: logger, sessions: map[string]*Session{}}
}

// Start opens a fresh session for principal, closing any previous one.
func (m *Manager) Start(principal string) *Session {
	s := NewSession(m.inv, m.metrics, m.log.With("user", principal))

	m.mu.Lock()
	old := m.sessions[principal]
	m.sessions[principal] = s
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return s
}

// Get returns the open session of principal.
func (m *Manager) Get(principal string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[principal]
	return s, ok
}

// End closes and forgets the session of principal. It reports whether there
// was one.
func (m *Manager) End(principal string) bool {
	m.mu.Lock()
	s, ok := m.sessions[principal]
	delete(m.sessions, principal)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// CloseAll ends every session, for shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
