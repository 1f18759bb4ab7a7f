package form

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/ports"
)

// Session is one open registration screen.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	ctrl     *Controller
	lastSeen time.Time
}

// Do runs fn with exclusive access to the session's controller.
func (s *Session) Do(fn func(*Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return fn(s.ctrl)
}

// Observer is told the number of open sessions after every change.
// Implemented by the metrics package.
type Observer interface {
	SessionsOpen(n int)
}

// Manager keeps the open sessions keyed by a random id.
type Manager struct {
	users    ports.UserService
	sessions map[string]*Session
	mu       sync.RWMutex
	obs      Observer
	log      zerolog.Logger
}

// NewManager creates a Manager. obs may be nil.
func NewManager(users ports.UserService, log zerolog.Logger, obs Observer) *Manager {
	if obs == nil {
		obs = nopObserver{}
	}
	return &Manager{
		users:    users,
		sessions: make(map[string]*Session),
		obs:      obs,
		log:      log.With().Str("component", "form_sessions").Logger(),
	}
}

func (m *Manager) Open() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		ctrl:      NewController(m.users),
		lastSeen:  now,
	}
	m.sessions[s.ID] = s
	m.obs.SessionsOpen(len(m.sessions))
	m.log.Debug().Str("session_id", s.ID).Msg("form session opened")
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrFormNotFound
	}
	return s, nil
}

// Close discards a session. Closing an unknown id is a no-op.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.obs.SessionsOpen(len(m.sessions))
		m.log.Debug().Str("session_id", id).Msg("form session closed")
	}
}

// Sweep closes sessions idle for longer than ttl and returns how many it closed.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	closed := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			closed++
		}
	}
	if closed > 0 {
		m.obs.SessionsOpen(len(m.sessions))
		m.log.Info().Int("closed", closed).Msg("expired form sessions swept")
	}
	return closed
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

type nopObserver struct{}

func (nopObserver) SessionsOpen(int) {}
