package session

import (
	"sync"

	"github.com/rs/zerolog"
)

type (
	// DisconnectHandler is told about sessions that dropped without an
	// explicit leave, so room state can be cleaned up the same way as
	// for a voluntary leave.
	DisconnectHandler interface {
		UnexpectedDisconnect(s *Session)
	}

	// Manager tracks every live session. Add and Remove are called
	// concurrently from many connection goroutines.
	Manager struct {
		mx       sync.Mutex
		sessions map[*Session]struct{}
		onDrop   DisconnectHandler
		logger   zerolog.Logger
	}

	ManagerConfig struct {
		Logger *zerolog.Logger
	}
)

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		sessions: make(map[*Session]struct{}),
		logger:   cfg.Logger.With().Str("component", "session-manager").Logger(),
	}
}

// SetDisconnectHandler wires the room layer in. Must be called before
// the first session is added.
func (m *Manager) SetDisconnectHandler(h DisconnectHandler) {
	m.onDrop = h
}

func (m *Manager) Add(s *Session) {
	m.mx.Lock()
	m.sessions[s] = struct{}{}
	count := len(m.sessions)
	m.mx.Unlock()
	m.logger.Info().Str("username", s.Username()).Int("sessions", count).Msg("session added")
}

// Remove drops s from the registry and cascades the disconnect into
// the room layer. Removing a session twice is a no-op.
func (m *Manager) Remove(s *Session) {
	m.mx.Lock()
	_, present := m.sessions[s]
	delete(m.sessions, s)
	count := len(m.sessions)
	m.mx.Unlock()
	if !present {
		return
	}
	m.logger.Info().Str("username", s.Username()).Int("sessions", count).Msg("session removed")
	if m.onDrop != nil {
		m.onDrop.UnexpectedDisconnect(s)
	}
}

// Snapshot copies the current session set, so iteration never races
// with Add or Remove.
func (m *Manager) Snapshot() []*Session {
	m.mx.Lock()
	defer m.mx.Unlock()
	sessions := make([]*Session, 0, len(m.sessions))
	for s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (m *Manager) Len() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return len(m.sessions)
}
