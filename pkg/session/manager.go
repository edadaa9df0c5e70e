//go:build linux || darwin

package session

import (
	"github.com/ferama/ptyrun/pkg/conf"
	"github.com/ferama/ptyrun/pkg/registry"
)

// Manager keeps track of live sessions. A session leaves the manager as soon
// as its process is reaped.
type Manager struct {
	sessions *registry.Registry[*Session]
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		sessions: registry.NewRegistry[*Session](),
	}
}

// Start starts a session and registers it.
func (m *Manager) Start(cfg *conf.SessionConf) (int, *Session, error) {
	s, err := Start(cfg)
	if err != nil {
		return 0, nil, err
	}
	id := m.sessions.Add(s)
	go func() {
		<-s.Done()
		m.sessions.Delete(id)
	}()
	return id, s, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id int) (*Session, error) {
	return m.sessions.GetByID(id)
}

// List returns a snapshot of the live sessions.
func (m *Manager) List() map[int]*Session {
	return m.sessions.GetAll()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// KillAll kills every live session.
func (m *Manager) KillAll() {
	for id, s := range m.sessions.GetAll() {
		if err := s.Kill(); err != nil && err != ErrNotRunning {
			log.Printf("cannot kill session %d (%s): %s", id, s.Name, err)
		}
	}
}
