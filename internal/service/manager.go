package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cateradmin/api/internal/auth"
	"github.com/cateradmin/api/internal/config"
	"github.com/cateradmin/api/internal/enum"
	"github.com/google/uuid"
)

// Manager keeps the open editing sessions.
type Manager struct {
	schemes  []config.Scheme
	backend  Backend
	notifier Notifier

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a Manager. A nil notifier drops events.
func NewManager(schemes []config.Scheme, backend Backend, notifier Notifier) *Manager {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Manager{
		schemes:  schemes,
		backend:  backend,
		notifier: notifier,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Schemes returns the configured catalog schemes.
func (m *Manager) Schemes() []config.Scheme {
	return m.schemes
}

// Open loads the scheme's catalog into a new session.
func (m *Manager) Open(ctx context.Context, schemeName string) (*Session, error) {
	scheme, ok := config.FindScheme(m.schemes, schemeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, schemeName)
	}

	s := newSession(uuid.New(), scheme, m.backend, m.notifier)
	items, err := m.backend.List(auth.WithSessionID(ctx, s.id), scheme)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", scheme.Name, err)
	}
	if err := s.load(items); err != nil {
		return nil, fmt.Errorf("open %s: %w", scheme.Name, err)
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns snapshots of every open session, oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]Snapshot, len(sessions))
	for i, s := range sessions {
		out[i] = s.Snapshot()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// Close discards a session and its unsaved edits.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.notifier.Publish(id, enum.EventSessionClosed, map[string]string{"id": id.String()})
	return nil
}
