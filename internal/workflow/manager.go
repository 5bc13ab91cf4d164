package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"receiving-service/internal/models"
	"receiving-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager keeps workflow sessions by id and drops the ones left idle
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	catalog  Catalog
	ledger   Ledger
	timeout  time.Duration
	onRemove []func(id string)
	now      func() time.Time
	logger   *zap.Logger
}

// NewManager creates a session manager. A zero timeout keeps sessions forever.
func NewManager(catalog Catalog, ledger Ledger, timeout time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		catalog:  catalog,
		ledger:   ledger,
		timeout:  timeout,
		now:      time.Now,
		logger:   util.GetLogger(),
	}
}

// OnRemove registers a callback run after a session is removed or expires
func (m *Manager) OnRemove(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemove = append(m.onRemove, fn)
}

// Create starts a new idle session
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := newSession(uuid.New().String(), m.catalog, m.ledger, m.now)
	m.sessions[s.ID] = s
	m.logger.Debug("Workflow session created", zap.String("session_id", s.ID))
	return s
}

// Get returns the session with id
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	return s, nil
}

// Remove drops a session
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	hooks := append([]func(string){}, m.onRemove...)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	for _, fn := range hooks {
		fn(id)
	}
	return nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Expire removes sessions idle for longer than the timeout and returns how many went
func (m *Manager) Expire() int {
	if m.timeout <= 0 {
		return 0
	}

	m.mu.Lock()
	cutoff := m.now().Add(-m.timeout)
	var expired []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	hooks := append([]func(string){}, m.onRemove...)
	m.mu.Unlock()

	for _, id := range expired {
		m.logger.Info("Workflow session expired", zap.String("session_id", id))
		for _, fn := range hooks {
			fn(id)
		}
	}
	return len(expired)
}

// Run expires idle sessions every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Expire()
		}
	}
}
