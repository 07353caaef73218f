// Package session tracks logged-in users with opaque bearer tokens held in
// memory. Sessions expire after a configurable idle lifetime and are swept
// periodically.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airsial/opshub/pkg/logger"
)

// Session is one authenticated login.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager owns the active session set.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a session manager with the given session lifetime.
func NewManager(ttl time.Duration, log *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   log.Named("sessions"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Create opens a session for an authenticated user and returns it. The
// token is an opaque random identifier.
func (m *Manager) Create(username, role string) *Session {
	now := time.Now().UTC()
	s := &Session{
		Token:     uuid.NewString(),
		Username:  username,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()

	m.logger.Info("Session created",
		logger.String("username", username),
		logger.String("role", role),
		logger.Time("expires_at", s.ExpiresAt))
	return s
}

// Get resolves a token to its session. Expired sessions are dropped on
// access and reported as absent.
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(s.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return nil, false
	}
	out := *s
	return &out, true
}

// Destroy ends a session. Unknown tokens are ignored.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	s, ok := m.sessions[token]
	if ok {
		delete(m.sessions, token)
	}
	m.mu.Unlock()

	if ok {
		m.logger.Info("Session destroyed", logger.String("username", s.Username))
	}
}

// DestroyUser ends every session belonging to a username, for example when
// the account is deleted.
func (m *Manager) DestroyUser(username string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for token, s := range m.sessions {
		if s.Username == username {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start launches the periodic sweep of expired sessions.
func (m *Manager) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				if removed := m.sweep(); removed > 0 {
					m.logger.Debug("Swept expired sessions", logger.Int("removed", removed))
				}
			}
		}
	}()
}

// Stop halts the sweep loop.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) sweep() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}
