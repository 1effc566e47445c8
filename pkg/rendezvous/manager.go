package rendezvous

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"switchboard-hq/switchboard/pkg/proxy/types"
)

// ManagerConfig carries the directory's tunables.
type ManagerConfig struct {
	// HandshakeTimeout is the budget for Side B to arrive after A's ping.
	HandshakeTimeout time.Duration

	// TurnTimeout is the budget for a peer utterance per turn.
	TurnTimeout time.Duration

	// SessionTTL is the idle duration after which the sweep closes a session.
	SessionTTL time.Duration

	// MaxSessions is the hard directory capacity.
	MaxSessions int

	// CleanupInterval is the sweep period.
	CleanupInterval time.Duration

	// EvictIdle, when true, lets GetOrCreate close the idlest session to
	// admit a new one instead of returning overloaded.
	EvictIdle bool
}

// Manager is the directory of sessions keyed by session id. It owns lazy
// creation, admission control, and the TTL sweep. The directory mutex is
// short-held and never covers a session close or a rendezvous wait.
type Manager struct {
	cfg    ManagerConfig
	sink   EventSink
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	cron    *cron.Cron
	stopped sync.Once
}

// NewManager creates a session directory. sink may be nil.
func NewManager(cfg ManagerConfig, sink EventSink) *Manager {
	if sink == nil {
		sink = NopSink{}
	}
	return &Manager{
		cfg:      cfg,
		sink:     sink,
		logger:   slog.Default().With("component", "rendezvous.manager"),
		sessions: make(map[string]*Session),
	}
}

// Start launches the background sweep loop.
func (m *Manager) Start() error {
	m.cron = cron.New()
	spec := fmt.Sprintf("@every %s", m.cfg.CleanupInterval)
	if _, err := m.cron.AddFunc(spec, m.Sweep); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	m.cron.Start()

	m.logger.Info("session sweep scheduled",
		"interval", m.cfg.CleanupInterval.String(),
		"ttl", m.cfg.SessionTTL.String(),
	)
	return nil
}

// GetOrCreate returns the session for id, creating it when absent. A session
// found in the Closed state is replaced, so a request arriving after a
// handshake timeout starts a fresh handshake. When the directory is full the
// idlest session is evicted if configured, otherwise overloaded is returned.
func (m *Manager) GetOrCreate(id string) (*Session, error) {
	var evicted *Session

	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok && !session.Closed() {
		m.mu.Unlock()
		return session, nil
	}
	if ok {
		// Stale closed session awaiting sweep; replace it.
		delete(m.sessions, id)
	}

	if len(m.sessions) >= m.cfg.MaxSessions {
		if !m.cfg.EvictIdle {
			m.mu.Unlock()
			return nil, types.NewOverloadedError(
				fmt.Sprintf("session limit of %d reached", m.cfg.MaxSessions))
		}
		evicted = m.idlestLocked()
		if evicted == nil {
			m.mu.Unlock()
			return nil, types.NewOverloadedError(
				fmt.Sprintf("session limit of %d reached and no eviction candidate", m.cfg.MaxSessions))
		}
		delete(m.sessions, evicted.ID())
	}

	session = NewSession(id, m.cfg.HandshakeTimeout, m.cfg.TurnTimeout, m.sink)
	m.sessions[id] = session
	m.mu.Unlock()

	// Closing wakes goroutines; never do it under the directory mutex.
	if evicted != nil {
		m.logger.Warn("evicting idlest session",
			"evicted", evicted.ID(),
			"admitted", id,
		)
		evicted.Close(ReasonEvicted)
	}

	m.sink.SessionCreated(id)
	m.logger.Debug("session created", "session_id", id)
	return session, nil
}

// Get returns the session for id, or nil when absent.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Close administratively closes and removes the session for id.
func (m *Manager) Close(id string, reason CloseReason) bool {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	session.Close(reason)
	return true
}

// Count returns the number of sessions in the directory.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Snapshot returns redacted metadata for every session, ordered by id.
func (m *Manager) Snapshot() []SessionInfo {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Sweep closes sessions idle past the TTL and drops sessions already closed
// elsewhere (handshake timeouts, admin closes). The directory mutex is
// released before any session is closed.
func (m *Manager) Sweep() {
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.Closed() {
			delete(m.sessions, id)
			continue
		}
		if s.IsIdleFor(m.cfg.SessionTTL) {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Close(ReasonTTLExpired)
	}

	if len(expired) > 0 {
		m.logger.Info("session sweep completed",
			"expired", len(expired),
			"remaining", remaining,
		)
	}
}

// Shutdown stops the sweep and closes every session. Suspended callers
// observe session_gone.
func (m *Manager) Shutdown() {
	m.stopped.Do(func() {
		if m.cron != nil {
			m.cron.Stop()
		}

		m.mu.Lock()
		sessions := make([]*Session, 0, len(m.sessions))
		for _, s := range m.sessions {
			sessions = append(sessions, s)
		}
		m.sessions = make(map[string]*Session)
		m.mu.Unlock()

		for _, s := range sessions {
			s.Close(ReasonShutdown)
		}

		m.logger.Info("session manager stopped", "closed_sessions", len(sessions))
	})
}

// idlestLocked returns the session with the largest idle time. Caller holds
// the directory mutex.
func (m *Manager) idlestLocked() *Session {
	var (
		victim *Session
		idle   time.Duration
	)
	for _, s := range m.sessions {
		if d := s.IdleFor(); victim == nil || d > idle {
			victim = s
			idle = d
		}
	}
	return victim
}
