package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/scoring"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/utilities"
)

// Authenticator verifies credentials.
type Authenticator interface {
	Authenticate(username, password string) (entity.User, error)
}

// HistoryClearer drops undo/redo history when a session ends.
type HistoryClearer interface {
	ClearHistory()
}

// Config holds the per-session defaults.
type Config struct {
	DefaultTarget  int
	HistoryPeriods int
	// HistorySeed seeds the mock score history; 0 seeds from the clock.
	HistorySeed int64
}

// Manager owns the single active session. A new login replaces it.
type Manager struct {
	mu      sync.Mutex
	active  *Session
	users   Authenticator
	history HistoryClearer
	tokens  *TokenIssuer
	cfg     Config
	logger  *zap.SugaredLogger
	now     func() time.Time
	newID   func() string
}

func NewManager(users Authenticator, history HistoryClearer, tokens *TokenIssuer, cfg Config, logger *zap.SugaredLogger) *Manager {
	if cfg.DefaultTarget == 0 {
		cfg.DefaultTarget = scoring.DefaultTarget
	}
	if cfg.HistoryPeriods == 0 {
		cfg.HistoryPeriods = scoring.DefaultHistoryPeriods
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{
		users:   users,
		history: history,
		tokens:  tokens,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		newID:   utilities.NewKSUID,
	}
}

// Login authenticates and starts a session, returning it with its bearer
// token. Bad credentials leave the current session state untouched.
func (m *Manager) Login(username, password string) (*Session, string, error) {
	u, err := m.users.Authenticate(username, password)
	if err != nil {
		if errors.Is(err, user.ErrBadCredentials) {
			metrics.LoginAttempts.WithLabelValues("rejected").Inc()
			return nil, "", apperr.AuthFailed().Wrap(err)
		}
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, "", fmt.Errorf("authenticate: %w", err)
	}

	s := newSession(m.newID(), u, m.cfg, m.now())
	token, err := m.tokens.Issue(s.ID, u.Username, u.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	m.mu.Lock()
	prev := m.active
	m.active = s
	m.mu.Unlock()
	if prev != nil {
		m.history.ClearHistory()
		m.logger.Infow("session replaced", "previous", prev.User.Username, "username", u.Username)
	}
	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	m.logger.Infow("session started", "session_id", s.ID, "username", u.Username, "role", u.Role)
	return s, token, nil
}

// Logout ends the session with id. Ending a session that is no longer active is a no-op.
func (m *Manager) Logout(id string) {
	m.mu.Lock()
	if m.active == nil || m.active.ID != id {
		m.mu.Unlock()
		return
	}
	s := m.active
	m.active = nil
	m.mu.Unlock()
	m.history.ClearHistory()
	m.logger.Infow("session ended", "session_id", id, "username", s.User.Username)
}

// Active returns the current session, if any.
func (m *Manager) Active() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Resolve maps a bearer token to the active session. Tokens of ended or
// replaced sessions are rejected.
func (m *Manager) Resolve(token string) (*Session, error) {
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Unauthenticated().Wrap(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.ID != claims.ID {
		return nil, apperr.New(apperr.CodeUnauthenticated, "Session has ended").Wrap(ErrInvalidToken)
	}
	return m.active, nil
}
