// Package session models the single interactive session: who is logged in,
// their capabilities, and the per-customer caches that live until logout.
package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/scoring"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user/entity"
)

// Session is created at login and discarded at logout.
type Session struct {
	ID          string
	User        entity.PublicUser
	Permissions access.Capabilities
	CreatedAt   time.Time

	mu             sync.Mutex
	principal      access.Principal
	customer       string
	simulations    map[string]*scoring.Simulation
	histories      map[string][]scoring.HistoryPoint
	rng            *rand.Rand
	defaultTarget  int
	historyPeriods int
}

func newSession(id string, u entity.User, cfg Config, now time.Time) *Session {
	seed := cfg.HistorySeed
	if seed == 0 {
		seed = now.UnixNano()
	}
	return &Session{
		ID:             id,
		User:           u.Public(),
		Permissions:    u.Role.Capabilities(),
		CreatedAt:      now,
		principal:      u.Principal(),
		simulations:    make(map[string]*scoring.Simulation),
		histories:      make(map[string][]scoring.HistoryPoint),
		rng:            rand.New(rand.NewSource(seed)),
		defaultTarget:  cfg.DefaultTarget,
		historyPeriods: cfg.HistoryPeriods,
	}
}

// Principal is the acting user for permission checks.
func (s *Session) Principal() access.Principal { return s.principal }

func (s *Session) Can(c access.Capability) bool { return s.Permissions.Has(c) }

// SelectCustomer records the customer currently on screen.
func (s *Session) SelectCustomer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = id
}

func (s *Session) CurrentCustomer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customer
}

// WithSimulation runs fn on the customer's simulation, creating it with the
// default target on first use.
func (s *Session) WithSimulation(customerID string, fn func(*scoring.Simulation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sim, ok := s.simulations[customerID]
	if !ok {
		sim = scoring.NewSimulation(s.defaultTarget)
		s.simulations[customerID] = sim
	}
	return fn(sim)
}

// DropSimulation forgets the customer's overrides and target.
func (s *Session) DropSimulation(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.simulations, customerID)
}

// History returns the customer's mock score series, generated on first call.
func (s *Session) History(customerID string, now time.Time) []scoring.HistoryPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[customerID]
	if !ok {
		h = scoring.GenerateHistory(s.rng, now, s.historyPeriods)
		s.histories[customerID] = h
	}
	return h
}

type ctxKey struct{}

// NewContext attaches s to ctx.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by the auth middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
