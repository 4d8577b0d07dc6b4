package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/scoring"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user/entity"
)

type stubUsers map[string]entity.User

func (s stubUsers) Authenticate(username, password string) (entity.User, error) {
	u, ok := s[username]
	if !ok || password != username+"-pw" {
		return entity.User{}, user.ErrBadCredentials
	}
	return u, nil
}

type failingUsers struct{}

func (failingUsers) Authenticate(string, string) (entity.User, error) {
	return entity.User{}, errors.New("disk full")
}

type historyCounter struct{ cleared int }

func (h *historyCounter) ClearHistory() { h.cleared++ }

var testUsers = stubUsers{
	"admin":    {Username: "admin", Role: access.RoleAdmin, SubscriberIDs: []string{"SUB001", "SUB002", "SUB003"}},
	"manager1": {Username: "manager1", Role: access.RoleManager, SubscriberIDs: []string{"SUB001", "SUB002"}},
}

func newManager(t *testing.T) (*Manager, *historyCounter) {
	t.Helper()
	h := &historyCounter{}
	m := NewManager(testUsers, h, NewTokenIssuer("test-secret", time.Hour), Config{HistorySeed: 11}, nil)
	n := 0
	m.newID = func() string { n++; return fmt.Sprintf("sess-%d", n) }
	return m, h
}

func TestLogin_WrongPasswordLeavesUnauthenticated(t *testing.T) {
	m, h := newManager(t)

	s, token, err := m.Login("admin", "wrongpw")
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Empty(t, token)
	assert.Equal(t, apperr.CodeAuthFailed, apperr.As(err).Code)
	assert.Equal(t, "Invalid username or password", apperr.As(err).Message)

	_, ok := m.Active()
	assert.False(t, ok)
	assert.Zero(t, h.cleared)
}

func TestLogin_BackendFailureIsInternal(t *testing.T) {
	m := NewManager(failingUsers{}, &historyCounter{}, NewTokenIssuer("k", time.Hour), Config{}, nil)
	_, _, err := m.Login("admin", "admin-pw")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.As(err).Code)
}

func TestLoginResolveLogout(t *testing.T) {
	m, h := newManager(t)

	s, token, err := m.Login("manager1", "manager1-pw")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.ID)
	assert.Equal(t, access.RoleManager.Capabilities(), s.Permissions)
	assert.True(t, s.Can(access.CapDelete))
	assert.False(t, s.Can(access.CapManageUsers))

	got, err := m.Resolve(token)
	require.NoError(t, err)
	assert.Same(t, s, got)

	m.Logout(s.ID)
	assert.Equal(t, 1, h.cleared)
	_, err = m.Resolve(token)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.As(err).Code)

	m.Logout(s.ID)
	assert.Equal(t, 1, h.cleared)
}

func TestLogin_ReplacesActiveSession(t *testing.T) {
	m, h := newManager(t)

	_, first, err := m.Login("manager1", "manager1-pw")
	require.NoError(t, err)
	s2, second, err := m.Login("admin", "admin-pw")
	require.NoError(t, err)
	assert.Equal(t, 1, h.cleared)

	_, err = m.Resolve(first)
	assert.Error(t, err)
	got, err := m.Resolve(second)
	require.NoError(t, err)
	assert.Equal(t, s2.ID, got.ID)
}

func TestResolve_RejectsGarbage(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.Resolve("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSession_CachesArePerCustomer(t *testing.T) {
	m, _ := newManager(t)
	s, _, err := m.Login("admin", "admin-pw")
	require.NoError(t, err)

	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	h1 := s.History("CUST001", now)
	assert.Len(t, h1, scoring.DefaultHistoryPeriods)
	assert.Equal(t, h1, s.History("CUST001", now))

	require.NoError(t, s.WithSimulation("CUST001", func(sim *scoring.Simulation) error {
		assert.Equal(t, scoring.DefaultTarget, sim.Target())
		sim.SetTarget(90)
		return sim.Set(scoring.CreditMix, 20)
	}))
	require.NoError(t, s.WithSimulation("CUST001", func(sim *scoring.Simulation) error {
		assert.Equal(t, 90, sim.Target())
		return nil
	}))
	require.NoError(t, s.WithSimulation("CUST002", func(sim *scoring.Simulation) error {
		assert.Empty(t, sim.Overrides())
		return nil
	}))

	s.DropSimulation("CUST001")
	require.NoError(t, s.WithSimulation("CUST001", func(sim *scoring.Simulation) error {
		assert.Equal(t, scoring.DefaultTarget, sim.Target())
		return nil
	}))

	s.SelectCustomer("CUST002")
	assert.Equal(t, "CUST002", s.CurrentCustomer())

	// a fresh login starts with empty caches
	s2, _, err := m.Login("admin", "admin-pw")
	require.NoError(t, err)
	assert.Empty(t, s2.CurrentCustomer())
}

func TestSession_HistoryIsDeterministicPerSeed(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	u := testUsers["admin"]
	a := newSession("a", u, Config{HistorySeed: 5, HistoryPeriods: 12}, now)
	b := newSession("b", u, Config{HistorySeed: 5, HistoryPeriods: 12}, now)
	assert.Equal(t, a.History("CUST003", now), b.History("CUST003", now))
}
