package user

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-credit-go/internal/user/repo"
)

func newService(t *testing.T, hasher PasswordHasher) (*UserService, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	svc, err := NewUserService(userrepo.NewUserRepo(path), hasher, zap.NewNop().Sugar())
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 1, 20, 9, 15, 0, 0, time.Local) }
	return svc, path
}

func readFile(t *testing.T, path string) map[string]map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestNewUserService_SeedsDefaults(t *testing.T) {
	svc, path := newService(t, nil)

	users := svc.List()
	require.Len(t, users, 4)
	assert.Equal(t, []string{"admin", "analyst1", "manager1", "viewer1"},
		[]string{users[0].Username, users[1].Username, users[2].Username, users[3].Username})

	onDisk := readFile(t, path)
	assert.Equal(t, "240be518fabd2724ddb6f04eeb1da5967448d7e831c08c8fa822809f74c720a9", onDisk["admin"]["password_hash"])
	assert.Equal(t, "manager", onDisk["manager1"]["role"])
	assert.Nil(t, onDisk["viewer1"]["last_login"])
	assert.Equal(t, []any{"SUB001", "SUB002"}, onDisk["manager1"]["subscriber_ids"])
}

func TestNewUserService_CorruptFileIsReseeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	svc, err := NewUserService(userrepo.NewUserRepo(path), nil, nil)
	require.NoError(t, err)
	assert.Len(t, svc.List(), 4)
	assert.Contains(t, readFile(t, path), "admin")
}

func TestNewUserService_LoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	content := `{
  "ops": {
    "username": "ops",
    "password_hash": "240be518fabd2724ddb6f04eeb1da5967448d7e831c08c8fa822809f74c720a9",
    "role": "analyst",
    "subscriber_ids": ["SUB004"],
    "full_name": "Ops",
    "email": "ops@example.com",
    "created_at": "2024-01-02T03:04:05.123456",
    "last_login": null
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	svc, err := NewUserService(userrepo.NewUserRepo(path), nil, nil)
	require.NoError(t, err)
	u, err := svc.Get("ops")
	require.NoError(t, err)
	assert.Equal(t, access.RoleAnalyst, u.Role)
	assert.Equal(t, 2024, u.CreatedAt.Year())
	assert.Nil(t, u.LastLogin)

	_, err = svc.Authenticate("ops", "admin123")
	assert.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	svc, path := newService(t, nil)

	u, err := svc.Authenticate("admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, u.Role)
	require.NotNil(t, u.LastLogin)
	assert.Equal(t, "2024-01-20T09:15:00", readFile(t, path)["admin"]["last_login"])
}

func TestAuthenticate_WrongPasswordChangesNothing(t *testing.T) {
	svc, path := newService(t, nil)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = svc.Authenticate("admin", "wrongpw")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Authenticate("nobody", "admin123")
	assert.ErrorIs(t, err, ErrBadCredentials)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	u, _ := svc.Get("admin")
	assert.Nil(t, u.LastLogin)
}

func TestAuthenticate_RehashesToBcrypt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	_, err := NewUserService(userrepo.NewUserRepo(path), nil, nil)
	require.NoError(t, err)

	svc, err := NewUserService(userrepo.NewUserRepo(path), BcryptHasher{Cost: 4}, nil)
	require.NoError(t, err)
	u, err := svc.Authenticate("viewer1", "viewer123")
	require.NoError(t, err)
	assert.True(t, isBcrypt(u.PasswordHash))

	_, err = svc.Authenticate("viewer1", "viewer123")
	assert.NoError(t, err)
}

func TestAddUpdateDelete(t *testing.T) {
	svc, path := newService(t, nil)
	svc.KnownSubscriber = func(id string) bool { return id >= "SUB001" && id <= "SUB005" }

	u, err := svc.Add(NewUser{Username: "analyst2", Password: "pw", Role: access.RoleAnalyst, SubscriberIDs: []string{"SUB003"}, FullName: "Analyst Two"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-20T09:15:00", readFile(t, path)["analyst2"]["created_at"])
	assert.NotEqual(t, "pw", u.PasswordHash)

	_, err = svc.Add(NewUser{Username: "analyst2", Password: "pw", Role: access.RoleAnalyst})
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, apperr.CodeConflict, apperr.As(err).Code)

	_, err = svc.Add(NewUser{Username: "x", Password: "pw", Role: "root"})
	assert.Equal(t, apperr.CodeValidationFailed, apperr.As(err).Code)
	_, err = svc.Add(NewUser{Username: "y", Password: "pw", Role: access.RoleViewer, SubscriberIDs: []string{"SUB999"}})
	assert.Equal(t, "SUB999", apperr.As(err).Details)

	role := access.RoleManager
	name := "Manager Two"
	u, err = svc.Update("analyst2", Update{Role: &role, FullName: &name, SubscriberIDs: []string{"SUB003", "SUB004"}})
	require.NoError(t, err)
	assert.Equal(t, access.RoleManager, u.Role)
	assert.Equal(t, []string{"SUB003", "SUB004"}, u.SubscriberIDs)

	pw := "newpw"
	_, err = svc.Update("analyst2", Update{Password: &pw})
	require.NoError(t, err)
	_, err = svc.Authenticate("analyst2", "newpw")
	assert.NoError(t, err)

	_, err = svc.Update("ghost", Update{FullName: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, svc.Delete("analyst2"))
	assert.NotContains(t, readFile(t, path), "analyst2")
	assert.ErrorIs(t, svc.Delete("analyst2"), ErrUserNotFound)
}

func TestDelete_AdminIsProtected(t *testing.T) {
	svc, _ := newService(t, nil)
	err := svc.Delete("admin")
	assert.ErrorIs(t, err, ErrProtectedUser)
	_, err = svc.Get("admin")
	assert.NoError(t, err)
}

func TestTimestamp_AcceptsZoned(t *testing.T) {
	var ts entity.Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-15T08:00:00Z"`), &ts))
	assert.Equal(t, 8, ts.UTC().Hour())
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestUserPrincipal(t *testing.T) {
	svc, _ := newService(t, nil)
	u, err := svc.Get("manager1")
	require.NoError(t, err)
	p := u.Principal()
	assert.True(t, p.CanAccess("SUB002"))
	assert.False(t, p.CanAccess("SUB003"))
	assert.True(t, p.Capabilities().Delete)
}
