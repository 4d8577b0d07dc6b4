package user

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-credit-go/internal/user/repo"
)

// ProtectedUsername cannot be deleted.
const ProtectedUsername = "admin"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrProtectedUser  = errors.New("user cannot be deleted")
	ErrUserExists     = errors.New("user already exists")
)

// UserService authenticates against and manages the credential file.
// The file is rewritten after every mutation, including last-login updates.
type UserService struct {
	mu     sync.Mutex
	repo   *userrepo.UserRepo
	hasher PasswordHasher
	users  map[string]entity.User
	logger *zap.SugaredLogger
	now    func() time.Time
	// KnownSubscriber, when set, rejects subscriber ids outside the catalog.
	KnownSubscriber func(id string) bool
}

// NewUserService loads the credential file, seeding the default users when
// it is missing or unreadable.
func NewUserService(r *userrepo.UserRepo, hasher PasswordHasher, logger *zap.SugaredLogger) (*UserService, error) {
	if hasher == nil {
		hasher = SHA256Hasher{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &UserService{repo: r, hasher: hasher, logger: logger, now: time.Now}
	users, err := r.Load()
	if err == nil {
		s.users = users
		return s, nil
	}
	logger.Warnw("credential file unavailable, seeding default users", "path", r.Path(), "err", err)
	if err := s.seed(); err != nil {
		return nil, err
	}
	return s, nil
}

type seedUser struct {
	username, password, fullName string
	role                         access.Role
	subscribers                  []string
}

var defaultUsers = []seedUser{
	{"admin", "admin123", "System Administrator", access.RoleAdmin, []string{"SUB001", "SUB002", "SUB003", "SUB004", "SUB005"}},
	{"manager1", "manager123", "Credit Manager 1", access.RoleManager, []string{"SUB001", "SUB002"}},
	{"analyst1", "analyst123", "Credit Analyst 1", access.RoleAnalyst, []string{"SUB001"}},
	{"viewer1", "viewer123", "Data Viewer 1", access.RoleViewer, []string{"SUB001"}},
}

func (s *UserService) seed() error {
	now := entity.NewTimestamp(s.now())
	users := make(map[string]entity.User, len(defaultUsers))
	for _, d := range defaultUsers {
		hash, err := s.hasher.Hash(d.password)
		if err != nil {
			return fmt.Errorf("hash default password: %w", err)
		}
		users[d.username] = entity.User{
			Username:      d.username,
			PasswordHash:  hash,
			Role:          d.role,
			SubscriberIDs: d.subscribers,
			FullName:      d.fullName,
			Email:         d.username + "@creditprofile.com",
			CreatedAt:     now,
		}
	}
	if err := s.repo.Save(users); err != nil {
		return fmt.Errorf("save default users: %w", err)
	}
	s.users = users
	return nil
}

// Authenticate checks the password and records the login. On failure it
// returns ErrBadCredentials and changes nothing.
func (s *UserService) Authenticate(username, password string) (entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.TrimSpace(username)]
	if !ok || u.PasswordHash == "" || !verify(u.PasswordHash, password) {
		s.logger.Infow("authentication failed", "username", username)
		return entity.User{}, ErrBadCredentials
	}

	if s.hasher.NeedsRehash(u.PasswordHash) {
		if h, err := s.hasher.Hash(password); err == nil {
			u.PasswordHash = h
		}
	}
	ts := entity.NewTimestamp(s.now())
	u.LastLogin = &ts
	if err := s.saveWith(u.Username, u); err != nil {
		return entity.User{}, err
	}
	s.logger.Infow("user authenticated", "username", u.Username, "role", u.Role)
	return u, nil
}

func (s *UserService) Get(username string) (entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return entity.User{}, ErrUserNotFound
	}
	return u, nil
}

// List returns users ordered by username.
func (s *UserService) List() []entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b entity.User) int { return strings.Compare(a.Username, b.Username) })
	return out
}

type NewUser struct {
	Username      string      `json:"username"`
	Password      string      `json:"password"`
	Role          access.Role `json:"role"`
	SubscriberIDs []string    `json:"subscriber_ids"`
	FullName      string      `json:"full_name"`
	Email         string      `json:"email"`
}

func (s *UserService) Add(in NewUser) (entity.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return entity.User{}, apperr.Validation("Username and password are required", "")
	}
	if err := s.checkAssignment(in.Role, in.SubscriberIDs); err != nil {
		return entity.User{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return entity.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[in.Username]; ok {
		return entity.User{}, apperr.Conflict(fmt.Sprintf("User %s already exists", in.Username)).Wrap(ErrUserExists)
	}
	u := entity.User{
		Username:      in.Username,
		PasswordHash:  hash,
		Role:          in.Role,
		SubscriberIDs: slices.Clone(in.SubscriberIDs),
		FullName:      in.FullName,
		Email:         in.Email,
		CreatedAt:     entity.NewTimestamp(s.now()),
	}
	if err := s.saveWith(u.Username, u); err != nil {
		return entity.User{}, err
	}
	s.logger.Infow("user added", "username", u.Username, "role", u.Role)
	return u, nil
}

// Update carries the fields to change; nil fields are left as they are.
type Update struct {
	FullName      *string      `json:"full_name"`
	Email         *string      `json:"email"`
	Role          *access.Role `json:"role"`
	SubscriberIDs []string     `json:"subscriber_ids"`
	Password      *string      `json:"password"`
}

func (s *UserService) Update(username string, up Update) (entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return entity.User{}, apperr.NotFound(fmt.Sprintf("User %s not found", username)).Wrap(ErrUserNotFound)
	}
	if up.FullName != nil {
		u.FullName = *up.FullName
	}
	if up.Email != nil {
		u.Email = *up.Email
	}
	if up.Role != nil {
		u.Role = *up.Role
	}
	if up.SubscriberIDs != nil {
		u.SubscriberIDs = slices.Clone(up.SubscriberIDs)
	}
	if err := s.checkAssignment(u.Role, u.SubscriberIDs); err != nil {
		return entity.User{}, err
	}
	if up.Password != nil {
		if *up.Password == "" {
			return entity.User{}, apperr.Validation("Password cannot be empty", "")
		}
		hash, err := s.hasher.Hash(*up.Password)
		if err != nil {
			return entity.User{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if err := s.saveWith(username, u); err != nil {
		return entity.User{}, err
	}
	s.logger.Infow("user updated", "username", username)
	return u, nil
}

// Delete removes a user. The admin account is protected.
func (s *UserService) Delete(username string) error {
	if username == ProtectedUsername {
		return apperr.PermissionDenied("The admin user cannot be deleted").Wrap(ErrProtectedUser)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return apperr.NotFound(fmt.Sprintf("User %s not found", username)).Wrap(ErrUserNotFound)
	}
	next := make(map[string]entity.User, len(s.users))
	for k, v := range s.users {
		if k != username {
			next[k] = v
		}
	}
	if err := s.repo.Save(next); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	s.users = next
	s.logger.Infow("user deleted", "username", username)
	return nil
}

func (s *UserService) checkAssignment(role access.Role, subscriberIDs []string) error {
	if !role.Valid() {
		return apperr.Validation("Invalid role", fmt.Sprintf("role %q is not one of admin, manager, analyst, viewer", role))
	}
	if s.KnownSubscriber == nil {
		return nil
	}
	var unknown []string
	for _, id := range subscriberIDs {
		if !s.KnownSubscriber(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return apperr.Validation("Unknown subscriber", strings.Join(unknown, ", "))
	}
	return nil
}

// saveWith persists the user set with u stored under name. The in-memory set
// only changes when the write succeeds.
func (s *UserService) saveWith(name string, u entity.User) error {
	next := make(map[string]entity.User, len(s.users)+1)
	for k, v := range s.users {
		next[k] = v
	}
	next[name] = u
	if err := s.repo.Save(next); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	s.users = next
	return nil
}
