package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user/entity"
)

// UserRepo persists users as one JSON object keyed by username. Every save
// rewrites the whole file.
type UserRepo struct {
	path string
}

func NewUserRepo(path string) *UserRepo { return &UserRepo{path: path} }

func (r *UserRepo) Path() string { return r.path }

// Load reads the credential file. A missing file surfaces as os.ErrNotExist.
func (r *UserRepo) Load() (map[string]entity.User, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		return nil, err
	}
	users := make(map[string]entity.User)
	if err := json.Unmarshal(b, &users); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	for name, u := range users {
		if u.Username == "" {
			u.Username = name
			users[name] = u
		}
	}
	return users, nil
}

// Save writes users to a temp file next to the target and renames it over.
func (r *UserRepo) Save(users map[string]entity.User) error {
	b, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
