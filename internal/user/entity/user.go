package entity

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
)

// User is one record of the credential file.
type User struct {
	Username      string      `json:"username"`
	PasswordHash  string      `json:"password_hash"`
	Role          access.Role `json:"role"`
	SubscriberIDs []string    `json:"subscriber_ids"`
	FullName      string      `json:"full_name"`
	Email         string      `json:"email"`
	CreatedAt     Timestamp   `json:"created_at"`
	LastLogin     *Timestamp  `json:"last_login"`
}

// Principal is the view of u used by permission checks.
func (u User) Principal() access.Principal {
	return access.Principal{Username: u.Username, Role: u.Role, SubscriberIDs: slices.Clone(u.SubscriberIDs)}
}

// Public is u without its password hash.
func (u User) Public() PublicUser {
	return PublicUser{
		Username:      u.Username,
		Role:          u.Role,
		SubscriberIDs: slices.Clone(u.SubscriberIDs),
		FullName:      u.FullName,
		Email:         u.Email,
		CreatedAt:     u.CreatedAt,
		LastLogin:     u.LastLogin,
	}
}

type PublicUser struct {
	Username      string      `json:"username"`
	Role          access.Role `json:"role"`
	SubscriberIDs []string    `json:"subscriber_ids"`
	FullName      string      `json:"full_name"`
	Email         string      `json:"email"`
	CreatedAt     Timestamp   `json:"created_at"`
	LastLogin     *Timestamp  `json:"last_login"`
}

// timestampLayout is ISO-8601 without zone, microsecond precision.
const timestampLayout = "2006-01-02T15:04:05.999999"

// Timestamp is a local wall-clock instant written as ISO-8601. Zone-qualified
// RFC 3339 values are accepted on read.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp { return Timestamp{t} }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(timestampLayout))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, timestampLayout} {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}
