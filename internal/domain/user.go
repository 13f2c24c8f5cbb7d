package domain

import (
	"encoding/json"
	"time"
)

// User represents a registered account.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsPremium    bool       `json:"is_premium"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// GuestSession grants limited access without an account. ExpiresAt is fixed
// at creation.
type GuestSession struct {
	ID             string    `json:"-"`
	SessionID      string    `json:"session_id"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// ValidAt reports whether the session is usable at t. Validity is exactly
// t < ExpiresAt.
func (s *GuestSession) ValidAt(t time.Time) bool {
	return t.Before(s.ExpiresAt)
}

// GuestPreferences are stored per guest session.
type GuestPreferences struct {
	SessionID string    `json:"session_id"`
	ZipCode   string    `json:"zip_code,omitempty"`
	Theme     string    `json:"theme,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPreferences is a free-form JSON document owned by one user.
type UserPreferences struct {
	UserID      string          `json:"user_id"`
	Preferences json.RawMessage `json:"preferences"`
}

// PasswordResetToken is consumable once, before ExpiresAt.
type PasswordResetToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AuthResult is returned by login and registration.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
