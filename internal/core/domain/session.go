package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is the server-side record behind a refresh cookie.
type Session struct {
	// ID is the refresh identifier, the canonical text form of a random
	// 128-bit UUID.
	ID string `json:"id"`

	// Claims is the claim set in storage form (base64 codec text, sealed
	// when at-rest encryption is configured).
	Claims string `json:"claims"`

	// CreatedAt is the creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`
}

// NewSessionID generates a fresh session id from crypto/rand.
func NewSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ParseSessionID validates s and returns its canonical form.
func ParseSessionID(s string) (string, error) {
	if s == "" {
		return "", ErrSessionIDInvalid
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", ErrSessionIDInvalid.WithCause(err)
	}
	return id.String(), nil
}

// CreatedTime returns CreatedAt as a time.Time.
func (s *Session) CreatedTime() time.Time {
	return time.UnixMilli(s.CreatedAt)
}

// CreatedBefore reports whether the session was created strictly before cutoff.
func (s *Session) CreatedBefore(cutoff time.Time) bool {
	return s.CreatedAt < cutoff.UnixMilli()
}
