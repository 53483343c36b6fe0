package service

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/authrelay-go/internal/core/codec"
	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/pkg/clock"
	"github.com/yndnr/authrelay-go/pkg/crypto/adaptive"
)

// DefaultRetention is how long a session record survives the sweep.
const DefaultRetention = 24 * time.Hour

// SessionRepository is the backing table for session records.
type SessionRepository interface {
	// Get returns the record or domain.ErrSessionNotFound.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Put inserts or replaces a record.
	Put(ctx context.Context, s *domain.Session) error

	// Delete removes a record. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteCreatedBefore removes every record created strictly before
	// cutoff and returns how many were removed.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// SessionService stores claim sets under random refresh identifiers.
//
// Rotate is a Drop followed by a Store. A crash between the two loses the
// session and the client has to log in again.
type SessionService struct {
	repo   SessionRepository
	clock  clock.Clock
	cipher *adaptive.Cipher
}

// NewSessionService creates a SessionService. cipher may be nil, in which
// case claims are stored as plain codec text.
func NewSessionService(repo SessionRepository, clk clock.Clock, cipher *adaptive.Cipher) *SessionService {
	if clk == nil {
		clk = clock.System{}
	}
	return &SessionService{
		repo:   repo,
		clock:  clk,
		cipher: cipher,
	}
}

// Get returns the claims stored under id. found is false when no session
// exists, including when id is not a valid session id.
func (s *SessionService) Get(ctx context.Context, id string) (claims domain.ClaimSet, found bool, err error) {
	// 1. Parse id
	id, err = domain.ParseSessionID(id)
	if err != nil {
		return nil, false, nil
	}

	// 2. Load record
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, false, nil
		}
		return nil, false, domain.ErrStorageUnavailable.WithDetails("get").WithCause(err)
	}

	// 3. Decode claims
	claims, err = s.decode(rec)
	if err != nil {
		return nil, false, err
	}
	return claims, true, nil
}

// Store persists claims under a fresh id and returns it.
func (s *SessionService) Store(ctx context.Context, claims domain.ClaimSet) (string, error) {
	id, err := domain.NewSessionID()
	if err != nil {
		return "", domain.ErrInternalServer.WithDetails("session id").WithCause(err)
	}

	data, err := s.encode(id, claims)
	if err != nil {
		return "", err
	}

	rec := &domain.Session{
		ID:        id,
		Claims:    data,
		CreatedAt: s.clock.Now().UnixMilli(),
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		return "", domain.ErrStorageUnavailable.WithDetails("put").WithCause(err)
	}
	return id, nil
}

// Drop deletes the session. Unknown or malformed ids are ignored.
func (s *SessionService) Drop(ctx context.Context, id string) error {
	id, err := domain.ParseSessionID(id)
	if err != nil {
		return nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return domain.ErrStorageUnavailable.WithDetails("delete").WithCause(err)
	}
	return nil
}

// Rotate drops oldID, if any, and stores claims under a new id.
func (s *SessionService) Rotate(ctx context.Context, oldID string, claims domain.ClaimSet) (string, error) {
	if oldID != "" {
		if err := s.Drop(ctx, oldID); err != nil {
			return "", err
		}
	}
	return s.Store(ctx, claims)
}

// Sweep deletes every session created more than retention ago and returns
// the count. A non-positive retention means DefaultRetention.
func (s *SessionService) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := s.clock.Now().Add(-retention)
	n, err := s.repo.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return n, domain.ErrStorageUnavailable.WithDetails("sweep").WithCause(err)
	}
	return n, nil
}

func (s *SessionService) encode(id string, claims domain.ClaimSet) (string, error) {
	text := codec.EncodeString(claims)
	if s.cipher == nil {
		return text, nil
	}
	sealed, err := s.cipher.SealString(text, id)
	if err != nil {
		return "", domain.ErrInternalServer.WithDetails("seal claims").WithCause(err)
	}
	return sealed, nil
}

func (s *SessionService) decode(rec *domain.Session) (domain.ClaimSet, error) {
	text := rec.Claims
	if s.cipher != nil {
		opened, err := s.cipher.OpenString(text, rec.ID)
		if err != nil {
			return nil, domain.ErrClaimsCorrupt.WithDetails("open sealed claims").WithCause(err)
		}
		text = opened
	}
	return codec.DecodeString(text)
}
