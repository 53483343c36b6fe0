package service

import (
	"context"
	"time"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/pkg/clock"
)

// Login sources.
const (
	SourceAssertion = "assertion"
	SourceSession   = "session"
	SourceNone      = "none"
)

// ResolverConfig holds the lifetimes used when issuing credentials.
type ResolverConfig struct {
	// TokenLifetime is the bearer token lifetime (default: 15m).
	TokenLifetime time.Duration

	// RefreshLifetime is the session cookie lifetime (default: 7 days).
	RefreshLifetime time.Duration

	// HintMargin is subtracted from TokenLifetime for the refresh hint
	// (default: 30s).
	HintMargin time.Duration
}

// DefaultResolverConfig returns default configuration.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		TokenLifetime:   15 * time.Minute,
		RefreshLifetime: 7 * 24 * time.Hour,
		HintMargin:      30 * time.Second,
	}
}

// LoginRequest carries the credentials found on a login request.
type LoginRequest struct {
	Authorization string // raw Authorization header, may be empty
	SessionID     string // session cookie value, may be empty
}

// LoginResponse is the outcome of a successful login.
type LoginResponse struct {
	Token          string
	RefreshHint    time.Duration
	SessionID      string
	SessionExpires time.Time
	Source         string
	Claims         domain.ClaimSet
}

// TokenIssuer mints and checks bearer tokens. *TokenManager implements it.
type TokenIssuer interface {
	Generate(claims domain.ClaimSet, lifetime time.Duration, audience ...string) (string, error)
	Validate(token string) (domain.ClaimSet, bool)
}

// Resolver authenticates login requests from an assertion token or a stored
// session, then rotates the session and mints a bearer token.
type Resolver struct {
	tokens   TokenIssuer
	sessions *SessionService
	clock    clock.Clock
	cfg      ResolverConfig
}

// NewResolver creates a Resolver. Zero config fields take their defaults.
func NewResolver(tokens TokenIssuer, sessions *SessionService, clk clock.Clock, cfg ResolverConfig) *Resolver {
	def := DefaultResolverConfig()
	if cfg.TokenLifetime <= 0 {
		cfg.TokenLifetime = def.TokenLifetime
	}
	if cfg.RefreshLifetime <= 0 {
		cfg.RefreshLifetime = def.RefreshLifetime
	}
	if cfg.HintMargin <= 0 {
		cfg.HintMargin = def.HintMargin
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Resolver{tokens: tokens, sessions: sessions, clock: clk, cfg: cfg}
}

// Config returns the effective configuration.
func (r *Resolver) Config() ResolverConfig { return r.cfg }

// Login resolves claims and issues new credentials.
//
// It returns domain.ErrUnauthorized when neither path yields claims, after
// dropping any session named by the request. Backend failures are returned
// as errors and never treated as unauthenticated.
func (r *Resolver) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	// 1. Assertion token
	var (
		claims domain.ClaimSet
		source = SourceNone
	)
	if req.Authorization != "" {
		if cs, ok := r.tokens.Validate(req.Authorization); ok {
			claims, source = cs, SourceAssertion
		}
	}

	// 2. Stored session
	if source == SourceNone && req.SessionID != "" {
		cs, found, err := r.sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		if found {
			claims, source = cs, SourceSession
		}
	}

	// 3. Reject
	if source == SourceNone {
		if err := r.sessions.Drop(ctx, req.SessionID); err != nil {
			return nil, err
		}
		return nil, domain.ErrUnauthorized
	}

	// 4. Mint bearer token. A failure here leaves the presented session intact.
	token, err := r.tokens.Generate(claims, r.cfg.TokenLifetime)
	if err != nil {
		return nil, domain.ErrInternalServer.WithDetails("generate token").WithCause(err)
	}

	// 5. Rotate session
	id, err := r.sessions.Rotate(ctx, req.SessionID, claims)
	if err != nil {
		return nil, err
	}

	hint := r.cfg.TokenLifetime - r.cfg.HintMargin
	if hint < 0 {
		hint = 0
	}

	return &LoginResponse{
		Token:          token,
		RefreshHint:    hint,
		SessionID:      id,
		SessionExpires: r.clock.Now().Add(r.cfg.RefreshLifetime),
		Source:         source,
		Claims:         claims,
	}, nil
}

// Logout drops the session named by sessionID, if it parses. It succeeds
// regardless of prior authentication state.
func (r *Resolver) Logout(ctx context.Context, sessionID string) error {
	return r.sessions.Drop(ctx, sessionID)
}

// Now returns the resolver's clock time.
func (r *Resolver) Now() time.Time { return r.clock.Now() }
