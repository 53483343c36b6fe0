package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/internal/core/service"
	"github.com/yndnr/authrelay-go/internal/telemetry/logger"
	"github.com/yndnr/authrelay-go/internal/telemetry/metric"
	"github.com/yndnr/authrelay-go/pkg/clock"
)

// Pinger reports backend reachability for /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the handler dependencies.
type Config struct {
	Resolver *service.Resolver
	Tokens   *service.TokenManager
	Store    Pinger
	Metrics  *metric.Registry
	Logger   *slog.Logger

	// CookieName is the session cookie name (default AuthID).
	CookieName string

	// DevAuthLifetime is the lifetime of tokens minted by /auth/{name}.
	DevAuthLifetime time.Duration

	// Wall stamps cookie expiry. It stays on real time when the service
	// clock is shifted for development.
	Wall clock.Clock

	// Version is reported by /health.
	Version string
}

// Handler serves the AuthRelay endpoints.
type Handler struct {
	resolver *service.Resolver
	tokens   *service.TokenManager
	store    Pinger
	metrics  *metric.Registry
	logger   *slog.Logger
	cookie   string
	devTTL   time.Duration
	wall     clock.Clock
	version  string
}

// New creates a Handler.
func New(cfg Config) *Handler {
	h := &Handler{
		resolver: cfg.Resolver,
		tokens:   cfg.Tokens,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		cookie:   cfg.CookieName,
		devTTL:   cfg.DevAuthLifetime,
		wall:     cfg.Wall,
		version:  cfg.Version,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.cookie == "" {
		h.cookie = "AuthID"
	}
	if h.devTTL <= 0 {
		h.devTTL = 365 * 24 * time.Hour
	}
	if h.wall == nil {
		h.wall = clock.System{}
	}
	return h
}

type contextKey struct{}

// WithClaims stores authenticated claims in ctx.
func WithClaims(ctx context.Context, claims domain.ClaimSet) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) domain.ClaimSet {
	claims, _ := ctx.Value(contextKey{}).(domain.ClaimSet)
	return claims
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: logger.RequestIDFromContext(r.Context()),
	})
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		status := errorCodeToHTTPStatus(de.Code)
		if status >= 500 {
			logger.L(r.Context()).Error("request failed", "error", err)
		}
		h.writeError(w, r, status, de.Code, de.Message)
		return
	}

	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternalServer.Code, domain.ErrInternalServer.Message)
}

// errorCodeToHTTPStatus maps AR-<AREA>-<STATUS><SEQ> codes to HTTP status.
func errorCodeToHTTPStatus(code string) int {
	return (&domain.DomainError{Code: code}).Status()
}
