package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/internal/core/service"
	"github.com/yndnr/authrelay-go/internal/telemetry/logger"
)

// LoginResponse is the body of a successful PATCH /login.
type LoginResponse struct {
	Token string `json:"token"`

	// RefreshHint is the number of seconds after which the client should
	// log in again.
	RefreshHint int64 `json:"refreshHint"`
}

// Login handles PATCH /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	resp, err := h.resolver.Login(r.Context(), &service.LoginRequest{
		Authorization: r.Header.Get("Authorization"),
		SessionID:     h.sessionCookie(r),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.clearCookie(w, r)
			h.recordLogin(service.SourceNone, "rejected")
			h.writeError(w, r, http.StatusUnauthorized, domain.ErrUnauthorized.Code, domain.ErrUnauthorized.Message)
			return
		}
		h.recordLogin(service.SourceNone, "error")
		h.handleServiceError(w, r, err)
		return
	}

	h.setCookie(w, r, resp.SessionID, h.wall.Now().Add(h.resolver.Config().RefreshLifetime))
	h.recordLogin(resp.Source, "ok")
	logger.L(r.Context()).Debug("login", "source", resp.Source, "claims", len(resp.Claims))

	h.writeJSON(w, http.StatusOK, LoginResponse{
		Token:       resp.Token,
		RefreshHint: int64(resp.RefreshHint / time.Second),
	})
}

// Logout handles PATCH /logout. The cookie is cleared even when dropping
// the stored session fails.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id := h.sessionCookie(r)
	h.clearCookie(w, r)
	if h.metrics != nil {
		h.metrics.RecordLogout()
	}

	if err := h.resolver.Logout(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) sessionCookie(r *http.Request) string {
	c, err := r.Cookie(h.cookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) setCookie(w http.ResponseWriter, r *http.Request, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie,
		Value:    value,
		Path:     r.Host,
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, r, "", h.wall.Now())
}

func (h *Handler) recordLogin(source, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordLogin(source, outcome)
	}
}
