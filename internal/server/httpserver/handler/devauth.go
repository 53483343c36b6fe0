package handler

import (
	"net/http"
	"strings"

	"github.com/yndnr/authrelay-go/internal/core/domain"
)

// DevRole is the role granted by the developer authorizer.
const DevRole = "Developer"

// DevAuth handles GET /auth/{name}. It returns a signed assertion token
// for {name, role=Developer} as text/plain. Only mounted in development.
func (h *Handler) DevAuth(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "name is required")
		return
	}

	claims := domain.ClaimSet{
		domain.NewClaim(domain.ClaimName, name),
		domain.NewClaim(domain.ClaimRole, DevRole),
	}
	token, err := h.tokens.Generate(claims, h.devTTL)
	if err != nil {
		h.handleServiceError(w, r, domain.ErrInternalServer.WithCause(err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(token))
}
