package handler

import "net/http"

// ClaimResponse is one claim in the /whoami body.
type ClaimResponse struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	ValueType string `json:"valueType,omitempty"`
	Issuer    string `json:"issuer,omitempty"`
}

// WhoAmI handles GET /whoami behind bearer authentication.
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	out := make([]ClaimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, ClaimResponse{
			Type:      c.Type,
			Value:     c.Value,
			ValueType: c.ValueType,
			Issuer:    c.Issuer,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}
